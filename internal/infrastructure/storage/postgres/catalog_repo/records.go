package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bloomledger/internal/domain"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const (
	partnersTable = "partners"
	expensesTable = "expenses"
)

var (
	_ partner.Repository = (*PartnerRepo)(nil)
	_ expense.Repository = (*ExpenseRepo)(nil)
)

// PartnerRepo implements partner.Repository.
type PartnerRepo struct {
	*BaseRepo[*partner.Partner]
}

// NewPartnerRepo creates a new partner repository.
func NewPartnerRepo(txm *postgres.TxManager) *PartnerRepo {
	return &PartnerRepo{
		BaseRepo: NewBaseRepo[*partner.Partner](
			txm,
			partnersTable,
			"partner",
			postgres.ExtractDBColumns[partner.Partner](),
			func() *partner.Partner { return &partner.Partner{} },
			map[string]string{"name": "name", "created_at": "created_at"},
			"name",
		),
	}
}

// List retrieves partners. A "both" partner matches either type.
func (r *PartnerRepo) List(ctx context.Context, filter partner.Filter) (domain.ListResult[*partner.Partner], error) {
	q := r.baseSelect()
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"partner_type": []partner.Type{filter.Type, partner.TypeBoth}})
	}
	if filter.Search != "" {
		q = q.Where(searchAny(filter.Search, "name", "business_number"))
	}
	return r.ListWhere(ctx, q, filter.ListFilter)
}

// ExpenseRepo implements expense.Repository.
type ExpenseRepo struct {
	*BaseRepo[*expense.Expense]
}

// NewExpenseRepo creates a new expense repository.
func NewExpenseRepo(txm *postgres.TxManager) *ExpenseRepo {
	base := NewBaseRepo[*expense.Expense](
		txm,
		expensesTable,
		"expense",
		postgres.ExtractDBColumns[expense.Expense](),
		func() *expense.Expense { return &expense.Expense{} },
		map[string]string{"date": "expense_date", "amount": "amount", "created_at": "created_at"},
		"-date",
	)
	base.uniqueField = func(e *expense.Expense) (string, string) {
		return "number", e.Number
	}
	return &ExpenseRepo{BaseRepo: base}
}

// List retrieves expenses in a half-open date range.
func (r *ExpenseRepo) List(ctx context.Context, filter expense.Filter) (domain.ListResult[*expense.Expense], error) {
	q := r.baseSelect()
	if filter.Branch != "" {
		q = q.Where(squirrel.Eq{"branch": filter.Branch})
	}
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"expense_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"expense_date": *filter.To})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"description": "%" + filter.Search + "%"})
	}
	return r.ListWhere(ctx, q, filter.ListFilter)
}
