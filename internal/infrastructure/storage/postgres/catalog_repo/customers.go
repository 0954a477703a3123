package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const (
	customersTable    = "customers"
	pointHistoryTable = "point_history"
)

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository. A partial unique index on
// contact over active rows makes a concurrent second Create for the same
// contact fail with DUPLICATE_ENTRY.
type CustomerRepo struct {
	*BaseRepo[*customer.Customer]
	pointCols []string
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	base := NewBaseRepo[*customer.Customer](
		txm,
		customersTable,
		"customer",
		postgres.ExtractDBColumns[customer.Customer](),
		func() *customer.Customer { return &customer.Customer{} },
		map[string]string{
			"name":          "name",
			"contact":       "contact",
			"points":        "points",
			"total_spent":   "total_spent",
			"order_count":   "order_count",
			"last_order_at": "last_order_at",
			"created_at":    "created_at",
		},
		"name",
	)
	base.uniqueField = func(c *customer.Customer) (string, string) {
		return "contact", c.Contact
	}
	return &CustomerRepo{
		BaseRepo:  base,
		pointCols: postgres.ExtractDBColumns[customer.PointEntry](),
	}
}

func (r *CustomerRepo) byContact(contact string) squirrel.SelectBuilder {
	return r.baseSelect().Where(squirrel.Eq{"contact": contact, "status": entity.StatusActive})
}

// GetByIDForUpdate locks the customer row until the transaction ends.
func (r *CustomerRepo) GetByIDForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetForUpdate(ctx, customerID)
}

// FindByContact returns the active customer holding contact.
func (r *CustomerRepo) FindByContact(ctx context.Context, contact string) (*customer.Customer, error) {
	return r.FindOne(ctx, r.byContact(contact).Limit(1), contact)
}

// FindByContactForUpdate locks the active customer holding contact. An
// absent contact cannot be locked; the unique index catches that race.
func (r *CustomerRepo) FindByContactForUpdate(ctx context.Context, contact string) (*customer.Customer, error) {
	return r.FindOne(ctx, r.byContact(contact).Suffix("FOR UPDATE"), contact)
}

// List retrieves customers with filtering and pagination.
func (r *CustomerRepo) List(ctx context.Context, filter customer.Filter) (domain.ListResult[*customer.Customer], error) {
	q := r.baseSelect()
	if filter.Branch != "" {
		q = q.Where(squirrel.Expr("jsonb_exists(branches, ?)", filter.Branch))
	}
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"customer_type": filter.Type})
	}
	if filter.Search != "" {
		or := searchAny(filter.Search, "name", "company")
		if contact := customer.NormalizeContact(filter.Search); contact != "" {
			or = append(or, squirrel.Like{"contact": "%" + contact + "%"})
		}
		q = q.Where(or)
	}
	return r.ListWhere(ctx, q, filter.ListFilter)
}

// AppendPointEntry writes an immutable point history row.
func (r *CustomerRepo) AppendPointEntry(ctx context.Context, entry *customer.PointEntry) error {
	sql, args, err := Builder().
		Insert(pointHistoryTable).
		SetMap(postgres.Columns(entry, r.pointCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", pointHistoryTable, err)
	}
	return nil
}

// ListPointEntries returns a customer's point history, newest first.
func (r *CustomerRepo) ListPointEntries(ctx context.Context, customerID id.ID, filter domain.ListFilter) (domain.ListResult[*customer.PointEntry], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*customer.PointEntry]{
		Items:  []*customer.PointEntry{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	where := squirrel.Eq{"customer_id": customerID}
	querier := r.querier(ctx)

	countSQL, countArgs, err := Builder().Select("COUNT(*)").From(pointHistoryTable).Where(where).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", pointHistoryTable, err)
	}

	sql, args, err := Builder().
		Select(r.pointCols...).
		From(pointHistoryTable).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", pointHistoryTable, err)
	}
	return result, nil
}
