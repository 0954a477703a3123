package memory

import (
	"context"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/partner"
)

// RecordRepo is a generic repository for simple soft-deletable records.
type RecordRepo[T domain.Record, F any] struct {
	store      *Store
	table      string
	entityName string
	clone      func(T) T
	matches    func(F, T) bool
	listFilter func(F) domain.ListFilter
	orderings  orderings[T]
	defaultBy  string
}

func (r *RecordRepo[T, F]) Create(ctx context.Context, record T) error {
	key := record.Base().ID.String()
	return r.store.write(ctx, func(t *txn) error {
		if _, ok := t.get(r.table, key); ok {
			return apperror.NewDuplicate(r.entityName, "id", key)
		}
		t.put(r.table, key, r.clone(record))
		return nil
	})
}

func (r *RecordRepo[T, F]) GetByID(ctx context.Context, recordID id.ID) (T, error) {
	v, ok := r.store.read(ctx, r.table, recordID.String())
	if !ok {
		var zero T
		return zero, apperror.NewNotFound(r.entityName, recordID.String())
	}
	return r.clone(v.(T)), nil
}

func (r *RecordRepo[T, F]) Update(ctx context.Context, record T) error {
	base := record.Base()
	key := base.ID.String()
	return r.store.write(ctx, func(t *txn) error {
		v, ok := t.get(r.table, key)
		if !ok {
			return apperror.NewNotFound(r.entityName, key)
		}
		if v.(T).Base().Version != base.Version {
			return apperror.NewConcurrentModification(r.entityName, key)
		}
		next := r.clone(record)
		nb := next.Base()
		nb.Version++
		nb.UpdatedAt = time.Now().UTC()
		t.put(r.table, key, next)
		base.Version = nb.Version
		base.UpdatedAt = nb.UpdatedAt
		return nil
	})
}

func (r *RecordRepo[T, F]) List(ctx context.Context, filter F) (domain.ListResult[T], error) {
	keep := func(record T) bool { return r.matches(filter, record) }
	rows := collect(r.store.scan(ctx, r.table), keep, r.clone)
	lf := r.listFilter(filter)
	sortRows(rows, lf.OrderBy, r.defaultBy, r.orderings)
	return page(rows, lf), nil
}

// NewPartnerRepo creates a partner repository.
func NewPartnerRepo(store *Store) *RecordRepo[*partner.Partner, partner.Filter] {
	return &RecordRepo[*partner.Partner, partner.Filter]{
		store:      store,
		table:      tablePartners,
		entityName: "partner",
		clone:      (*partner.Partner).Clone,
		matches:    partner.Filter.Matches,
		listFilter: func(f partner.Filter) domain.ListFilter { return f.ListFilter },
		orderings: orderings[*partner.Partner]{
			"name":       func(a, b *partner.Partner) int { return strings.Compare(a.Name, b.Name) },
			"created_at": func(a, b *partner.Partner) int { return a.CreatedAt.Compare(b.CreatedAt) },
		},
		defaultBy: "name",
	}
}

// NewExpenseRepo creates an expense repository.
func NewExpenseRepo(store *Store) *RecordRepo[*expense.Expense, expense.Filter] {
	return &RecordRepo[*expense.Expense, expense.Filter]{
		store:      store,
		table:      tableExpenses,
		entityName: "expense",
		clone:      (*expense.Expense).Clone,
		matches:    expense.Filter.Matches,
		listFilter: func(f expense.Filter) domain.ListFilter { return f.ListFilter },
		orderings: orderings[*expense.Expense]{
			"date":   func(a, b *expense.Expense) int { return a.Date.Compare(b.Date) },
			"amount": func(a, b *expense.Expense) int { return a.Amount.Cmp(b.Amount) },
		},
		defaultBy: "-date",
	}
}

var (
	_ partner.Repository = (*RecordRepo[*partner.Partner, partner.Filter])(nil)
	_ expense.Repository = (*RecordRepo[*expense.Expense, expense.Filter])(nil)
)
