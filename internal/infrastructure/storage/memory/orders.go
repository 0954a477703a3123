package memory

import (
	"context"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/order"
)

var _ order.Repository = (*OrderRepo)(nil)

// OrderRepo stores orders.
type OrderRepo struct {
	store *Store
}

// NewOrderRepo creates an order repository.
func NewOrderRepo(store *Store) *OrderRepo {
	return &OrderRepo{store: store}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.store.write(ctx, func(t *txn) error {
		if _, ok := t.get(tableOrders, o.ID.String()); ok {
			return apperror.NewDuplicate("order", "id", o.ID.String())
		}
		t.put(tableOrders, o.ID.String(), o.Clone())
		return nil
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	v, ok := r.store.read(ctx, tableOrders, orderID.String())
	if !ok {
		return nil, apperror.NewNotFound("order", orderID.String())
	}
	return v.(*order.Order).Clone(), nil
}

func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, orderID)
}

func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	return r.store.write(ctx, func(t *txn) error {
		v, ok := t.get(tableOrders, o.ID.String())
		if !ok {
			return apperror.NewNotFound("order", o.ID.String())
		}
		current := v.(*order.Order)
		if current.Version != o.Version {
			return apperror.NewConcurrentModification("order", o.ID.String())
		}
		next := o.Clone()
		next.CreatedAt = current.CreatedAt
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		t.put(tableOrders, next.ID.String(), next)
		o.Version = next.Version
		o.UpdatedAt = next.UpdatedAt
		return nil
	})
}

var orderOrderings = orderings[*order.Order]{
	"order_date": func(a, b *order.Order) int {
		if c := a.OrderDate.Compare(b.OrderDate); c != 0 {
			return c
		}
		return strings.Compare(a.Number, b.Number)
	},
	"number": func(a, b *order.Order) int { return strings.Compare(a.Number, b.Number) },
	"total":  func(a, b *order.Order) int { return a.Summary.Total.Cmp(b.Summary.Total) },
}

func (r *OrderRepo) List(ctx context.Context, filter order.Filter) (domain.ListResult[*order.Order], error) {
	rows := collect(r.store.scan(ctx, tableOrders), filter.Matches, (*order.Order).Clone)
	sortRows(rows, filter.OrderBy, "-order_date", orderOrderings)
	return page(rows, filter.ListFilter), nil
}
