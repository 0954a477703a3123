package memory

import (
	"context"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo stores customers and point history. The contact index row
// of an active customer is read by every lookup, so two transactions that
// both find a contact absent cannot both commit a new customer for it.
type CustomerRepo struct {
	store *Store
}

// NewCustomerRepo creates a customer repository.
func NewCustomerRepo(store *Store) *CustomerRepo {
	return &CustomerRepo{store: store}
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.store.write(ctx, func(t *txn) error {
		if _, ok := t.get(tableContacts, c.Contact); ok {
			return apperror.NewDuplicate("customer", "contact", c.Contact)
		}
		if _, ok := t.get(tableCustomers, c.ID.String()); ok {
			return apperror.NewDuplicate("customer", "id", c.ID.String())
		}
		t.put(tableCustomers, c.ID.String(), c.Clone())
		t.put(tableContacts, c.Contact, c.ID)
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	v, ok := r.store.read(ctx, tableCustomers, customerID.String())
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return v.(*customer.Customer).Clone(), nil
}

func (r *CustomerRepo) GetByIDForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, customerID)
}

func (r *CustomerRepo) FindByContact(ctx context.Context, contact string) (*customer.Customer, error) {
	v, ok := r.store.read(ctx, tableContacts, contact)
	if !ok {
		return nil, apperror.NewNotFound("customer", contact)
	}
	return r.GetByID(ctx, v.(id.ID))
}

func (r *CustomerRepo) FindByContactForUpdate(ctx context.Context, contact string) (*customer.Customer, error) {
	return r.FindByContact(ctx, contact)
}

func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	return r.store.write(ctx, func(t *txn) error {
		v, ok := t.get(tableCustomers, c.ID.String())
		if !ok {
			return apperror.NewNotFound("customer", c.ID.String())
		}
		current := v.(*customer.Customer)
		if current.Version != c.Version {
			return apperror.NewConcurrentModification("customer", c.ID.String())
		}

		next := c.Clone()
		next.CreatedAt = current.CreatedAt
		next.Version++
		next.UpdatedAt = time.Now().UTC()

		if current.IsActive() && (next.IsDeleted() || next.Contact != current.Contact) {
			if owner, ok := t.get(tableContacts, current.Contact); ok && owner.(id.ID) == c.ID {
				t.delete(tableContacts, current.Contact)
			}
		}
		if next.IsActive() && (current.IsDeleted() || next.Contact != current.Contact) {
			if _, taken := t.get(tableContacts, next.Contact); taken {
				return apperror.NewDuplicate("customer", "contact", next.Contact)
			}
			t.put(tableContacts, next.Contact, next.ID)
		}

		t.put(tableCustomers, next.ID.String(), next)
		c.Version = next.Version
		c.UpdatedAt = next.UpdatedAt
		return nil
	})
}

var customerOrderings = orderings[*customer.Customer]{
	"name":        func(a, b *customer.Customer) int { return strings.Compare(a.Name, b.Name) },
	"total_spent": func(a, b *customer.Customer) int { return a.TotalSpent.Cmp(b.TotalSpent) },
	"points":      func(a, b *customer.Customer) int { return cmpInt(a.Points, b.Points) },
	"created_at":  func(a, b *customer.Customer) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (r *CustomerRepo) List(ctx context.Context, filter customer.Filter) (domain.ListResult[*customer.Customer], error) {
	rows := collect(r.store.scan(ctx, tableCustomers), filter.Matches, (*customer.Customer).Clone)
	sortRows(rows, filter.OrderBy, "name", customerOrderings)
	return page(rows, filter.ListFilter), nil
}

func clonePointEntry(e *customer.PointEntry) *customer.PointEntry {
	c := *e
	if e.OrderID != nil {
		oid := *e.OrderID
		c.OrderID = &oid
	}
	return &c
}

func (r *CustomerRepo) AppendPointEntry(ctx context.Context, entry *customer.PointEntry) error {
	return r.store.write(ctx, func(t *txn) error {
		t.put(tablePoints, entry.ID.String(), clonePointEntry(entry))
		return nil
	})
}

func (r *CustomerRepo) ListPointEntries(ctx context.Context, customerID id.ID, filter domain.ListFilter) (domain.ListResult[*customer.PointEntry], error) {
	keep := func(e *customer.PointEntry) bool { return e.CustomerID == customerID }
	rows := collect(r.store.scan(ctx, tablePoints), keep, clonePointEntry)
	sortRows(rows, "", "-created_at", orderings[*customer.PointEntry]{
		"created_at": func(a, b *customer.PointEntry) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return compareIDs(a.ID[:], b.ID[:])
		},
	})
	return page(rows, filter), nil
}
