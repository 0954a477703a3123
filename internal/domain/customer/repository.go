package customer

import (
	"context"

	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
)

// Repository persists customers and their point history.
//
// At most one active customer may hold a contact. Create and Update return
// DUPLICATE_ENTRY otherwise. Update follows the same version rule as
// item.Repository.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	// GetByID returns the customer including soft-deleted ones.
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	// GetByIDForUpdate also locks the record until the transaction ends.
	GetByIDForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)
	// FindByContact returns the active customer holding contact or NOT_FOUND.
	FindByContact(ctx context.Context, contact string) (*Customer, error)
	// FindByContactForUpdate locks the customer holding contact. Stores that
	// cannot lock an absent row report the race as DUPLICATE_ENTRY on Create.
	FindByContactForUpdate(ctx context.Context, contact string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	List(ctx context.Context, filter Filter) (domain.ListResult[*Customer], error)

	AppendPointEntry(ctx context.Context, entry *PointEntry) error
	// ListPointEntries returns a customer's point history, newest first.
	ListPointEntries(ctx context.Context, customerID id.ID, filter domain.ListFilter) (domain.ListResult[*PointEntry], error)
}
