package order

import (
	"context"

	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
)

// Repository persists orders. Update follows the same version rule as
// item.Repository.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	// GetByIDForUpdate also locks the order until the transaction ends.
	GetByIDForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	// List returns orders newest first by order date.
	List(ctx context.Context, filter Filter) (domain.ListResult[*Order], error)
}
