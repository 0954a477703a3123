package item

import (
	"context"

	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
)

// Repository persists items.
//
// Update succeeds only if the stored version equals it.Version; it then
// increments it.Version. A stale version yields CONCURRENT_MODIFICATION.
type Repository interface {
	// Create inserts a new item. Returns DUPLICATE_ENTRY when an active item
	// with the same key exists.
	Create(ctx context.Context, it *Item) error

	// GetByID returns the item, including soft-deleted ones.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetByKey returns the active item for key or ITEM_NOT_FOUND.
	GetByKey(ctx context.Context, key Key) (*Item, error)

	// GetByKeyForUpdate is GetByKey that also locks the record until the
	// surrounding transaction ends. Must be called inside a transaction.
	GetByKeyForUpdate(ctx context.Context, key Key) (*Item, error)

	// Update writes all fields of it.
	Update(ctx context.Context, it *Item) error

	// List retrieves items with filtering and pagination.
	List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error)
}
