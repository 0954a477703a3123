package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const itemsTable = "items"

var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo implements item.Repository. The partial unique index on
// (kind, code, branch) over active rows guards the item key.
type ItemRepo struct {
	*BaseRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	base := NewBaseRepo[*item.Item](
		txm,
		itemsTable,
		"item",
		postgres.ExtractDBColumns[item.Item](),
		func() *item.Item { return &item.Item{} },
		map[string]string{
			"code":       "branch, code",
			"name":       "name",
			"stock":      "stock",
			"price":      "price",
			"created_at": "created_at",
		},
		"code",
	)
	base.uniqueField = func(it *item.Item) (string, string) {
		return "code", it.Key().String()
	}
	return &ItemRepo{BaseRepo: base}
}

func (r *ItemRepo) byKey(key item.Key) squirrel.SelectBuilder {
	return r.baseSelect().Where(squirrel.Eq{
		"kind":   key.Kind,
		"code":   key.Code,
		"branch": key.Branch,
		"status": entity.StatusActive,
	})
}

// GetByKey returns the active item for key.
func (r *ItemRepo) GetByKey(ctx context.Context, key item.Key) (*item.Item, error) {
	it, err := r.FindOne(ctx, r.byKey(key).Limit(1), key.String())
	return it, itemNotFound(err, key)
}

// GetByKeyForUpdate locks the item row until the transaction ends.
func (r *ItemRepo) GetByKeyForUpdate(ctx context.Context, key item.Key) (*item.Item, error) {
	it, err := r.FindOne(ctx, r.byKey(key).Suffix("FOR UPDATE"), key.String())
	return it, itemNotFound(err, key)
}

func itemNotFound(err error, key item.Key) error {
	if apperror.IsNotFound(err) {
		return apperror.NewItemNotFound(string(key.Kind), key.Code, key.Branch)
	}
	return err
}

// List retrieves items with filtering and pagination.
func (r *ItemRepo) List(ctx context.Context, filter item.Filter) (domain.ListResult[*item.Item], error) {
	q := r.baseSelect()
	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.Branch != "" {
		q = q.Where(squirrel.Eq{"branch": filter.Branch})
	}
	if filter.MainCategory != "" {
		q = q.Where(squirrel.Eq{"main_category": filter.MainCategory})
	}
	if filter.LowStock != nil {
		q = q.Where(squirrel.LtOrEq{"stock": *filter.LowStock})
	}
	if filter.Search != "" {
		q = q.Where(searchAny(filter.Search, "name", "code"))
	}
	return r.ListWhere(ctx, q, filter.ListFilter)
}
