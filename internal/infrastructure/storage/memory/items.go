package memory

import (
	"context"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
)

var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo stores items. An index row per active (kind, code, branch)
// enforces uniqueness and makes key lookups part of the read set.
type ItemRepo struct {
	store *Store
}

// NewItemRepo creates an item repository.
func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

func itemIndexKey(k item.Key) string {
	return string(k.Kind) + "|" + k.Code + "|" + k.Branch
}

func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.store.write(ctx, func(t *txn) error {
		if _, ok := t.get(tableItemKeys, itemIndexKey(it.Key())); ok {
			return apperror.NewDuplicate("item", "code", it.Key().String())
		}
		if _, ok := t.get(tableItems, it.ID.String()); ok {
			return apperror.NewDuplicate("item", "id", it.ID.String())
		}
		t.put(tableItems, it.ID.String(), it.Clone())
		t.put(tableItemKeys, itemIndexKey(it.Key()), it.ID)
		return nil
	})
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	v, ok := r.store.read(ctx, tableItems, itemID.String())
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	return v.(*item.Item).Clone(), nil
}

func (r *ItemRepo) GetByKey(ctx context.Context, key item.Key) (*item.Item, error) {
	v, ok := r.store.read(ctx, tableItemKeys, itemIndexKey(key))
	if !ok {
		return nil, apperror.NewItemNotFound(string(key.Kind), key.Code, key.Branch)
	}
	it, ok := r.store.read(ctx, tableItems, v.(id.ID).String())
	if !ok {
		return nil, apperror.NewItemNotFound(string(key.Kind), key.Code, key.Branch)
	}
	return it.(*item.Item).Clone(), nil
}

// GetByKeyForUpdate reads through the transaction, so a concurrent commit
// to the item fails this transaction at commit time.
func (r *ItemRepo) GetByKeyForUpdate(ctx context.Context, key item.Key) (*item.Item, error) {
	return r.GetByKey(ctx, key)
}

func (r *ItemRepo) Update(ctx context.Context, it *item.Item) error {
	return r.store.write(ctx, func(t *txn) error {
		v, ok := t.get(tableItems, it.ID.String())
		if !ok {
			return apperror.NewNotFound("item", it.ID.String())
		}
		current := v.(*item.Item)
		if current.Version != it.Version {
			return apperror.NewConcurrentModification("item", it.ID.String())
		}

		next := it.Clone()
		next.Kind, next.Code, next.Branch = current.Kind, current.Code, current.Branch
		next.CreatedAt = current.CreatedAt
		next.Version++
		next.UpdatedAt = time.Now().UTC()

		indexKey := itemIndexKey(current.Key())
		switch {
		case current.IsActive() && next.IsDeleted():
			t.delete(tableItemKeys, indexKey)
		case current.IsDeleted() && next.IsActive():
			if _, taken := t.get(tableItemKeys, indexKey); taken {
				return apperror.NewDuplicate("item", "code", current.Key().String())
			}
			t.put(tableItemKeys, indexKey, next.ID)
		}

		t.put(tableItems, next.ID.String(), next)
		it.Version = next.Version
		it.UpdatedAt = next.UpdatedAt
		return nil
	})
}

var itemOrderings = orderings[*item.Item]{
	"code":       func(a, b *item.Item) int { return strings.Compare(a.Branch+a.Code, b.Branch+b.Code) },
	"name":       func(a, b *item.Item) int { return strings.Compare(a.Name, b.Name) },
	"stock":      func(a, b *item.Item) int { return cmpInt(a.Stock, b.Stock) },
	"created_at": func(a, b *item.Item) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (r *ItemRepo) List(ctx context.Context, filter item.Filter) (domain.ListResult[*item.Item], error) {
	rows := collect(r.store.scan(ctx, tableItems), filter.Matches, (*item.Item).Clone)
	sortRows(rows, filter.OrderBy, "code", itemOrderings)
	return page(rows, filter.ListFilter), nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
