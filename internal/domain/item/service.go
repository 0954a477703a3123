package item

import (
	"context"
	"fmt"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/domain"
	"bloomledger/pkg/logger"
)

// StockWriter moves stock through the ledger so that every change leaves a
// history entry. Implemented by stockledger.Ledger.
type StockWriter interface {
	// Receive adds quantity to it as an inbound movement.
	Receive(ctx context.Context, it *Item, quantity int64, operator, reason string) error
	// SetLevel overwrites the stock level as a manual update.
	SetLevel(ctx context.Context, it *Item, level int64, operator, reason string) error
}

// Service manages the item catalog.
type Service struct {
	repo      Repository
	stock     StockWriter
	txManager tx.Manager
}

// NewService creates a new item service.
func NewService(repo Repository, stock StockWriter, txManager tx.Manager) *Service {
	return &Service{repo: repo, stock: stock, txManager: txManager}
}

// Create inserts a new item. A non-zero initial stock is booked through the
// ledger as an inbound movement.
func (s *Service) Create(ctx context.Context, operator string, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}
	initial := it.Stock

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		it.Stock = 0
		if err := s.repo.Create(ctx, it); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		if initial > 0 {
			return s.stock.Receive(ctx, it, initial, operator, "initial_stock")
		}
		return nil
	})
	if err != nil {
		it.Stock = initial
		return err
	}

	logger.Info(ctx, "item created", "id", it.ID, "key", it.Key().String(), "stock", it.Stock)
	return nil
}

// GetByID returns an item including soft-deleted ones.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// GetByKey returns the active item for key.
func (s *Service) GetByKey(ctx context.Context, key Key) (*Item, error) {
	return s.repo.GetByKey(ctx, key)
}

// Update changes catalog fields. Kind, code, branch and stock are not
// editable here; the input Version must match the stored one.
func (s *Service) Update(ctx context.Context, input *Item) (*Item, error) {
	var updated *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}
		if current.IsDeleted() {
			return apperror.NewNotFound("item", input.ID.String())
		}
		if input.Version != 0 && input.Version != current.Version {
			return apperror.NewConcurrentModification("item", input.ID.String())
		}
		current.ApplyCatalog(input)
		if err := current.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, current); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes an item. History entries referencing it stay intact.
func (s *Service) Delete(ctx context.Context, itemID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if it.IsDeleted() {
			return nil
		}
		it.MarkDeleted()
		return s.repo.Update(ctx, it)
	})
}

// List returns items matching filter.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}
