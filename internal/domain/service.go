package domain

import (
	"context"
	"fmt"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/tx"
	"bloomledger/pkg/logger"
)

// Record is a soft-deletable entity handled by RecordService.
type Record interface {
	entity.Validatable
	Base() *entity.BaseEntity
}

// RecordService provides create/update/soft-delete for simple catalogs
// (partners, expenses). Entity-specific rules plug in through hooks.
type RecordService[T Record, F any] struct {
	repo       RecordRepository[T, F]
	txManager  tx.Manager
	hooks      *HookRegistry[T]
	entityName string
}

// NewRecordService creates a new record service.
func NewRecordService[T Record, F any](repo RecordRepository[T, F], txManager tx.Manager, entityName string) *RecordService[T, F] {
	return &RecordService[T, F]{
		repo:       repo,
		txManager:  txManager,
		hooks:      NewHookRegistry[T](),
		entityName: entityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *RecordService[T, F]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *RecordService[T, F]) normalizeValidationErr(err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *RecordService[T, F]) normalizeGetErr(err error, recordID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, recordID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", recordID.String())
}

// Create validates and inserts a new record.
func (s *RecordService[T, F]) Create(ctx context.Context, record T) error {
	if err := record.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeCreate, record); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, record); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterCreate, record); err != nil {
		logger.Warn(ctx, "after-create hook failed", "entity", s.entityName, "error", err)
	}
	logger.Info(ctx, s.entityName+" created", "id", record.Base().ID)
	return nil
}

// GetByID retrieves a record by ID.
func (s *RecordService[T, F]) GetByID(ctx context.Context, recordID id.ID) (T, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return record, s.normalizeGetErr(err, recordID)
	}
	return record, nil
}

// Update validates and stores a record. The caller supplies the version it
// read; a stale version yields CONCURRENT_MODIFICATION.
func (s *RecordService[T, F]) Update(ctx context.Context, record T) error {
	if err := record.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, record.Base().ID)
		if err != nil {
			return s.normalizeGetErr(err, record.Base().ID)
		}
		if current.Base().IsDeleted() {
			return apperror.NewNotFound(s.entityName, record.Base().ID.String())
		}
		base := record.Base()
		base.CreatedAt = current.Base().CreatedAt
		base.Status = current.Base().Status

		if err := s.hooks.Run(ctx, BeforeUpdate, record); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, record); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterUpdate, record); err != nil {
		logger.Warn(ctx, "after-update hook failed", "entity", s.entityName, "error", err)
	}
	return nil
}

// Delete soft-deletes a record.
func (s *RecordService[T, F]) Delete(ctx context.Context, recordID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		record, err := s.repo.GetByID(ctx, recordID)
		if err != nil {
			return s.normalizeGetErr(err, recordID)
		}
		if record.Base().IsDeleted() {
			return nil
		}
		if err := s.hooks.Run(ctx, BeforeDelete, record); err != nil {
			return err
		}
		record.Base().MarkDeleted()
		if err := s.repo.Update(ctx, record); err != nil {
			return fmt.Errorf("delete %s: %w", s.entityName, err)
		}
		return nil
	})
}

// List retrieves records with filtering.
func (s *RecordService[T, F]) List(ctx context.Context, filter F) (ListResult[T], error) {
	return s.repo.List(ctx, filter)
}
