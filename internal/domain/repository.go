// Package domain provides shared repository contracts and the generic record
// service used by the simple CRUD catalogs.
package domain

import (
	"context"

	"bloomledger/internal/core/entity"
	"bloomledger/internal/core/id"
)

// --- Filter & Pagination ---

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches name-like fields case-insensitively
	Search string

	// IncludeDeleted includes soft-deleted records
	IncludeDeleted bool

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// Normalize clamps pagination to supported bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Page applies Offset/Limit to an already filtered slice.
func Page[T any](all []T, f ListFilter) ListResult[T] {
	f = f.Normalize()
	total := len(all)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	items := make([]T, 0, end-start)
	items = append(items, all[start:end]...)
	return ListResult[T]{
		Items:      items,
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Repository Interfaces ---

// RecordRepository defines CRUD operations for simple catalog records.
type RecordRepository[T entity.Validatable, F any] interface {
	// Create inserts a new record
	Create(ctx context.Context, record T) error

	// GetByID retrieves a record by ID, including soft-deleted ones
	GetByID(ctx context.Context, id id.ID) (T, error)

	// Update modifies an existing record (with optimistic locking)
	Update(ctx context.Context, record T) error

	// List retrieves records with filtering and pagination
	List(ctx context.Context, filter F) (ListResult[T], error)
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
