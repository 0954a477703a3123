// Package entity provides base types shared by all stored entities.
package entity

import (
	"context"
	"time"

	"bloomledger/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Status is the lifecycle state of a record. Deleted records stay in storage
// and repositories filter them out unless asked otherwise.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusDeleted
}

// BaseEntity contains the fields every stored record carries.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	Status Status `db:"status" json:"status"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates an active BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		Status:    StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the version and the update timestamp.
func (b *BaseEntity) Touch() {
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}

// MarkDeleted switches the record to StatusDeleted.
func (b *BaseEntity) MarkDeleted() {
	b.Status = StatusDeleted
}

// Restore switches the record back to StatusActive.
func (b *BaseEntity) Restore() {
	b.Status = StatusActive
}

// IsDeleted reports whether the record is soft-deleted.
func (b *BaseEntity) IsDeleted() bool {
	return b.Status == StatusDeleted
}

// IsActive reports whether the record is visible to normal reads.
func (b *BaseEntity) IsActive() bool {
	return b.Status == "" || b.Status == StatusActive
}
