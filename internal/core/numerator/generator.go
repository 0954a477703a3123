// Package numerator provides the contract for human-readable sequential
// numbers (orders, expenses). Implementations live in pkg/numerator (postgres)
// and storage/memory.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential numbers.
// Numbers are allocated outside business transactions, so a rolled back
// order leaves a gap rather than reusing its number.
type Generator interface {
	// GetNextNumber generates the next number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., ORD-2026-00001)
	//
	// Supports Strict (DB-level) and Cached (Memory-level) strategies.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next number value (for migration purposes).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
