package stockledger

import (
	"context"

	"bloomledger/internal/domain"
)

// HistoryRepository stores stock history. Entries are append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry *Entry) error
	// List returns entries newest first.
	List(ctx context.Context, filter HistoryFilter) (domain.ListResult[*Entry], error)
}
