package memory

import (
	"context"

	"bloomledger/internal/domain"
	"bloomledger/internal/domain/stockledger"
)

var _ stockledger.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo stores stock history entries.
type HistoryRepo struct {
	store *Store
}

// NewHistoryRepo creates a history repository.
func NewHistoryRepo(store *Store) *HistoryRepo {
	return &HistoryRepo{store: store}
}

func cloneEntry(e *stockledger.Entry) *stockledger.Entry {
	c := *e
	return &c
}

func (r *HistoryRepo) Append(ctx context.Context, entry *stockledger.Entry) error {
	return r.store.write(ctx, func(t *txn) error {
		t.put(tableHistory, entry.ID.String(), cloneEntry(entry))
		return nil
	})
}

var historyOrderings = orderings[*stockledger.Entry]{
	"created_at": func(a, b *stockledger.Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		// UUIDv7 ids break ties in insertion order.
		return compareIDs(a.ID[:], b.ID[:])
	},
}

func (r *HistoryRepo) List(ctx context.Context, filter stockledger.HistoryFilter) (domain.ListResult[*stockledger.Entry], error) {
	rows := collect(r.store.scan(ctx, tableHistory), filter.Matches, cloneEntry)
	sortRows(rows, filter.OrderBy, "-created_at", historyOrderings)
	return page(rows, filter.ListFilter), nil
}

func compareIDs(a, b []byte) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
