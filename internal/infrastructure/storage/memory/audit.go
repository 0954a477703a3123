package memory

import (
	"context"

	"bloomledger/internal/core/id"
	"bloomledger/internal/infrastructure/audit"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink stores audit entries in the document store.
type AuditSink struct {
	store *Store
}

// NewAuditSink creates an audit sink.
func NewAuditSink(store *Store) *AuditSink {
	return &AuditSink{store: store}
}

func (s *AuditSink) Insert(ctx context.Context, entry audit.Entry) error {
	return s.store.write(ctx, func(t *txn) error {
		t.put(tableAudit, entry.ID.String(), entry)
		return nil
	})
}

func (s *AuditSink) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, v := range s.store.scan(ctx, tableAudit) {
		e := v.(audit.Entry)
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	sortRows(out, "", "-created_at", orderings[audit.Entry]{
		"created_at": func(a, b audit.Entry) int { return a.CreatedAt.Compare(b.CreatedAt) },
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
