package postgres

import (
	"context"
	"fmt"

	"bloomledger/internal/core/id"
	"bloomledger/internal/infrastructure/audit"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink writes audit entries to sys_audit.
type AuditSink struct {
	txManager *TxManager
}

// NewAuditSink creates an audit sink.
func NewAuditSink(txManager *TxManager) *AuditSink {
	return &AuditSink{txManager: txManager}
}

// Insert stores one entry.
func (s *AuditSink) Insert(ctx context.Context, entry audit.Entry) error {
	var changes any
	if len(entry.Changes) > 0 {
		changes = []byte(entry.Changes)
	}
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, operator,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.Operator,
		changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns entries of one entity, newest first.
func (s *AuditSink) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, action, operator,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			changes []byte
		)
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Operator,
			&changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Changes = changes
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
