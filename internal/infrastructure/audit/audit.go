// Package audit records before/after diffs of edited entities. Large diffs
// are stored zstd-compressed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/klauspost/compress/zstd"

	"bloomledger/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the diff size above which changes are compressed.
const DefaultCompressThreshold = 10 * 1024

// Entry represents a single audit log entry.
type Entry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            Action          `db:"action"`
	Operator          string          `db:"operator"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Sink persists audit entries.
type Sink interface {
	Insert(ctx context.Context, entry Entry) error
	// History returns entries of one entity, newest first.
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Service provides audit logging over a Sink.
type Service struct {
	sink              Sink
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewService creates an audit service. threshold <= 0 selects
// DefaultCompressThreshold.
func NewService(sink Sink, threshold int) (*Service, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &Service{
		sink:              sink,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Log records an audit entry, compressing large changes.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
	return s.sink.Insert(ctx, entry)
}

// LogChange diffs two snapshots of an entity and records the changed fields.
// Nothing is written when the snapshots are equal.
func (s *Service) LogChange(ctx context.Context, entityType string, entityID id.ID, action, operator string, before, after any) error {
	oldState, err := toMap(before)
	if err != nil {
		return err
	}
	newState, err := toMap(after)
	if err != nil {
		return err
	}
	changes := Diff(oldState, newState)
	if len(changes) == 0 {
		return nil
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return s.Log(ctx, Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     Action(action),
		Operator:   operator,
		Changes:    changesJSON,
	})
}

// History retrieves the decompressed audit history of an entity.
func (s *Service) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error) {
	entries, err := s.sink.History(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		if e.CompressionAlgo == CompressionZstd && len(e.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
			e.ChangesCompressed = nil
		}
	}
	return entries, nil
}

func toMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return m, nil
}

// Diff calculates the difference between old and new entity states.
// Version and update timestamps are bookkeeping and are ignored.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		if ignored[key] {
			continue
		}
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if ignored[key] {
			continue
		}
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}

var ignored = map[string]bool{"version": true, "updatedAt": true}
