package audit

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/id"
)

type sliceSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *sliceSink) Insert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *sliceSink) History(_ context.Context, entityType string, entityID id.ID, _ int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type snapshot struct {
	Memo    string `json:"memo"`
	Status  string `json:"status"`
	Version int    `json:"version"`
}

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]any{"memo": "a", "status": "processing", "gone": 1, "version": 1.0},
		map[string]any{"memo": "b", "status": "processing", "added": true, "version": 2.0},
	)
	assert.Len(t, changes, 3)
	assert.Equal(t, map[string]any{"old": "a", "new": "b"}, changes["memo"])
	assert.Contains(t, changes, "gone")
	assert.Contains(t, changes, "added")
	assert.NotContains(t, changes, "version")
}

func TestLogChange_SkipsEqualSnapshots(t *testing.T) {
	sink := &sliceSink{}
	svc, err := NewService(sink, 0)
	require.NoError(t, err)

	s := snapshot{Memo: "x", Status: "processing", Version: 1}
	after := s
	after.Version = 2
	require.NoError(t, svc.LogChange(context.Background(), "order", id.New(), "update", "kim", s, after))
	assert.Empty(t, sink.entries)
}

func TestLogChange_CompressesLargeDiffs(t *testing.T) {
	sink := &sliceSink{}
	svc, err := NewService(sink, 64)
	require.NoError(t, err)

	entityID := id.New()
	before := snapshot{Memo: "short", Status: "processing"}
	after := snapshot{Memo: strings.Repeat("roses ", 100), Status: "completed"}
	require.NoError(t, svc.LogChange(context.Background(), "order", entityID, "update", "kim", before, after))

	require.Len(t, sink.entries, 1)
	stored := sink.entries[0]
	assert.Equal(t, CompressionZstd, stored.CompressionAlgo)
	assert.Nil(t, stored.Changes)
	assert.NotEmpty(t, stored.ChangesCompressed)
	assert.Equal(t, "kim", stored.Operator)

	history, err := svc.History(context.Background(), "order", entityID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, string(history[0].Changes), "completed")
	assert.Nil(t, history[0].ChangesCompressed)
}
