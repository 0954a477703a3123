package memory

import (
	"context"
	"sync"
	"time"

	"bloomledger/internal/core/numerator"
)

var _ numerator.Generator = (*Numerator)(nil)

// Numerator issues sequential numbers from process memory.
type Numerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewNumerator creates an empty numerator.
func NewNumerator() *Numerator {
	return &Numerator{counters: make(map[string]int64)}
}

func (n *Numerator) GetNextNumber(_ context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := numerator.SequenceKey(cfg, period)
	n.mu.Lock()
	n.counters[key]++
	next := n.counters[key]
	n.mu.Unlock()
	return numerator.Format(cfg, period, next), nil
}

func (n *Numerator) SetNextNumber(_ context.Context, cfg numerator.Config, period time.Time, value int64) error {
	n.mu.Lock()
	n.counters[numerator.SequenceKey(cfg, period)] = value
	n.mu.Unlock()
	return nil
}
