package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bloomledger/internal/infrastructure/idempotency"
	"bloomledger/pkg/logger"
)

type countingStore struct {
	idempotency.Store
	calls atomic.Int32
	err   error
}

func (s *countingStore) CleanupExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return 3, s.err
}

func TestWorker_CleansOnStartAndTick(t *testing.T) {
	store := &countingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(store, 20*time.Millisecond, logger.NewNop()).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestWorker_SurvivesErrors(t *testing.T) {
	store := &countingStore{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(store, 10*time.Millisecond, logger.NewNop()).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
