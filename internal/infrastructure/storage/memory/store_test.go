package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/tx"
)

func TestTxn_ReadYourWrites(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 3, nil)

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.write(ctx, func(tx *txn) error {
			tx.put("t", "a", 1)
			return nil
		}))
		v, ok := s.read(ctx, "t", "a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		_, committed := s.read(context.Background(), "t", "a")
		assert.False(t, committed, "pending writes are invisible outside the transaction")
		return nil
	})
	require.NoError(t, err)

	v, ok := s.read(context.Background(), "t", "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTxn_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 3, nil)
	boom := errors.New("boom")

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_ = s.write(ctx, func(tx *txn) error {
			tx.put("t", "a", 1)
			return nil
		})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len("t"))
}

func TestTxn_CommitDetectsStaleRead(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.write(context.Background(), func(tx *txn) error {
		tx.put("t", "a", 1)
		return nil
	}))

	first := newTxn(s)
	v, _ := first.get("t", "a")
	first.put("t", "a", v.(int)+1)

	second := newTxn(s)
	v, _ = second.get("t", "a")
	second.put("t", "a", v.(int)+10)

	require.NoError(t, second.commit())
	err := first.commit()
	assert.True(t, tx.IsConflict(err))

	v, _ = s.read(context.Background(), "t", "a")
	assert.Equal(t, 11, v)
}

func TestTxn_AbsentReadConflictsWithInsert(t *testing.T) {
	s := NewStore()

	first := newTxn(s)
	_, ok := first.get("idx", "contact")
	require.False(t, ok)
	first.put("idx", "contact", "first")

	second := newTxn(s)
	_, ok = second.get("idx", "contact")
	require.False(t, ok)
	second.put("idx", "contact", "second")

	require.NoError(t, first.commit())
	assert.True(t, tx.IsConflict(second.commit()))
}

func TestTxManager_RetriesOnConflict(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 3, nil)
	require.NoError(t, s.write(context.Background(), func(tx *txn) error {
		tx.put("t", "n", 0)
		return nil
	}))

	var attempts int
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		attempts++
		v, _ := s.read(ctx, "t", "n")
		if attempts == 1 {
			// A concurrent writer commits between our read and commit.
			require.NoError(t, s.write(context.Background(), func(tx *txn) error {
				tx.put("t", "n", 100)
				return nil
			}))
		}
		return s.write(ctx, func(tx *txn) error {
			tx.put("t", "n", v.(int)+1)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	v, _ := s.read(context.Background(), "t", "n")
	assert.Equal(t, 101, v)
}

type countingObserver struct{ n atomic.Int64 }

func (c *countingObserver) ObserveTxConflict(string) { c.n.Add(1) }

func TestTxManager_GivesUpAfterMaxAttempts(t *testing.T) {
	s := NewStore()
	obs := &countingObserver{}
	m := NewTxManager(s, 2, obs)

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, _ = s.read(ctx, "t", "n")
		require.NoError(t, s.write(context.Background(), func(tx *txn) error {
			tx.put("t", "n", 1)
			return nil
		}))
		return s.write(ctx, func(tx *txn) error {
			tx.put("t", "n", 2)
			return nil
		})
	})
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.True(t, tx.IsConflict(err))
	assert.Equal(t, int64(2), obs.n.Load())
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 3, nil)

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, m.InTransaction(ctx))
		return m.RunInTransaction(ctx, func(inner context.Context) error {
			return s.write(inner, func(tx *txn) error {
				tx.put("t", "a", 1)
				return nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len("t"))
}

func TestTxManager_ReadOnlyDiscardsWrites(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 3, nil)
	var inTx tx.InTransaction = m
	assert.False(t, inTx.InTransaction(context.Background()))

	err := m.ReadOnly(context.Background(), func(ctx context.Context) error {
		assert.True(t, inTx.InTransaction(ctx))
		return s.write(ctx, func(tx *txn) error {
			tx.put("t", "a", 1)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len("t"))
}

func TestTxManager_ConcurrentIncrementsAreSerialized(t *testing.T) {
	s := NewStore()
	m := NewTxManager(s, 1000, nil)
	require.NoError(t, s.write(context.Background(), func(tx *txn) error {
		tx.put("t", "n", 0)
		return nil
	}))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
				v, _ := s.read(ctx, "t", "n")
				return s.write(ctx, func(tx *txn) error {
					tx.put("t", "n", v.(int)+1)
					return nil
				})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, _ := s.read(context.Background(), "t", "n")
	assert.Equal(t, workers, v)
}
