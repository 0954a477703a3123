// Package memory provides an in-memory document store with optimistic
// multi-document transactions, and repositories on top of it. It backs the
// "memory" storage driver and the domain tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bloomledger/internal/core/tx"
)

// Table names.
const (
	tableItems     = "items"
	tableItemKeys  = "item_keys"
	tableHistory   = "stock_history"
	tableCustomers = "customers"
	tableContacts  = "customer_contacts"
	tablePoints    = "point_history"
	tableOrders    = "orders"
	tablePartners  = "partners"
	tableExpenses  = "expenses"
	tableAudit     = "audit"
)

type rowKey struct {
	table string
	key   string
}

type row struct {
	version uint64
	value   any
}

// Store holds committed documents. Every committed write gets a fresh
// version from a global counter, so an absent row (version 0) never
// collides with a present one.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]row
	clock  uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]map[string]row)}
}

func (s *Store) committed(table, key string) (row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tables[table][key]
	return r, ok
}

func (s *Store) scanCommitted(table string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.tables[table]))
	for k, r := range s.tables[table] {
		out[k] = r.value
	}
	return out
}

// txn is an optimistic transaction: reads record the version they saw,
// writes are buffered, and commit validates the read set.
type txn struct {
	store  *Store
	reads  map[rowKey]uint64
	writes map[rowKey]*pending
	order  []rowKey
}

type pending struct {
	value   any
	deleted bool
}

func newTxn(s *Store) *txn {
	return &txn{
		store:  s,
		reads:  make(map[rowKey]uint64),
		writes: make(map[rowKey]*pending),
	}
}

type txnKey struct{}

func txnFrom(ctx context.Context) *txn {
	t, _ := ctx.Value(txnKey{}).(*txn)
	return t
}

// get returns the row as this transaction sees it. The first read of a key
// pins its version for commit-time validation.
func (t *txn) get(table, key string) (any, bool) {
	k := rowKey{table, key}
	if p, ok := t.writes[k]; ok {
		if p.deleted {
			return nil, false
		}
		return p.value, true
	}
	r, ok := t.store.committed(table, key)
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = r.version
	}
	if !ok {
		return nil, false
	}
	return r.value, true
}

func (t *txn) put(table, key string, value any) {
	t.stage(rowKey{table, key}, &pending{value: value})
}

func (t *txn) delete(table, key string) {
	t.stage(rowKey{table, key}, &pending{deleted: true})
}

func (t *txn) stage(k rowKey, p *pending) {
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = p
}

// scan merges committed rows with this transaction's pending writes.
// Scans do not join the read set; uniqueness is enforced through index rows.
func (t *txn) scan(table string) map[string]any {
	out := t.store.scanCommitted(table)
	for _, k := range t.order {
		if k.table != table {
			continue
		}
		if p := t.writes[k]; p.deleted {
			delete(out, k.key)
		} else {
			out[k.key] = p.value
		}
	}
	return out
}

// commit applies the buffered writes if no row in the read set changed
// since it was read. First committer wins.
func (t *txn) commit() error {
	if len(t.writes) == 0 {
		return nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range t.reads {
		if s.tables[k.table][k.key].version != seen {
			return fmt.Errorf("%w: %s/%s changed", tx.ErrConflict, k.table, k.key)
		}
	}
	for _, k := range t.order {
		p := t.writes[k]
		if p.deleted {
			delete(s.tables[k.table], k.key)
			continue
		}
		tbl, ok := s.tables[k.table]
		if !ok {
			tbl = make(map[string]row)
			s.tables[k.table] = tbl
		}
		s.clock++
		tbl[k.key] = row{version: s.clock, value: p.value}
	}
	return nil
}

// read returns a row inside or outside a transaction.
func (s *Store) read(ctx context.Context, table, key string) (any, bool) {
	if t := txnFrom(ctx); t != nil {
		return t.get(table, key)
	}
	r, ok := s.committed(table, key)
	return r.value, ok
}

// scan returns all rows of table sorted by key.
func (s *Store) scan(ctx context.Context, table string) []any {
	var m map[string]any
	if t := txnFrom(ctx); t != nil {
		m = t.scan(table)
	} else {
		m = s.scanCommitted(table)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// write runs fn in the caller's transaction, or in a single-shot one that
// commits immediately. A conflict in the single-shot case is returned as is.
func (s *Store) write(ctx context.Context, fn func(t *txn) error) error {
	if t := txnFrom(ctx); t != nil {
		return fn(t)
	}
	t := newTxn(s)
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// Len returns the number of committed rows in table.
func (s *Store) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}
