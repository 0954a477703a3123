package memory

import (
	"time"

	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/partner"
)

// Backend bundles a store with its transaction manager and repositories.
type Backend struct {
	Store       *Store
	TxManager   *TxManager
	Items       *ItemRepo
	History     *HistoryRepo
	Customers   *CustomerRepo
	Orders      *OrderRepo
	Partners    *RecordRepo[*partner.Partner, partner.Filter]
	Expenses    *RecordRepo[*expense.Expense, expense.Filter]
	Numerator   *Numerator
	Audit       *AuditSink
	Idempotency *IdempotencyStore
}

// NewBackend creates an empty in-memory backend.
func NewBackend(maxAttempts int, observer ConflictObserver, idempotencyTTL time.Duration) *Backend {
	store := NewStore()
	return &Backend{
		Store:       store,
		TxManager:   NewTxManager(store, maxAttempts, observer),
		Items:       NewItemRepo(store),
		History:     NewHistoryRepo(store),
		Customers:   NewCustomerRepo(store),
		Orders:      NewOrderRepo(store),
		Partners:    NewPartnerRepo(store),
		Expenses:    NewExpenseRepo(store),
		Numerator:   NewNumerator(),
		Audit:       NewAuditSink(store),
		Idempotency: NewIdempotencyStore(idempotencyTTL),
	}
}
