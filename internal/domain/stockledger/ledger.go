package stockledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/id"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
)

// Metrics receives ledger events. A nil Metrics is allowed.
type Metrics interface {
	ObserveStockMovement(direction string, quantity int64)
}

// Ledger is the only writer of item stock levels.
type Ledger struct {
	items     item.Repository
	history   HistoryRepository
	txManager tx.Manager
	metrics   Metrics
	now       func() time.Time
}

// NewLedger creates a new stock ledger.
func NewLedger(items item.Repository, history HistoryRepository, txManager tx.Manager, metrics Metrics) *Ledger {
	return &Ledger{
		items:     items,
		history:   history,
		txManager: txManager,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply moves stock of it and appends the matching history entry.
// It joins the caller's transaction; it must have been loaded for update
// within that transaction. On success it reflects the new stock level.
func (l *Ledger) Apply(ctx context.Context, it *item.Item, m Movement) (*Entry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var entry *Entry
	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		from := it.Stock
		var to, qty int64
		switch m.Direction {
		case DirectionIn:
			if m.Quantity > math.MaxInt64-from {
				return apperror.NewInvalidInput("quantity", "stock would exceed the maximum level").
					WithDetail("code", it.Code).WithDetail("stock", from)
			}
			to = from + m.Quantity
			qty = m.Quantity
		case DirectionOut:
			if from < m.Quantity {
				return apperror.NewInsufficientStock(it.Code, it.Name, m.Quantity, from)
			}
			to = from - m.Quantity
			qty = m.Quantity
		case DirectionManual:
			to = m.Quantity
			qty = to - from
		}

		updated := it.Clone()
		updated.Stock = to
		if m.Direction == DirectionIn && m.RefreshCatalog {
			if m.UnitPrice != nil {
				updated.Price = *m.UnitPrice
			}
			if m.Supplier != nil && strings.TrimSpace(*m.Supplier) != "" {
				updated.Supplier = strings.TrimSpace(*m.Supplier)
			}
		}
		if err := l.items.Update(ctx, updated); err != nil {
			return fmt.Errorf("update stock of %s: %w", it.Key(), err)
		}

		e := &Entry{
			ID:        id.New(),
			CreatedAt: l.now(),
			Direction: m.Direction,
			ItemKind:  it.Kind,
			ItemID:    it.ID,
			ItemCode:  it.Code,
			ItemName:  it.Name,
			Branch:    it.Branch,
			Quantity:  qty,
			FromStock: from,
			ToStock:   to,
			Operator:  m.Operator,
			Reason:    m.Reason,
			Reference: m.Reference,
		}
		if m.UnitPrice != nil {
			price := *m.UnitPrice
			total := price.Mul(types.MoneyFromInt(abs(qty)))
			e.UnitPrice = &price
			e.TotalAmount = &total
		}
		if err := l.history.Append(ctx, e); err != nil {
			return fmt.Errorf("append stock history: %w", err)
		}

		*it = *updated
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.ObserveStockMovement(string(entry.Direction), abs(entry.Quantity))
	}
	return entry, nil
}

// Receive implements item.StockWriter.
func (l *Ledger) Receive(ctx context.Context, it *item.Item, quantity int64, operator, reason string) error {
	_, err := l.Apply(ctx, it, Movement{
		Direction: DirectionIn,
		Quantity:  quantity,
		Operator:  operator,
		Reason:    reason,
	})
	return err
}

// SetLevel implements item.StockWriter.
func (l *Ledger) SetLevel(ctx context.Context, it *item.Item, level int64, operator, reason string) error {
	_, err := l.Apply(ctx, it, Movement{
		Direction: DirectionManual,
		Quantity:  level,
		Operator:  operator,
		Reason:    reason,
	})
	return err
}

// History lists stock history entries, newest first.
func (l *Ledger) History(ctx context.Context, filter HistoryFilter) (domain.ListResult[*Entry], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return l.history.List(ctx, filter)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
