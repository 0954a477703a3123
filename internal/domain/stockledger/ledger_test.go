package stockledger_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/storage/memory"
)

const operator = "stock@shop.test"

type countingMetrics struct {
	moves map[string]int64
}

func (m *countingMetrics) ObserveStockMovement(direction string, quantity int64) {
	m.moves[direction] += quantity
}

type fixture struct {
	backend *memory.Backend
	ledger  *stockledger.Ledger
	items   *item.Service
	metrics *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := memory.NewBackend(5, nil, time.Hour)
	metrics := &countingMetrics{moves: map[string]int64{}}
	ledger := stockledger.NewLedger(b.Items, b.History, b.TxManager, metrics)
	return &fixture{
		backend: b,
		ledger:  ledger,
		items:   item.NewService(b.Items, ledger, b.TxManager),
		metrics: metrics,
	}
}

func (f *fixture) seed(t *testing.T, kind item.Kind, code string, stock int64, price string) *item.Item {
	t.Helper()
	it := item.New(kind, code, "Seoul", "Item "+code)
	it.Price = types.MustMoney(price)
	it.Supplier = "Old Farm"
	it.Stock = stock
	require.NoError(t, f.items.Create(context.Background(), operator, it))
	return it
}

// apply runs one movement the way callers do: load for update, then Apply,
// inside one transaction.
func (f *fixture) apply(t *testing.T, key item.Key, m stockledger.Movement) (*stockledger.Entry, error) {
	t.Helper()
	var entry *stockledger.Entry
	err := f.backend.TxManager.RunInTransaction(context.Background(), func(ctx context.Context) error {
		it, err := f.backend.Items.GetByKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		entry, err = f.ledger.Apply(ctx, it, m)
		return err
	})
	return entry, err
}

func (f *fixture) stock(t *testing.T, key item.Key) int64 {
	t.Helper()
	it, err := f.items.GetByKey(context.Background(), key)
	require.NoError(t, err)
	return it.Stock
}

func TestApply_Directions(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindProduct, "M00001", 5, "1000")
	key := it.Key()

	price := types.MustMoney("1200")
	supplier := "New Farm"
	in, err := f.apply(t, key, stockledger.Movement{
		Direction: stockledger.DirectionIn, Quantity: 3,
		UnitPrice: &price, Supplier: &supplier, RefreshCatalog: true,
		Operator: operator, Reason: "delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), in.FromStock)
	assert.Equal(t, int64(8), in.ToStock)
	assert.True(t, in.TotalAmount.Equal(types.MustMoney("3600")))

	got, err := f.items.GetByKey(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, "New Farm", got.Supplier)

	_, err = f.apply(t, key, stockledger.Movement{Direction: stockledger.DirectionOut, Quantity: 9, Operator: operator})
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(8), f.stock(t, key))

	manual, err := f.apply(t, key, stockledger.Movement{Direction: stockledger.DirectionManual, Quantity: 2, Operator: operator})
	require.NoError(t, err)
	assert.Equal(t, int64(-6), manual.Quantity)
	assert.Equal(t, int64(-6), manual.SignedQuantity())
	assert.True(t, manual.Consistent())
	assert.Equal(t, int64(2), f.stock(t, key))

	out, err := f.apply(t, key, stockledger.Movement{Direction: stockledger.DirectionOut, Quantity: 2, Operator: operator})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), out.SignedQuantity())
	assert.Equal(t, int64(0), f.stock(t, key))

	assert.Equal(t, int64(5+3), f.metrics.moves["in"])
	assert.Equal(t, int64(2), f.metrics.moves["out"])
	assert.Equal(t, int64(6), f.metrics.moves["manual_update"])
}

func TestApply_RejectsMalformedMovement(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindMaterial, "R001", 5, "100")

	tests := []stockledger.Movement{
		{Direction: "sideways", Quantity: 1},
		{Direction: stockledger.DirectionIn, Quantity: 0},
		{Direction: stockledger.DirectionOut, Quantity: -1},
		{Direction: stockledger.DirectionManual, Quantity: -1},
	}
	for _, m := range tests {
		_, err := f.apply(t, it.Key(), m)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput), "%+v", m)
	}
	assert.Equal(t, int64(5), f.stock(t, it.Key()))
}

func TestAdjustStock_PartialFailure(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, item.KindProduct, "A", 5, "1000")
	b := f.seed(t, item.KindProduct, "B", 1, "2000")

	report, err := f.ledger.AdjustStock(context.Background(), stockledger.AdjustRequest{
		Kind:      item.KindProduct,
		Direction: stockledger.DirectionOut,
		Branch:    "Seoul",
		Lines: []stockledger.AdjustLine{
			{Code: "A", Quantity: 2},
			{Code: "B", Quantity: 3},
			{Code: "C", Quantity: 1},
		},
		Operator: operator,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Results, 3)

	assert.True(t, report.Results[0].OK)
	assert.True(t, report.Results[0].Entry.TotalAmount.Equal(types.MustMoney("2000")))
	assert.Equal(t, "stock_adjustment", report.Results[0].Entry.Reason)
	assert.Equal(t, apperror.CodeInsufficientStock, report.Results[1].ErrorCode)
	assert.Equal(t, apperror.CodeItemNotFound, report.Results[2].ErrorCode)
	assert.True(t, apperror.HasCode(report.Err(), apperror.CodePartialBatch))

	assert.Equal(t, int64(3), f.stock(t, a.Key()))
	assert.Equal(t, int64(1), f.stock(t, b.Key()))

	res, err := f.ledger.History(context.Background(), stockledger.HistoryFilter{Direction: stockledger.DirectionOut})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "A", res.Items[0].ItemCode)
}

func TestAdjustStock_InboundRefreshesCatalog(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindMaterial, "R001", 0, "500")

	price := types.MustMoney("650")
	supplier := "Valley Greens"
	report, err := f.ledger.AdjustStock(context.Background(), stockledger.AdjustRequest{
		Kind:      item.KindMaterial,
		Direction: stockledger.DirectionIn,
		Branch:    "Seoul",
		Lines:     []stockledger.AdjustLine{{Code: "R001", Quantity: 40, UnitPrice: &price, Supplier: &supplier}},
		Operator:  operator,
		Reason:    "weekly delivery",
	})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	got, err := f.items.GetByKey(context.Background(), it.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Stock)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, "Valley Greens", got.Supplier)
	assert.Equal(t, "weekly delivery", report.Results[0].Entry.Reason)
	assert.True(t, report.Results[0].Entry.TotalAmount.Equal(types.MustMoney("26000")))
}

func TestAdjustStock_ManualSetsLevel(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindProduct, "M1", 7, "100")

	report, err := f.ledger.AdjustStock(context.Background(), stockledger.AdjustRequest{
		Kind:      item.KindProduct,
		Direction: stockledger.DirectionManual,
		Branch:    "Seoul",
		Lines:     []stockledger.AdjustLine{{Code: "M1", Quantity: 10}, {Code: "M1", Quantity: -1}},
		Operator:  operator,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, apperror.CodeInvalidInput, report.Results[1].ErrorCode)
	assert.Equal(t, int64(3), report.Results[0].Entry.Quantity)
	assert.Nil(t, report.Results[0].Entry.UnitPrice)
	assert.Equal(t, int64(10), f.stock(t, it.Key()))
}

func TestAdjustStock_InboundOverflowRejected(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindProduct, "M1", 5, "100")

	report, err := f.ledger.AdjustStock(context.Background(), stockledger.AdjustRequest{
		Kind:      item.KindProduct,
		Direction: stockledger.DirectionIn,
		Branch:    "Seoul",
		Lines:     []stockledger.AdjustLine{{Code: "M1", Quantity: math.MaxInt64}, {Code: "M1", Quantity: math.MaxInt64 - 5}},
		Operator:  operator,
	})
	require.NoError(t, err)
	assert.False(t, report.Results[0].OK)
	assert.Equal(t, apperror.CodeInvalidInput, report.Results[0].ErrorCode)
	assert.True(t, report.Results[1].OK)
	assert.Equal(t, int64(math.MaxInt64), f.stock(t, it.Key()))

	_, err = f.apply(t, it.Key(), stockledger.Movement{Direction: stockledger.DirectionIn, Quantity: 1, Operator: operator})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
	assert.Equal(t, int64(math.MaxInt64), f.stock(t, it.Key()))
}

func TestAdjustStock_RejectsBadRequest(t *testing.T) {
	f := newFixture(t)
	tests := []stockledger.AdjustRequest{
		{Kind: "tree", Direction: stockledger.DirectionIn, Branch: "Seoul", Lines: []stockledger.AdjustLine{{Code: "A", Quantity: 1}}},
		{Kind: item.KindProduct, Direction: "up", Branch: "Seoul", Lines: []stockledger.AdjustLine{{Code: "A", Quantity: 1}}},
		{Kind: item.KindProduct, Direction: stockledger.DirectionIn, Lines: []stockledger.AdjustLine{{Code: "A", Quantity: 1}}},
		{Kind: item.KindProduct, Direction: stockledger.DirectionIn, Branch: "Seoul"},
	}
	for _, req := range tests {
		_, err := f.ledger.AdjustStock(context.Background(), req)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
	}
}

func TestHistory_ReplaysToCurrentStock(t *testing.T) {
	f := newFixture(t)
	it := f.seed(t, item.KindProduct, "M9", 4, "100")
	key := it.Key()

	moves := []stockledger.Movement{
		{Direction: stockledger.DirectionIn, Quantity: 6},
		{Direction: stockledger.DirectionOut, Quantity: 3},
		{Direction: stockledger.DirectionManual, Quantity: 20},
		{Direction: stockledger.DirectionOut, Quantity: 25},
		{Direction: stockledger.DirectionManual, Quantity: 0},
		{Direction: stockledger.DirectionIn, Quantity: 1},
	}
	for _, m := range moves {
		m.Operator = operator
		_, _ = f.apply(t, key, m)
	}

	itemID := it.ID
	res, err := f.ledger.History(context.Background(), stockledger.HistoryFilter{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, res.Items, 6, "initial stock plus five successful movements")

	var sum int64
	for i, e := range res.Items {
		assert.True(t, e.Consistent())
		sum += e.SignedQuantity()
		if i > 0 {
			assert.Equal(t, e.ToStock, res.Items[i-1].FromStock, "newest first and chained")
		}
	}
	assert.Equal(t, f.stock(t, key), sum)
	assert.Equal(t, int64(1), sum)
}
