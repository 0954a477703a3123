package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/order"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/storage"
	"bloomledger/internal/infrastructure/storage/postgres"
)

const branch = "Gangnam"

func openPostgres(t *testing.T) *storage.Backend {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bloomledger_test"),
		tcpostgres.WithUsername("bloom"),
		tcpostgres.WithPassword("bloom"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	backend, err := storage.Open(ctx, config.Config{
		Storage: config.StorageConfig{
			Driver:         "postgres",
			DSN:            dsn,
			MaxConns:       20,
			TxRetries:      10,
			MigrateOnStart: true,
		},
		Idempotency: config.IdempotencyConfig{TTL: time.Hour},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(backend.Close)
	return backend
}

func TestPostgres_OrderLifecycle(t *testing.T) {
	backend := openPostgres(t)
	ctx := context.Background()

	version, err := postgres.MigrationStatus(ctx, backend.Pool)
	require.NoError(t, err)
	assert.Positive(t, version)

	services, err := app.New(backend, config.LoyaltyConfig{}, nil)
	require.NoError(t, err)

	rose := item.New(item.KindProduct, "R001", branch, "Red rose bouquet")
	rose.Price = types.MustMoney("25000")
	rose.Stock = 5
	require.NoError(t, services.Items.Create(ctx, "kim", rose))

	placed, err := services.Orders.PlaceOrder(ctx, "kim", order.PlaceOrderInput{
		BranchName:       branch,
		Lines:            []order.LineInput{{ItemCode: "R001", Quantity: 2}},
		Orderer:          order.Orderer{Name: "Lee", Contact: "010-1234-5678"},
		RegisterCustomer: true,
	})
	require.NoError(t, err)
	assert.True(t, placed.Summary.Total.Equal(types.MustMoney("50000")))
	assert.NotEmpty(t, placed.Number)

	stored, err := services.Orders.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "Lee", stored.Orderer.Name)

	got, err := services.Items.GetByID(ctx, rose.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Stock)

	cust, err := services.Customers.FindByContact(ctx, "01012345678")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, cust.Points)
	assert.EqualValues(t, 1, cust.OrderCount)

	_, err = services.Orders.PlaceOrder(ctx, "kim", order.PlaceOrderInput{
		BranchName: branch,
		Lines:      []order.LineInput{{ItemCode: "R001", Quantity: 10}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = services.Orders.CancelOrder(ctx, "kim", placed.ID, "changed mind")
	require.NoError(t, err)

	got, err = services.Items.GetByID(ctx, rose.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.Stock)

	cust, err = services.Customers.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	assert.Zero(t, cust.Points)

	history, err := services.Ledger.History(ctx, stockledger.HistoryFilter{ItemCode: "R001"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, history.TotalCount, "initial stock, sale and restock")

	points, err := services.Customers.PointHistory(ctx, cust.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, points.TotalCount)
}

func TestPostgres_ConcurrentOrdersNeverOversell(t *testing.T) {
	backend := openPostgres(t)
	ctx := context.Background()
	services, err := app.New(backend, config.LoyaltyConfig{}, nil)
	require.NoError(t, err)

	tulip := item.New(item.KindProduct, "T001", branch, "Tulip bouquet")
	tulip.Price = types.MustMoney("30000")
	tulip.Stock = 5
	require.NoError(t, services.Items.Create(ctx, "kim", tulip))

	const buyers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := services.Orders.PlaceOrder(ctx, "kim", order.PlaceOrderInput{
				BranchName: branch,
				Lines:      []order.LineInput{{ItemCode: "T001", Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case apperror.HasCode(err, apperror.CodeInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, buyers-5, rejected)

	got, err := services.Items.GetByID(ctx, tulip.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)

	orders, err := services.Orders.List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, orders.TotalCount)
}

func TestPostgres_IdempotencyStore(t *testing.T) {
	backend := openPostgres(t)
	ctx := context.Background()
	store := backend.Idempotency

	replay, err := store.AcquireKey(ctx, "k1", "kim", "POST /api/v1/orders", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.AcquireKey(ctx, "k1", "kim", "POST /api/v1/orders", "h1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))

	require.NoError(t, store.CompleteKey(ctx, "k1", 201, "application/json", map[string]string{"id": "x"}))
	replay, err = store.AcquireKey(ctx, "k1", "kim", "POST /api/v1/orders", "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.JSONEq(t, `{"id":"x"}`, string(replay.Body))

	_, err = store.AcquireKey(ctx, "k1", "kim", "POST /api/v1/orders", "other")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
