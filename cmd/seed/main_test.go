package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/storage"
)

func TestSeedCatalog_IsRerunnable(t *testing.T) {
	backend := storage.NewMemory(3, nil, time.Hour)
	services, err := app.New(backend, config.LoyaltyConfig{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := seedCatalog(ctx, services, []string{"Gangnam", "Hongdae"})
	require.NoError(t, err)
	assert.Equal(t, 2*len(demoCatalog), n)

	n, err = seedCatalog(ctx, services, []string{"Gangnam"})
	require.NoError(t, err)
	assert.Zero(t, n)

	rose, err := services.Items.GetByKey(ctx, item.Key{Kind: item.KindProduct, Code: "BQ-ROSE-12", Branch: "Gangnam"})
	require.NoError(t, err)
	assert.EqualValues(t, 20, rose.Stock)

	history, err := services.Ledger.History(ctx, stockledger.HistoryFilter{ItemCode: "BQ-ROSE-12", Branch: "Gangnam"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, history.TotalCount)

	require.NoError(t, seedPartners(ctx, services))
	require.NoError(t, seedPartners(ctx, services))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Equal(t, []string{"main"}, splitList(""))
}
