package expense_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/numerator"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/infrastructure/storage/memory"
)

func TestService_NumbersAndKeepsAuthor(t *testing.T) {
	b := memory.NewBackend(5, nil, time.Hour)
	svc := expense.NewService(b.Expenses, b.TxManager, b.Numerator)
	ctx := context.Background()
	day := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)

	first := expense.New("Seoul", "flowers", types.MustMoney("120000"), day)
	require.NoError(t, svc.Create(ctx, "owner@shop.test", first))
	second := expense.New("Seoul", "rent", types.MustMoney("900000"), day.AddDate(0, 0, 1))
	require.NoError(t, svc.Create(ctx, "owner@shop.test", second))
	assert.Equal(t, "EXP-2026-00001", first.Number)
	assert.Equal(t, "EXP-2026-00002", second.Number)

	edit := first.Clone()
	edit.Number = "EXP-9999-99999"
	edit.CreatedBy = "intruder"
	edit.Description = "spring tulips"
	require.NoError(t, svc.Update(ctx, edit))

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "EXP-2026-00001", got.Number)
	assert.Equal(t, "owner@shop.test", got.CreatedBy)
	assert.Equal(t, "spring tulips", got.Description)

	from := day.AddDate(0, 0, 1)
	res, err := svc.List(ctx, expense.Filter{Branch: "Seoul", From: &from})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, second.ID, res.Items[0].ID)
}

func TestService_RejectsNonPositiveAmount(t *testing.T) {
	b := memory.NewBackend(5, nil, time.Hour)
	svc := expense.NewService(b.Expenses, b.TxManager, b.Numerator)

	for _, amount := range []string{"0", "-10"} {
		err := svc.Create(context.Background(), "x", expense.New("Seoul", "misc", types.MustMoney(amount), time.Now()))
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput), amount)
	}
}

func TestService_NumberingFailure(t *testing.T) {
	b := memory.NewBackend(5, nil, time.Hour)
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(context.Context, numerator.Config, *numerator.Options, time.Time) (string, error) {
			return "", errors.New("sequence unavailable")
		},
	}
	svc := expense.NewService(b.Expenses, b.TxManager, gen)

	err := svc.Create(context.Background(), "x", expense.New("Seoul", "misc", types.MustMoney("10"), time.Now()))
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))

	res, err := svc.List(context.Background(), expense.Filter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
}
