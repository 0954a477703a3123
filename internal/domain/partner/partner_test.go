package partner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/infrastructure/storage/memory"
)

func TestService_Lifecycle(t *testing.T) {
	b := memory.NewBackend(5, nil, time.Hour)
	svc := partner.NewService(b.Partners, b.TxManager)
	ctx := context.Background()

	p := partner.New("  Valley Greens ", partner.TypeSupplier)
	p.Email = " Orders@Valley.TEST "
	p.BusinessNumber = "123-45-67890"
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, "Valley Greens", p.Name)
	assert.Equal(t, "orders@valley.test", p.Email)
	assert.Equal(t, "1234567890", p.BusinessNumber)

	both := partner.New("Hotel Lumen", partner.TypeBoth)
	require.NoError(t, svc.Create(ctx, both))
	require.NoError(t, svc.Create(ctx, partner.New("Wedding Co", partner.TypeClient)))

	suppliers, err := svc.List(ctx, partner.Filter{Type: partner.TypeSupplier})
	require.NoError(t, err)
	assert.Len(t, suppliers.Items, 2)

	p.Memo = "delivers Mondays"
	require.NoError(t, svc.Update(ctx, p))
	got, err := svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivers Mondays", got.Memo)

	stale := got.Clone()
	stale.Version--
	assert.True(t, apperror.IsConcurrentModification(svc.Update(ctx, stale)))

	require.NoError(t, svc.Delete(ctx, p.ID))
	suppliers, err = svc.List(ctx, partner.Filter{Type: partner.TypeSupplier})
	require.NoError(t, err)
	assert.Len(t, suppliers.Items, 1)
}

func TestService_Validation(t *testing.T) {
	b := memory.NewBackend(5, nil, time.Hour)
	svc := partner.NewService(b.Partners, b.TxManager)

	err := svc.Create(context.Background(), partner.New(" ", partner.TypeClient))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
	err = svc.Create(context.Background(), partner.New("Nobody", "vendor"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = svc.GetByID(context.Background(), partner.New("x", partner.TypeClient).ID)
	assert.True(t, apperror.IsNotFound(err))
}
