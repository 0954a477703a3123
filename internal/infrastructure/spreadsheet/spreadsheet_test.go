package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
)

func TestItemsRoundTrip(t *testing.T) {
	rose := item.New(item.KindProduct, "R001", "Gangnam", "Red rose")
	rose.Price = types.MustMoney("3500")
	rose.Stock = 12
	rose.Color = "red"
	ribbon := item.New(item.KindMaterial, "M010", "Gangnam", "Ribbon")

	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, []*item.Item{rose, ribbon}))

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "R001", rows[0].Get("code"))
	assert.Equal(t, "3500", rows[0].Get("price"))
	assert.Equal(t, "12", rows[0].Get("stock"))
	assert.Equal(t, "red", rows[0].Get("color"))
	assert.Equal(t, "material", rows[1].Get("kind"))
	assert.Equal(t, "Ribbon", rows[1].Get("name"))
}

func TestReadRows_HeaderAndBlankRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Contact", "Name", "Points"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"010-1111-2222", "Kim"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"010-3333-4444", "Lee", "20"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Kim", rows[0].Get("name"))
	assert.Equal(t, "", rows[0].Get("points"))
	assert.True(t, rows[1].Empty())
	assert.Equal(t, "20", rows[2].Get("points"))
}

func TestReadRows_Invalid(t *testing.T) {
	_, err := ReadRows(bytes.NewReader([]byte("not a workbook")))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)

	_, err = toRows([][]string{{"", " "}})
	require.ErrorAs(t, err, &appErr)
}

func TestWriteHistory(t *testing.T) {
	price := types.MustMoney("3500")
	total := types.MustMoney("7000")
	entries := []*stockledger.Entry{{
		CreatedAt: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		Direction: stockledger.DirectionOut,
		ItemKind:  item.KindProduct,
		ItemCode:  "R001",
		ItemName:  "Red rose",
		Branch:    "Gangnam",
		Quantity:  2,
		FromStock: 12,
		ToStock:   10,
		UnitPrice: &price, TotalAmount: &total,
		Operator: "alice",
		Reason:   "order",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, entries))

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-05-01T09:30:00Z", rows[0].Get("created_at"))
	assert.Equal(t, "out", rows[0].Get("direction"))
	assert.Equal(t, "10", rows[0].Get("to_stock"))
	assert.Equal(t, "7000", rows[0].Get("total_amount"))
}
