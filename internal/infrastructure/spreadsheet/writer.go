package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/stockledger"
)

var itemHeader = []any{
	"kind", "code", "branch", "name", "main_category", "mid_category",
	"price", "supplier", "stock", "size", "color",
}

var historyHeader = []any{
	"created_at", "direction", "branch", "item_kind", "item_code", "item_name",
	"quantity", "from_stock", "to_stock", "unit_price", "total_amount",
	"operator", "reason", "reference",
}

// WriteItems renders items as a workbook whose columns ReadRows and the
// item import understand.
func WriteItems(w io.Writer, items []*item.Item) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			string(it.Kind), it.Code, it.Branch, it.Name, it.MainCategory, it.MidCategory,
			it.Price.String(), it.Supplier, it.Stock, it.Size, it.Color,
		})
	}
	return write(w, "items", itemHeader, rows)
}

// WriteHistory renders stock history entries.
func WriteHistory(w io.Writer, entries []*stockledger.Entry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		unitPrice, total := "", ""
		if e.UnitPrice != nil {
			unitPrice = e.UnitPrice.String()
		}
		if e.TotalAmount != nil {
			total = e.TotalAmount.String()
		}
		rows = append(rows, []any{
			e.CreatedAt.UTC().Format(time.RFC3339), string(e.Direction), e.Branch,
			string(e.ItemKind), e.ItemCode, e.ItemName,
			e.Quantity, e.FromStock, e.ToStock, unitPrice, total,
			e.Operator, e.Reason, e.Reference,
		})
	}
	return write(w, "history", historyHeader, rows)
}

func write(w io.Writer, sheetName string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	def := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(def, sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, sheetName, 1, header); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, sheetName, i+2, r); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
