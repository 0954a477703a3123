// Package spreadsheet converts xlsx workbooks to import rows and renders
// catalog and history exports.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain"
)

// ContentType is the MIME type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReadRows reads the active sheet of an xlsx workbook. The first non-empty
// row is the header; every following row becomes a domain.Row keyed by it.
// Trailing blank rows are dropped, blank rows in the middle are kept so that
// row numbers in import reports match the sheet.
func ReadRows(r io.Reader) ([]domain.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.NewInvalidInput("file", "not a readable xlsx workbook").WithCause(err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return toRows(raw)
}

func toRows(raw [][]string) ([]domain.Row, error) {
	start := -1
	for i, cells := range raw {
		if !blank(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, apperror.NewInvalidInput("file", "workbook has no header row")
	}

	header := make([]string, len(raw[start]))
	for i, h := range raw[start] {
		header[i] = strings.TrimSpace(h)
	}

	body := raw[start+1:]
	for len(body) > 0 && blank(body[len(body)-1]) {
		body = body[:len(body)-1]
	}

	rows := make([]domain.Row, 0, len(body))
	for _, cells := range body {
		row := make(domain.Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
