package item

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain"
	"bloomledger/pkg/logger"
)

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Total   int               `json:"total"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	Errors  []domain.RowError `json:"errors,omitempty"`
}

// Err returns PARTIAL_BATCH_FAILURE when any row failed.
func (r *ImportReport) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return apperror.NewPartialBatchFailure(r.Failed, r.Total)
}

// Import upserts rows into the catalog of kind. Rows without a branch column
// go to defaultBranch. Each row commits on its own so that one bad row does
// not roll back the rest.
func (s *Service) Import(ctx context.Context, operator string, kind Kind, defaultBranch string, rows []domain.Row) *ImportReport {
	report := &ImportReport{Total: len(rows)}
	for i, row := range rows {
		if row.Empty() {
			report.Skipped++
			continue
		}
		created, err := s.importRow(ctx, operator, kind, defaultBranch, row)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{Row: i + 1, Reason: err.Error()})
			logger.Warn(ctx, "item import row rejected", "row", i+1, "error", err)
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	logger.Info(ctx, "item import finished",
		"kind", kind, "total", report.Total, "created", report.Created,
		"updated", report.Updated, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

func (s *Service) importRow(ctx context.Context, operator string, kind Kind, defaultBranch string, row domain.Row) (bool, error) {
	parsed, stock, hasStock, err := parseRow(kind, defaultBranch, row)
	if err != nil {
		return false, err
	}
	if err := parsed.Validate(ctx); err != nil {
		return false, err
	}

	created := false
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByKeyForUpdate(ctx, parsed.Key())
		if apperror.IsNotFound(err) {
			fresh := parsed.Clone()
			fresh.Stock = 0
			if err := s.repo.Create(ctx, fresh); err != nil {
				return err
			}
			created = true
			if stock > 0 {
				return s.stock.Receive(ctx, fresh, stock, operator, "import")
			}
			return nil
		}
		if err != nil {
			return err
		}
		created = false
		existing.ApplyCatalog(parsed)
		if err := s.repo.Update(ctx, existing); err != nil {
			return err
		}
		if hasStock && existing.Stock != stock {
			return s.stock.SetLevel(ctx, existing, stock, operator, "import")
		}
		return nil
	})
	return created, err
}

func parseRow(kind Kind, defaultBranch string, row domain.Row) (*Item, int64, bool, error) {
	branch := row.Get("branch")
	if branch == "" {
		branch = defaultBranch
	}
	it := New(kind, row.Get("code"), branch, row.Get("name"))
	it.MainCategory = row.Get("main_category", "category")
	it.MidCategory = row.Get("mid_category", "subcategory")
	it.Supplier = row.Get("supplier")
	it.Size = row.Get("size")
	it.Color = row.Get("color")

	if raw := row.Get("price"); raw != "" {
		price, err := types.NewMoneyFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return nil, 0, false, apperror.NewInvalidInput("price", fmt.Sprintf("invalid price %q", raw))
		}
		it.Price = price
	}

	raw := row.Get("stock", "quantity")
	if raw == "" {
		return it, 0, false, nil
	}
	stock, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil || stock < 0 {
		return nil, 0, false, apperror.NewInvalidInput("stock", fmt.Sprintf("invalid stock %q", raw))
	}
	return it, stock, true, nil
}
