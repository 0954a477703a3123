package stockledger

import (
	"context"
	"strings"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/types"
	"bloomledger/internal/domain/item"
	"bloomledger/pkg/logger"
)

// AdjustLine is one item of a bulk adjustment.
type AdjustLine struct {
	Code      string       `json:"code"`
	Quantity  int64        `json:"quantity"`
	UnitPrice *types.Money `json:"unitPrice,omitempty"`
	Supplier  *string      `json:"supplier,omitempty"`
}

// AdjustRequest moves stock of several items of one kind at one branch.
type AdjustRequest struct {
	Kind      item.Kind
	Direction Direction
	Branch    string
	Lines     []AdjustLine
	Operator  string
	Reason    string
}

// Validate checks the request header. Lines are checked individually.
func (r AdjustRequest) Validate() error {
	if !r.Kind.IsValid() {
		return apperror.NewInvalidInput("kind", "kind must be product or material")
	}
	if !r.Direction.IsValid() {
		return apperror.NewInvalidInput("direction", "direction must be in, out or manual_update")
	}
	if strings.TrimSpace(r.Branch) == "" {
		return apperror.NewInvalidInput("branch", "branch is required")
	}
	if len(r.Lines) == 0 {
		return apperror.NewInvalidInput("items", "at least one item is required")
	}
	return nil
}

// LineResult is the outcome of one adjustment line.
type LineResult struct {
	Code  string `json:"code"`
	OK    bool   `json:"ok"`
	Entry *Entry `json:"entry,omitempty"`
	Error string `json:"error,omitempty"`
	// ErrorCode is the AppError code when available.
	ErrorCode string `json:"errorCode,omitempty"`
}

// AdjustReport lists per-line outcomes of AdjustStock.
type AdjustReport struct {
	Results   []LineResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// Err returns PARTIAL_BATCH_FAILURE when any line failed.
func (r *AdjustReport) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return apperror.NewPartialBatchFailure(r.Failed, len(r.Results))
}

// AdjustStock applies a movement to each line in its own transaction.
// A failing line does not undo the lines already applied.
func (l *Ledger) AdjustStock(ctx context.Context, req AdjustRequest) (*AdjustReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reason := req.Reason
	if reason == "" {
		reason = "stock_adjustment"
	}

	report := &AdjustReport{Results: make([]LineResult, 0, len(req.Lines))}
	for _, line := range req.Lines {
		res := LineResult{Code: line.Code}
		entry, err := l.adjustLine(ctx, req, line, reason)
		if err != nil {
			res.Error = err.Error()
			if appErr, ok := apperror.AsAppError(err); ok {
				res.Error = appErr.Message
				res.ErrorCode = appErr.Code
			}
			report.Failed++
			logger.Warn(ctx, "stock adjustment line failed",
				"code", line.Code, "branch", req.Branch, "direction", req.Direction, "error", err)
		} else {
			res.OK = true
			res.Entry = entry
			report.Succeeded++
		}
		report.Results = append(report.Results, res)
	}

	logger.Info(ctx, "stock adjustment finished",
		"kind", req.Kind, "branch", req.Branch, "direction", req.Direction,
		"succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

func (l *Ledger) adjustLine(ctx context.Context, req AdjustRequest, line AdjustLine, reason string) (*Entry, error) {
	code := strings.TrimSpace(line.Code)
	if code == "" {
		return nil, apperror.NewInvalidInput("code", "item code is required")
	}
	m := Movement{
		Direction:      req.Direction,
		Quantity:       line.Quantity,
		UnitPrice:      line.UnitPrice,
		Supplier:       line.Supplier,
		RefreshCatalog: true,
		Operator:       req.Operator,
		Reason:         reason,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var entry *Entry
	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		it, err := l.items.GetByKeyForUpdate(ctx, item.Key{Kind: req.Kind, Code: code, Branch: req.Branch})
		if err != nil {
			return err
		}
		mv := m
		if mv.UnitPrice == nil && req.Direction != DirectionManual {
			price := it.Price
			mv.UnitPrice = &price
			mv.RefreshCatalog = mv.Supplier != nil
		}
		entry, err = l.Apply(ctx, it, mv)
		return err
	})
	return entry, err
}
