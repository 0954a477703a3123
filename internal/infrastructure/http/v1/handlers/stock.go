package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/domain"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/http/v1/dto"
	"bloomledger/internal/infrastructure/spreadsheet"
)

// StockHandler serves /stock.
type StockHandler struct {
	*BaseHandler
	ledger *stockledger.Ledger
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, ledger *stockledger.Ledger) *StockHandler {
	return &StockHandler{BaseHandler: base, ledger: ledger}
}

// Adjust handles POST /stock/adjust. Every line commits on its own; when
// some lines fail the answer is 207 with per-line results.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	report, err := h.ledger.AdjustStock(c.Request.Context(), req.ToRequest(h.Operator(c), h.OperatorBranch(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	if report.Failed > 0 {
		h.Status(c, http.StatusMultiStatus, report)
		return
	}
	h.OK(c, report)
}

// History handles GET /stock/history.
func (h *StockHandler) History(c *gin.Context) {
	filter, ok := h.historyFilter(c)
	if !ok {
		return
	}
	result, err := h.ledger.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ExportHistory handles GET /stock/history/export.
func (h *StockHandler) ExportHistory(c *gin.Context) {
	filter, ok := h.historyFilter(c)
	if !ok {
		return
	}
	all, err := collect(func(offset int) (domain.ListResult[*stockledger.Entry], error) {
		filter.Limit, filter.Offset = domain.MaxLimit, offset
		return h.ledger.History(c.Request.Context(), filter)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteHistory(&buf, all); err != nil {
		h.Error(c, err)
		return
	}
	attachment(c, fmt.Sprintf("stock-history-%s.xlsx", time.Now().UTC().Format("20060102")), buf.Bytes())
}

func (h *StockHandler) historyFilter(c *gin.Context) (stockledger.HistoryFilter, bool) {
	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return stockledger.HistoryFilter{}, false
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return stockledger.HistoryFilter{}, false
	}
	return filter, true
}
