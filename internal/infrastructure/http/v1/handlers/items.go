package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/domain"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/infrastructure/http/v1/dto"
	"bloomledger/internal/infrastructure/spreadsheet"
)

// ItemHandler serves /items.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates an item handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.ItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	it := req.ToItem(h.OperatorBranch(c))
	if err := h.service.Create(c.Request.Context(), h.Operator(c), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, it)
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParamID(c)
	if !ok {
		return
	}
	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// List handles GET /items.
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.ItemListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Update handles PUT /items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	input := req.ToItem("")
	input.ID = itemID
	input.Version = req.Version
	updated, err := h.service.Update(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Delete handles DELETE /items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Import handles POST /items/import, either an xlsx upload (?kind=&branch=)
// or a JSON body of rows. Partial failures answer 207 with the report.
func (h *ItemHandler) Import(c *gin.Context) {
	var (
		rows   []domain.Row
		kind   = item.Kind(c.Query("kind"))
		branch = c.Query("branch")
	)
	if isMultipart(c) {
		var err error
		if rows, err = readUpload(c); err != nil {
			h.Error(c, err)
			return
		}
	} else {
		var req dto.ImportRowsRequest
		if !h.BindJSON(c, &req) {
			return
		}
		rows = toRows(req.Rows)
		if req.Kind != "" {
			kind = req.Kind
		}
		if req.Branch != "" {
			branch = req.Branch
		}
	}
	if kind == "" {
		kind = item.KindProduct
	}
	parsed, err := item.ParseKind(string(kind))
	if err != nil {
		h.Error(c, err)
		return
	}
	if branch == "" {
		branch = h.OperatorBranch(c)
	}

	report := h.service.Import(c.Request.Context(), h.Operator(c), parsed, branch, rows)
	if report.Failed > 0 {
		h.Status(c, http.StatusMultiStatus, report)
		return
	}
	h.OK(c, report)
}

// Export handles GET /items/export and streams an xlsx workbook.
func (h *ItemHandler) Export(c *gin.Context) {
	var q dto.ItemListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := q.ToFilter()
	all, err := collect(func(offset int) (domain.ListResult[*item.Item], error) {
		filter.Limit, filter.Offset = domain.MaxLimit, offset
		return h.service.List(c.Request.Context(), filter)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteItems(&buf, all); err != nil {
		h.Error(c, err)
		return
	}
	attachment(c, fmt.Sprintf("items-%s.xlsx", time.Now().UTC().Format("20060102")), buf.Bytes())
}

// collect pages through a listing until every row is read.
func collect[T any](page func(offset int) (domain.ListResult[T], error)) ([]T, error) {
	var all []T
	for offset := 0; ; {
		res, err := page(offset)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		offset += len(res.Items)
		if len(res.Items) == 0 || int64(offset) >= res.TotalCount {
			return all, nil
		}
	}
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, spreadsheet.ContentType, data)
}
