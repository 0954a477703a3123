package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/infrastructure/http/v1/dto"
)

// CustomerHandler serves /customers.
type CustomerHandler struct {
	*BaseHandler
	service *customer.Service
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, service: service}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust, branch := req.ToCustomer(h.OperatorBranch(c))
	if err := h.service.Create(c.Request.Context(), h.Operator(c), branch, cust); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cust)
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	cust, err := h.service.GetByID(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Lookup handles GET /customers/lookup?contact=.
func (h *CustomerHandler) Lookup(c *gin.Context) {
	contact := c.Query("contact")
	if contact == "" {
		h.Error(c, apperror.NewInvalidInput("contact", "contact is required"))
		return
	}
	cust, err := h.service.FindByContact(c.Request.Context(), contact)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// List handles GET /customers.
func (h *CustomerHandler) List(c *gin.Context) {
	var q dto.CustomerListQuery
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

// Update handles PUT /customers/:id. Points are changed only through
// POST /customers/:id/points.
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	input, _ := req.ToCustomer("")
	input.ID = customerID
	input.Version = req.Version
	input.Type = req.Type
	updated, err := h.service.Update(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Delete handles DELETE /customers/:id.
func (h *CustomerHandler) Delete(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), customerID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AdjustPoints handles POST /customers/:id/points.
func (h *CustomerHandler) AdjustPoints(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.PointsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.AdjustPoints(c.Request.Context(), customer.PointAdjustment{
		CustomerID: customerID,
		Delta:      req.Delta,
		Reason:     req.Reason,
		Operator:   h.Operator(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entry)
}

// PointHistory handles GET /customers/:id/points.
func (h *CustomerHandler) PointHistory(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.PointHistory(c.Request.Context(), customerID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Import handles POST /customers/import (xlsx upload or JSON rows).
func (h *CustomerHandler) Import(c *gin.Context) {
	var (
		rows   []domain.Row
		branch = c.Query("branch")
	)
	if isMultipart(c) {
		var err error
		if rows, err = readUpload(c); err != nil {
			h.Error(c, err)
			return
		}
	} else {
		var req dto.CustomerImportRequest
		if !h.BindJSON(c, &req) {
			return
		}
		rows = toRows(req.Rows)
		if req.Branch != "" {
			branch = req.Branch
		}
	}
	if branch == "" {
		branch = h.OperatorBranch(c)
	}

	report := h.service.Import(c.Request.Context(), h.Operator(c), branch, rows)
	if report.Failed > 0 {
		h.Status(c, http.StatusMultiStatus, report)
		return
	}
	h.OK(c, report)
}
