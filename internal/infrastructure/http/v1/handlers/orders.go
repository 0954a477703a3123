package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/domain/order"
	"bloomledger/internal/infrastructure/audit"
	"bloomledger/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves /orders.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
	audit   *audit.Service
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service, auditSvc *audit.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service, audit: auditSvc}
}

// Place handles POST /orders.
func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	placed, err := h.service.PlaceOrder(c.Request.Context(), h.Operator(c), req.ToInput(h.OperatorBranch(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, placed)
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	o, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Update handles PUT /orders/:id.
func (h *OrderHandler) Update(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.Update(c.Request.Context(), h.Operator(c), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// UpdateStatus handles PATCH /orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.UpdateStatus(c.Request.Context(), h.Operator(c), orderID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// UpdatePayment handles PATCH /orders/:id/payment.
func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.UpdatePayment(c.Request.Context(), h.Operator(c), orderID, order.Payment(req))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.CancelOrder(c.Request.Context(), h.Operator(c), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

type auditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Operator  string          `json:"operator"`
	Changes   json.RawMessage `json:"changes"`
	CreatedAt time.Time       `json:"createdAt"`
}

// History handles GET /orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	entries, err := h.audit.History(c.Request.Context(), "order", orderID, 100)
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			Operator:  e.Operator,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		})
	}
	h.OK(c, gin.H{"items": out})
}
