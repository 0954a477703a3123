package handlers

import (
	"github.com/gin-gonic/gin"

	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/infrastructure/http/v1/dto"
)

// PartnerHandler serves /partners.
type PartnerHandler struct {
	*BaseHandler
	service *partner.Service
}

// NewPartnerHandler creates a partner handler.
func NewPartnerHandler(base *BaseHandler, service *partner.Service) *PartnerHandler {
	return &PartnerHandler{BaseHandler: base, service: service}
}

func (h *PartnerHandler) Create(c *gin.Context) {
	var req dto.PartnerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToPartner()
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

func (h *PartnerHandler) Get(c *gin.Context) {
	partnerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	p, err := h.service.GetByID(c.Request.Context(), partnerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

func (h *PartnerHandler) List(c *gin.Context) {
	var q dto.PartnerListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), partner.Filter{ListFilter: q.ListQuery.ToFilter(), Type: q.Type})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Update handles PUT /partners/:id. A zero version means the client does
// not check for concurrent edits.
func (h *PartnerHandler) Update(c *gin.Context) {
	partnerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.PartnerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToPartner()
	p.ID = partnerID
	p.Version = req.Version
	if p.Version == 0 {
		current, err := h.service.GetByID(c.Request.Context(), partnerID)
		if err != nil {
			h.Error(c, err)
			return
		}
		p.Version = current.Version
	}
	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

func (h *PartnerHandler) Delete(c *gin.Context) {
	partnerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), partnerID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ExpenseHandler serves /expenses.
type ExpenseHandler struct {
	*BaseHandler
	service *expense.Service
}

// NewExpenseHandler creates an expense handler.
func NewExpenseHandler(base *BaseHandler, service *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{BaseHandler: base, service: service}
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	var req dto.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	e, err := req.ToExpense(h.OperatorBranch(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), h.Operator(c), e); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, e)
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	expenseID, ok := h.ParamID(c)
	if !ok {
		return
	}
	e, err := h.service.GetByID(c.Request.Context(), expenseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

func (h *ExpenseHandler) List(c *gin.Context) {
	var q dto.ExpenseListQuery
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

// Update handles PUT /expenses/:id. Number and author are kept.
func (h *ExpenseHandler) Update(c *gin.Context) {
	expenseID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	e, err := req.ToExpense("")
	if err != nil {
		h.Error(c, err)
		return
	}
	current, err := h.service.GetByID(c.Request.Context(), expenseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	e.ID = expenseID
	e.Version = req.Version
	if e.Version == 0 {
		e.Version = current.Version
	}
	if e.Branch == "" {
		e.Branch = current.Branch
	}
	if err := h.service.Update(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	expenseID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), expenseID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
