// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/core/apperror"
	appctx "bloomledger/internal/core/context"
	"bloomledger/internal/core/id"
	"bloomledger/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates the JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParamID parses the :id path parameter.
func (h *BaseHandler) ParamID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("id", "must be a UUID"))
		return id.Nil(), false
	}
	return parsed, true
}

// Error registers err on the gin context and aborts. The JSON body is
// produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Operator returns the authenticated operator identity.
func (h *BaseHandler) Operator(c *gin.Context) string {
	return appctx.GetOperatorIdentity(c.Request.Context())
}

// OperatorBranch returns the branch named by the operator's token, if any.
func (h *BaseHandler) OperatorBranch(c *gin.Context) string {
	if op := appctx.GetOperator(c.Request.Context()); op != nil {
		return op.Branch
	}
	return ""
}

// Created sends 201 with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// Status sends data with an explicit status, e.g. 207 for partial batches.
func (h *BaseHandler) Status(c *gin.Context, status int, data any) {
	middleware.CompleteIdempotency(c, status, "application/json", data)
	c.JSON(status, data)
}

// NoContent sends 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
