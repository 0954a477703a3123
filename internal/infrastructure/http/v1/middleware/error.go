package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/core/apperror"
	appctx "bloomledger/internal/core/context"
	"bloomledger/pkg/logger"
)

// ErrorHandler renders the last gin error as the JSON problem body
// {code, message, details}. Causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ctx := c.Request.Context()
		appErr := toAppError(c.Errors.Last().Err)

		if appErr.HTTPStatus >= http.StatusInternalServerError || appErr.Err != nil {
			logger.Error(ctx, "request failed",
				"code", appErr.Code,
				"status", appErr.HTTPStatus,
				"cause", appErr.Err,
			)
		}

		details := appErr.Details
		if appErr.Code == apperror.CodeInternal {
			details = map[string]any{"request_id": appctx.GetRequestID(ctx)}
		}
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": details,
		}

		FailIdempotency(c, appErr.HTTPStatus, body)
		c.JSON(appErr.HTTPStatus, body)
	}
}

func toAppError(err error) *apperror.AppError {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewPersistence("request", err).WithDetail("outcome", "unknown")
	}
	return apperror.NewInternal(err)
}
