package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/core/apperror"
	appctx "bloomledger/internal/core/context"
)

// TokenValidator turns a bearer token into an operator.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.Operator, error)
}

// Auth requires a valid bearer token and stores the operator in the request
// context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		op, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token").WithCause(err))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(appctx.WithOperator(c.Request.Context(), op))
		c.Set("operator", op.Identity())
		c.Next()
	}
}

// RequireRole lets the request through when the operator has any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := appctx.GetOperator(c.Request.Context())
		if op == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		for _, required := range roles {
			if op.HasRole(required) {
				c.Next()
				return
			}
		}
		_ = c.Error(apperror.NewForbidden("insufficient permissions").WithDetail("required_roles", roles))
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
