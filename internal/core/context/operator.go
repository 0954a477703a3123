// Package context provides request-scoped values: tracing ids and the
// authenticated operator.
package context

import (
	"context"
)

// Operator is the authenticated caller on whose behalf stock and point
// mutations are recorded. It is produced by the auth middleware and passed
// explicitly into domain operations; domain code never reads it from ctx.
type Operator struct {
	UserID string
	Email  string
	Name   string
	// Branch is the branch the operator works at, if the token names one.
	Branch  string
	Roles   []string
	IsAdmin bool
}

// Identity returns the string recorded in audit trails.
func (o *Operator) Identity() string {
	if o == nil {
		return ""
	}
	switch {
	case o.Email != "":
		return o.Email
	case o.Name != "":
		return o.Name
	default:
		return o.UserID
	}
}

// HasRole checks if the operator has the role. Admins have every role.
func (o *Operator) HasRole(role string) bool {
	if o == nil {
		return false
	}
	if o.IsAdmin {
		return true
	}
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type operatorKey struct{}

// WithOperator adds Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// GetOperator returns Operator from context.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorKey{}).(*Operator); ok {
		return v
	}
	return nil
}

// GetOperatorIdentity returns the operator identity from context or empty string.
func GetOperatorIdentity(ctx context.Context) string {
	return GetOperator(ctx).Identity()
}
