package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorIdentity(t *testing.T) {
	assert.Equal(t, "", (*Operator)(nil).Identity())
	assert.Equal(t, "u1", (&Operator{UserID: "u1"}).Identity())
	assert.Equal(t, "kim", (&Operator{UserID: "u1", Name: "kim"}).Identity())
	assert.Equal(t, "kim@shop.test", (&Operator{UserID: "u1", Name: "kim", Email: "kim@shop.test"}).Identity())
}

func TestOperatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetOperator(ctx))

	op := &Operator{UserID: "u1", Roles: []string{"manager"}}
	ctx = WithOperator(ctx, op)
	assert.Same(t, op, GetOperator(ctx))
	assert.Equal(t, "u1", GetOperatorIdentity(ctx))
	assert.True(t, op.HasRole("manager"))
	assert.False(t, op.HasRole("admin"))
	assert.True(t, (&Operator{IsAdmin: true}).HasRole("admin"))
}
