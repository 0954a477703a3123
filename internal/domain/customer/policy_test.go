package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/types"
)

func TestPointsPolicy_Default(t *testing.T) {
	p := MustPointsPolicy("")
	assert.Equal(t, DefaultEarnExpression, p.Expression())

	tests := []struct {
		total string
		want  int64
	}{
		{"50000", 1000},
		{"10000", 200},
		{"49", 0},
		{"99.99", 1},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			got, err := p.Earned(types.MustMoney(tt.total), "Seoul", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointsPolicy_CustomExpression(t *testing.T) {
	p, err := NewPointsPolicy(`branch == "Busan" ? total * 5 / 100 : total / 100 - pointsUsed`)
	require.NoError(t, err)

	got, err := p.Earned(types.MustMoney("20000"), "Busan", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	got, err = p.Earned(types.MustMoney("20000"), "Seoul", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got, "negative results clamp to zero")
}

func TestNewPointsPolicy_Rejects(t *testing.T) {
	for _, expr := range []string{"total *", "branch", "total > 100", "unknown + 1"} {
		_, err := NewPointsPolicy(expr)
		assert.Error(t, err, expr)
	}
}
