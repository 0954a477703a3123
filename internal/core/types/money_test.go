package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWholeUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"50000", 50000},
		{"12.99", 12},
		{"0.5", 0},
		{"-0.5", -1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, WholeUnits(MustMoney(tt.in)))
		})
	}
}

func TestNonNegativeAndSum(t *testing.T) {
	assert.True(t, NonNegative(MustMoney("-3")).IsZero())
	assert.True(t, NonNegative(MustMoney("3")).Equal(MoneyFromInt(3)))
	assert.True(t, Sum(MustMoney("1.10"), MustMoney("2.20"), MoneyFromInt(3)).Equal(MustMoney("6.3")))
}
