package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAndKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig(PrefixOrder)

	assert.Equal(t, "ORD-2026-00042", Format(cfg, period, 42))
	assert.Equal(t, "ORD_2026", SequenceKey(cfg, period))

	cfg.ResetPeriod = "month"
	cfg.IncludeYear = false
	cfg.PadWidth = 3
	assert.Equal(t, "ORD_2026_03", SequenceKey(cfg, period))
	assert.Equal(t, "ORD-007", Format(cfg, period, 7))

	cfg.ResetPeriod = "never"
	assert.Equal(t, "ORD", SequenceKey(cfg, period))
}
