package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/model"
)

func TestCheckLimits(t *testing.T) {
	markets := func(n int) []MarketConfig {
		out := make([]MarketConfig, n)
		for i := range out {
			out[i].Name = string(rune('a' + i%26))
		}
		return out
	}
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"small", Config{Grid: GridConfig{Periods: 12}, Markets: markets(3)}, true},
		{"periods", Config{Grid: GridConfig{Periods: 367}, Markets: markets(1)}, false},
		{"hours", Config{Grid: GridConfig{Hours: make([]float64, 400)}, Markets: markets(1)}, false},
		{"entities", Config{Grid: GridConfig{Periods: 1}, Markets: markets(65)}, false},
		{"size", Config{Grid: GridConfig{Periods: 365}, Markets: markets(3)}, false},
		{"links count", Config{Grid: GridConfig{Periods: 100}, Markets: markets(5),
			Links: make([]LinkConfig, 6)}, false},
		{"curve", Config{Curve: &model.ForwardCurve{Points: make([]model.CurvePoint, 400)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.CheckLimits(Limits{})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCheckLimitsOverride(t *testing.T) {
	c := Config{Grid: GridConfig{Periods: 30}, Markets: []MarketConfig{{Name: "m"}}}
	assert.NoError(t, c.CheckLimits(Limits{}))
	assert.ErrorIs(t, c.CheckLimits(Limits{MaxPeriods: 24}), ErrInvalidConfig)
	assert.ErrorIs(t, c.CheckLimits(Limits{MaxSize: 20}), ErrInvalidConfig)
	assert.Equal(t, 30, c.Periods())
	assert.Equal(t, 1, c.Entities())
}
