package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/model"
)

var day0 = time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

func dailyCurve(hub string, quotes ...[2]float64) model.ForwardCurve {
	c := model.ForwardCurve{Hub: hub, Currency: "EUR"}
	for i, q := range quotes {
		start := day0.Add(time.Duration(i) * 24 * time.Hour)
		c.Points = append(c.Points, model.CurvePoint{Start: start, End: start.Add(24 * time.Hour), Bid: q[0], Ask: q[1]})
	}
	return c
}

func TestComputePotentialStats(t *testing.T) {
	c := dailyCurve("TTF", [2]float64{19, 21}, [2]float64{29, 31}, [2]float64{24, 26})
	p := ComputePotential(c)

	assert.Equal(t, "TTF", p.Hub)
	assert.Equal(t, 3, p.Count)
	assert.Equal(t, day0, p.Start)
	assert.Equal(t, day0.Add(72*time.Hour), p.End)
	assert.Equal(t, 20.0, p.MinMid)
	assert.Equal(t, 30.0, p.MaxMid)
	assert.Equal(t, 25.0, p.MeanMid)
	assert.Equal(t, 2.0, p.MeanBidAsk)
	assert.InDelta(t, 20.5, p.P05Mid, 1e-9)
	assert.InDelta(t, 29.5, p.P95Mid, 1e-9)
	assert.InDelta(t, 9.0, p.SpreadP95P05, 1e-9)
}

func TestComputePotentialEmpty(t *testing.T) {
	p := ComputePotential(model.ForwardCurve{Hub: "NBP"})
	assert.Equal(t, "NBP", p.Hub)
	assert.Zero(t, p.Count)
	assert.Zero(t, p.IntrinsicValue)
}

func TestIntrinsicValue(t *testing.T) {
	tests := []struct {
		name  string
		curve model.ForwardCurve
		fill  float64
		want  float64
	}{
		{"one cycle", dailyCurve("x", [2]float64{19, 20}, [2]float64{30, 31}), 24, 10},
		{"falling curve", dailyCurve("x", [2]float64{30, 31}, [2]float64{19, 20}), 24, 0},
		// half the volume per day: buy on both cheap days, sell on both dear days
		{"slow storage", dailyCurve("x", [2]float64{19, 20}, [2]float64{19, 20}, [2]float64{30, 31}, [2]float64{30, 31}), 48, 10},
		// one day of four can only move a quarter of the volume
		{"rate limited", dailyCurve("x", [2]float64{19, 20}, [2]float64{30, 31}), 96, 2.5},
		{"bid-ask eats spread", dailyCurve("x", [2]float64{20, 25}, [2]float64{24, 30}), 24, 0},
		{"bad fill", dailyCurve("x", [2]float64{19, 20}, [2]float64{30, 31}), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IntrinsicValue(tt.curve.Points, tt.fill), 1e-9)
		})
	}
}

func TestIntrinsicValueDiscounted(t *testing.T) {
	c := dailyCurve("x", [2]float64{19, 20}, [2]float64{30, 31})
	c.Points[1].DF = 0.9
	// sell 30*0.9 = 27, buy 20
	assert.InDelta(t, 7.0, IntrinsicValue(c.Points, 24), 1e-9)
}

func TestIntrinsicValueMixedDurations(t *testing.T) {
	c := dailyCurve("x", [2]float64{19, 20})
	start := c.Points[0].End
	c.Points = append(c.Points, model.CurvePoint{Start: start, End: start.Add(48 * time.Hour), Bid: 30, Ask: 31})
	// the 48h period can release twice what a day injects
	assert.InDelta(t, 5.0, IntrinsicValue(c.Points, 48), 1e-9)
}

func TestRankByIntrinsicValue(t *testing.T) {
	byHub := map[string]model.ForwardCurve{
		"flat": dailyCurve("", [2]float64{20, 21}, [2]float64{20, 21}),
		"TTF":  dailyCurve("TTF", [2]float64{19, 20}, [2]float64{30, 31}),
		"NBP":  dailyCurve("NBP", [2]float64{19, 20}, [2]float64{25, 26}),
	}
	ranked := RankByIntrinsicValue(byHub)
	require.Len(t, ranked, 3)
	assert.Equal(t, "TTF", ranked[0].Hub)
	assert.Equal(t, "NBP", ranked[1].Hub)
	assert.Equal(t, "flat", ranked[2].Hub)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Greater(t, ranked[0].IntrinsicValue, ranked[1].IntrinsicValue)
}
