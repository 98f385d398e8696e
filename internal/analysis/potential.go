package analysis

import (
	"math"
	"sort"
	"time"

	"gas-valuation/internal/model"
)

// CanonicalFillHours is the time the canonical storage needs to go from
// empty to full (and back) at its maximum rate.
const CanonicalFillHours = 240.0

// CurvePotential is a hub-level summary of a forward curve you can use for
// ranking. It does not depend on a specific storage; it includes raw price
// stats and the intrinsic value of a canonical storage.
type CurvePotential struct {
	Hub      string `json:"hub"`
	Currency string `json:"currency,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count int `json:"count"`

	MinMid  float64 `json:"min_mid"`
	MaxMid  float64 `json:"max_mid"`
	MeanMid float64 `json:"mean_mid"`
	P05Mid  float64 `json:"p05_mid"`
	P95Mid  float64 `json:"p95_mid"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
	MeanBidAsk   float64 `json:"mean_bid_ask"`

	// IntrinsicValue is the discounted value (currency per MWh of working
	// gas) of a canonical storage:
	// - working gas volume 1 MWh, empty at the start and at the end
	// - CanonicalFillHours to fill or empty at full rate
	// - no costs, buys at ask and sells at bid
	IntrinsicValue float64 `json:"intrinsic_value"`
}

func ComputePotential(c model.ForwardCurve) CurvePotential {
	p := CurvePotential{Hub: c.Hub, Currency: c.Currency}
	if len(c.Points) == 0 {
		return p
	}
	p.Count = len(c.Points)
	p.Start = c.Points[0].Start
	p.End = c.Points[len(c.Points)-1].End

	sum := 0.0
	spread := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(c.Points))
	for _, pt := range c.Points {
		v := pt.Mid()
		vals = append(vals, v)
		sum += v
		spread += pt.Ask - pt.Bid
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	p.MinMid = minv
	p.MaxMid = maxv
	p.MeanMid = sum / float64(len(vals))
	p.P05Mid = percentileSorted(vals, 0.05)
	p.P95Mid = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95Mid - p.P05Mid
	p.MeanBidAsk = spread / float64(len(vals))

	p.IntrinsicValue = IntrinsicValue(c.Points, CanonicalFillHours)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// IntrinsicValue runs a DP over a discretized level grid for a storage of
// 1 MWh that fills in fillHours. One level step is what the storage moves
// in the shortest period; longer periods may move several steps.
func IntrinsicValue(points []model.CurvePoint, fillHours float64) float64 {
	if len(points) == 0 || fillHours <= 0 {
		return 0
	}
	minDt := math.Inf(1)
	for _, pt := range points {
		dt := pt.DurationHours()
		if dt <= 0 {
			return 0
		}
		minDt = math.Min(minDt, dt)
	}
	steps := int(math.Round(fillHours / minDt))
	if steps < 1 {
		steps = 1
	}
	step := 1.0 / float64(steps)

	negInf := -1e100
	nStates := steps + 1
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	dp[0] = 0

	for _, pt := range points {
		for i := range next {
			next[i] = negInf
		}
		reach := int(math.Round(pt.DurationHours() / minDt))
		df := pt.Discount()

		for lev := 0; lev < nStates; lev++ {
			if dp[lev] <= negInf/2 {
				continue
			}
			lo := max(lev-reach, 0)
			hi := min(lev+reach, steps)
			for to := lo; to <= hi; to++ {
				var gain float64
				switch {
				case to > lev:
					gain = -pt.Ask * float64(to-lev) * step * df
				case to < lev:
					gain = pt.Bid * float64(lev-to) * step * df
				}
				if dp[lev]+gain > next[to] {
					next[to] = dp[lev] + gain
				}
			}
		}
		dp, next = next, dp
	}

	if dp[0] <= negInf/2 {
		return 0
	}
	return dp[0]
}
