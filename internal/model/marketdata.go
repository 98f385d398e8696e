package model

import (
	"errors"
	"time"
)

// ForwardCurve matches the JSON shape of a forward-curve file.
//
// Example:
// {
//   "hub": "TTF",
//   "currency": "EUR",
//   "points": [ ... ]
// }
type ForwardCurve struct {
	Hub      string       `json:"hub"`
	Currency string       `json:"currency,omitempty"`
	Points   []CurvePoint `json:"points"`
}

// CurvePoint is one delivery period of a forward curve.
// Timestamps are RFC3339 strings (with offsets) in the JSON.
type CurvePoint struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Prices in currency/MWh.
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`

	// DF is the discount factor; 0 in the file means undiscounted.
	DF float64 `json:"df,omitempty"`
}

func (p CurvePoint) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

func (p CurvePoint) DurationHours() float64 {
	return p.Duration().Hours()
}

func (p CurvePoint) Mid() float64 {
	return (p.Bid + p.Ask) / 2
}

// Discount returns DF, treating an absent factor as 1.
func (p CurvePoint) Discount() float64 {
	if p.DF == 0 {
		return 1
	}
	return p.DF
}

// Grid returns the dispatch grid spanned by the curve points.
func (c ForwardCurve) Grid() (Grid, error) {
	if len(c.Points) == 0 {
		return Grid{}, errors.New("forward curve has no points")
	}
	d := make([]float64, len(c.Points))
	for i, p := range c.Points {
		d[i] = p.DurationHours()
	}
	g := Grid{Durations: d}
	return g, g.Validate()
}

// Coefficients returns df, bid and ask as per-period series.
func (c ForwardCurve) Coefficients() (df, bid, ask Coeff) {
	dfs := make([]float64, len(c.Points))
	bids := make([]float64, len(c.Points))
	asks := make([]float64, len(c.Points))
	for i, p := range c.Points {
		dfs[i] = p.Discount()
		bids[i] = p.Bid
		asks[i] = p.Ask
	}
	return Series(dfs...), Series(bids...), Series(asks...)
}
