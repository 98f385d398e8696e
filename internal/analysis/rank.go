package analysis

import (
	"sort"

	"gas-valuation/internal/model"
)

type RankedPotential struct {
	CurvePotential
	Rank int `json:"rank"`
}

// RankByIntrinsicValue computes potentials per hub and sorts descending by
// IntrinsicValue. Ties are broken by hub name.
func RankByIntrinsicValue(byHub map[string]model.ForwardCurve) []RankedPotential {
	out := make([]RankedPotential, 0, len(byHub))
	for hub, c := range byHub {
		p := ComputePotential(c)
		if p.Hub == "" {
			p.Hub = hub
		}
		out = append(out, RankedPotential{CurvePotential: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IntrinsicValue != out[j].IntrinsicValue {
			return out[i].IntrinsicValue > out[j].IntrinsicValue
		}
		return out[i].Hub < out[j].Hub
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
