package model

// Action is a human-friendly operating mode for one entity in one period.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionInjecting Action = "INJECTING"
	ActionReleasing Action = "RELEASING"
	ActionBuying    Action = "BUYING"
	ActionSelling   Action = "SELLING"
	ActionTransit   Action = "TRANSIT"
	ActionIdle      Action = "IDLE"
)

// FlowEpsilon is the MWh below which a flow counts as zero.
const FlowEpsilon = 1e-6

// ActionFromStorage classifies a storage period by its net level change.
func ActionFromStorage(injMWh, relMWh float64) Action {
	switch net := injMWh - relMWh; {
	case net > FlowEpsilon:
		return ActionInjecting
	case net < -FlowEpsilon:
		return ActionReleasing
	default:
		return ActionIdle
	}
}

// ActionFromTrade classifies a product or tranche period. bought and sold are
// the gas volumes pushed into and taken out of the network.
func ActionFromTrade(boughtMWh, soldMWh float64) Action {
	switch net := boughtMWh - soldMWh; {
	case net > FlowEpsilon:
		return ActionBuying
	case net < -FlowEpsilon:
		return ActionSelling
	default:
		return ActionIdle
	}
}

// ActionFromFlow classifies a pass-through node such as a market.
func ActionFromFlow(inMWh, outMWh float64) Action {
	if inMWh > FlowEpsilon || outMWh > FlowEpsilon {
		return ActionTransit
	}
	return ActionIdle
}
