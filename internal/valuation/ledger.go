package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
)

// LedgerRow is one row of per-entity, per-period output.
// This is the primary artifact for "what the optimiser decided".
// Units:
// - StartHours, DurationHours: hours from the start of the grid
// - InFlowMWh, OutFlowMWh: MWh over the period
// - LevelStart, LevelEnd, Injection, Release: fraction of WGV (storage only)
// - LongMW, ShortMW, SalesMW, PurchaseMW: MW (products and tranches only)
// - Value, CumValue: discounted currency
type LedgerRow struct {
	Index int

	StartHours    float64
	DurationHours float64

	Entity string
	Kind   model.Kind

	Action model.Action

	InFlowMWh  float64
	OutFlowMWh float64

	LevelStart float64
	LevelEnd   float64
	Injection  float64
	Release    float64

	LongMW     float64
	ShortMW    float64
	SalesMW    float64
	PurchaseMW float64

	Value    decimal.Decimal
	CumValue decimal.Decimal
}

// EntityValue is the objective contribution of one entity.
type EntityValue struct {
	Entity string
	Kind   model.Kind
	Value  decimal.Decimal
}

// Warning flags a semi-continuous position close to its big-M.
type Warning struct {
	Entity   string
	Variable string
	Value    float64
	BigM     float64
}

type Result struct {
	Problem string
	Status  solver.Status

	Objective float64
	Value     decimal.Decimal
	Bound     float64
	Gap       float64
	Nodes     int
	Elapsed   time.Duration

	Ledger   []LedgerRow
	Entities []EntityValue
	Warnings []Warning
	// Violations lists the constraints the assignment misses by more than
	// ViolationTol.
	Violations []string

	// Values is the raw assignment keyed by variable name.
	Values map[string]float64
}

// Rows returns the ledger rows of one entity in period order.
func (r *Result) Rows(entity string) []LedgerRow {
	var out []LedgerRow
	for _, row := range r.Ledger {
		if row.Entity == entity {
			out = append(out, row)
		}
	}
	return out
}
