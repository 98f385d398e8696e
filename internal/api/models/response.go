package models

// ValuationResponse represents the response from a valuation run
type ValuationResponse struct {
	ID      string           `json:"id,omitempty"`
	Status  string           `json:"status"`
	Summary ValuationSummary `json:"summary"`
	Ledger  []LedgerRow      `json:"ledger,omitempty"`
}

// ValuationSummary contains the objective and its split per entity
type ValuationSummary struct {
	Problem   string        `json:"problem"`
	Value     string        `json:"value"` // rounded to cents
	Objective float64       `json:"objective"`
	Bound     float64       `json:"bound"`
	Gap       float64       `json:"gap"`
	Nodes     int           `json:"nodes"`
	ElapsedMS int64         `json:"elapsed_ms"`
	Periods   int           `json:"periods"`
	Entities  []EntityValue `json:"entities"`
	Warnings  []Warning     `json:"warnings,omitempty"`
	// Violations names constraints the returned assignment breaks.
	Violations []string `json:"violations,omitempty"`
}

// EntityValue is the objective contribution of one entity
type EntityValue struct {
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
	Value  string `json:"value"`
}

// Warning flags a position close to its big-M
type Warning struct {
	Entity   string  `json:"entity"`
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
	BigM     float64 `json:"big_m"`
}

// LedgerRow represents one entity in one period of the valuation ledger
type LedgerRow struct {
	Index         int     `json:"index"`
	StartHours    float64 `json:"start_hours"`
	DurationHours float64 `json:"duration_hours"`
	Entity        string  `json:"entity"`
	Kind          string  `json:"kind"`
	Action        string  `json:"action"` // "INJECTING", "RELEASING", "BUYING", "SELLING", "TRANSIT", "IDLE"
	InFlowMWh     float64 `json:"in_flow_mwh"`
	OutFlowMWh    float64 `json:"out_flow_mwh"`
	LevelStart    float64 `json:"level_start,omitempty"`
	LevelEnd      float64 `json:"level_end,omitempty"`
	Injection     float64 `json:"injection,omitempty"`
	Release       float64 `json:"release,omitempty"`
	LongMW        float64 `json:"long_mw,omitempty"`
	ShortMW       float64 `json:"short_mw,omitempty"`
	SalesMW       float64 `json:"sales_mw,omitempty"`
	PurchaseMW    float64 `json:"purchase_mw,omitempty"`
	Value         string  `json:"value"`
	CumValue      string  `json:"cum_value"`
}

// LedgerResponse is returned by the ledger endpoint in JSON form
type LedgerResponse struct {
	ID     string      `json:"id"`
	Ledger []LedgerRow `json:"ledger"`
}

// PotentialResponse represents the response from ranking curves
type PotentialResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked hub
type Ranking struct {
	Rank           int     `json:"rank"`
	Hub            string  `json:"hub"`
	Currency       string  `json:"currency,omitempty"`
	Count          int     `json:"count"`
	MinMid         float64 `json:"min_mid"`
	MaxMid         float64 `json:"max_mid"`
	MeanMid        float64 `json:"mean_mid"`
	SpreadP95P05   float64 `json:"spread_p95_p05"`
	MeanBidAsk     float64 `json:"mean_bid_ask"`
	IntrinsicValue float64 `json:"intrinsic_value"`
}

// HubInfo represents information about a trading hub
type HubInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
