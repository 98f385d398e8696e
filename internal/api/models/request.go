package models

import (
	"gas-valuation/internal/config"
	"gas-valuation/internal/model"
)

// ValuationRequest represents the request body for valuing a network.
// Config uses the same field names as the YAML network files; file
// references (curve_file, storage_file) are rejected.
type ValuationRequest struct {
	Config  config.Config    `json:"config"`
	Options ValuationOptions `json:"options,omitempty"`
}

// ValuationOptions contains optional valuation parameters
type ValuationOptions struct {
	IncludeLedger    bool    `json:"include_ledger,omitempty"`     // default: false
	TimeLimitSeconds float64 `json:"time_limit_seconds,omitempty"` // capped by the server limit
}

// PotentialRequest represents a request to summarise and rank curves
type PotentialRequest struct {
	Curves []model.ForwardCurve `json:"curves" binding:"required,min=1"`
}

// RankRequest represents a request to fetch and rank hub curves
type RankRequest struct {
	APIKey    string `form:"api_key" binding:"required"` // curve service API key
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	HubIDs    string `form:"hub_ids,omitempty"` // comma-separated; default: all known hubs
	Limit     int    `form:"limit,omitempty"`   // default: 10
}
