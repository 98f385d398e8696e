package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/api/middleware"
	"gas-valuation/internal/api/models"
	"gas-valuation/internal/config"
	"gas-valuation/internal/data"
	"gas-valuation/internal/valuation"
)

// ValuationHandler handles valuation-related requests
type ValuationHandler struct {
	engine       *valuation.Engine
	cache        *data.ResultCache
	maxTimeLimit time.Duration
	limits       config.Limits
	log          *logrus.Logger
}

// NewValuationHandler creates a new valuation handler. maxTimeLimit caps the
// solver time of every request; zero leaves requests uncapped. Networks
// beyond limits are rejected before they are built.
func NewValuationHandler(engine *valuation.Engine, cache *data.ResultCache, maxTimeLimit time.Duration, limits config.Limits, log *logrus.Logger) *ValuationHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if engine == nil {
		engine = valuation.New(nil, log)
	}
	return &ValuationHandler{engine: engine, cache: cache, maxTimeLimit: maxTimeLimit, limits: limits, log: log}
}

// RunValuation handles POST /api/v1/valuation
func (h *ValuationHandler) RunValuation(c *gin.Context) {
	var req models.ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	cfg := &req.Config
	if cfg.HasFileReferences() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_CONFIG",
				Message: "curve_file and storage_file are not accepted over HTTP; send the curve and storage inline",
			},
		})
		return
	}

	if err := cfg.CheckLimits(h.limits); err != nil {
		middleware.AbortWithError(c, fmt.Errorf("network config invalid: %w", err))
		return
	}

	net, g, err := cfg.Build()
	if err != nil {
		middleware.AbortWithError(c, fmt.Errorf("network config invalid: %w", err))
		return
	}

	params := cfg.SolverParams()
	if req.Options.TimeLimitSeconds > 0 {
		params.TimeLimit = time.Duration(req.Options.TimeLimitSeconds * float64(time.Second))
	}
	if h.maxTimeLimit > 0 && (params.TimeLimit == 0 || params.TimeLimit > h.maxTimeLimit) {
		params.TimeLimit = h.maxTimeLimit
	}

	result, err := h.engine.Run(c.Request.Context(), net, g, params)
	if err != nil {
		h.log.WithError(err).WithField("network", net.Name).Warn("valuation failed")
		middleware.AbortWithError(c, err)
		return
	}

	id := h.cache.Put(result)
	c.JSON(http.StatusOK, buildResponse(id, g.N(), result, req.Options.IncludeLedger))
}

// GetLedger handles GET /api/v1/valuation/:id/ledger. The ledger is returned
// as JSON, or as CSV with ?format=csv or an Accept: text/csv header.
// ?entity=<name> restricts it to one entity.
func (h *ValuationHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	result, ok := h.cache.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "valuation not found or expired",
				Details: map[string]interface{}{"id": id},
			},
		})
		return
	}

	rows := result.Ledger
	if entity := c.Query("entity"); entity != "" {
		rows = result.Rows(entity)
	}

	if c.Query("format") == "csv" || strings.Contains(c.GetHeader("Accept"), "text/csv") {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-%s.csv", id))
		c.Status(http.StatusOK)
		if err := valuation.WriteLedger(c.Writer, rows); err != nil {
			h.log.WithError(err).WithField("id", id).Error("ledger csv write failed")
		}
		return
	}

	c.JSON(http.StatusOK, models.LedgerResponse{ID: id, Ledger: ledgerRows(rows)})
}

func buildResponse(id string, periods int, result *valuation.Result, includeLedger bool) models.ValuationResponse {
	summary := models.ValuationSummary{
		Problem:   result.Problem,
		Value:     result.Value.StringFixed(valuation.CashPlaces),
		Objective: result.Objective,
		Bound:     result.Bound,
		Gap:       result.Gap,
		Nodes:     result.Nodes,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Periods:   periods,
		Entities:  make([]models.EntityValue, 0, len(result.Entities)),

		Violations: result.Violations,
	}
	for _, e := range result.Entities {
		summary.Entities = append(summary.Entities, models.EntityValue{
			Entity: e.Entity,
			Kind:   e.Kind.String(),
			Value:  e.Value.StringFixed(valuation.CashPlaces),
		})
	}
	for _, w := range result.Warnings {
		summary.Warnings = append(summary.Warnings, models.Warning{
			Entity:   w.Entity,
			Variable: w.Variable,
			Value:    w.Value,
			BigM:     w.BigM,
		})
	}

	response := models.ValuationResponse{
		ID:      id,
		Status:  result.Status.String(),
		Summary: summary,
	}
	if includeLedger {
		response.Ledger = ledgerRows(result.Ledger)
	}
	return response
}

func ledgerRows(rows []valuation.LedgerRow) []models.LedgerRow {
	out := make([]models.LedgerRow, len(rows))
	for i, r := range rows {
		out[i] = models.LedgerRow{
			Index:         r.Index,
			StartHours:    r.StartHours,
			DurationHours: r.DurationHours,
			Entity:        r.Entity,
			Kind:          r.Kind.String(),
			Action:        string(r.Action),
			InFlowMWh:     r.InFlowMWh,
			OutFlowMWh:    r.OutFlowMWh,
			LevelStart:    r.LevelStart,
			LevelEnd:      r.LevelEnd,
			Injection:     r.Injection,
			Release:       r.Release,
			LongMW:        r.LongMW,
			ShortMW:       r.ShortMW,
			SalesMW:       r.SalesMW,
			PurchaseMW:    r.PurchaseMW,
			Value:         r.Value.StringFixed(valuation.CashPlaces),
			CumValue:      r.CumValue.StringFixed(valuation.CashPlaces),
		}
	}
	return out
}
