package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/analysis"
	"gas-valuation/internal/api/models"
	"gas-valuation/internal/data"
	"gas-valuation/internal/model"
)

// PotentialHandler handles curve summary and ranking requests
type PotentialHandler struct {
	curveBaseURL string
	hubsPath     string
	log          *logrus.Logger
}

// NewPotentialHandler creates a new potential handler. curveBaseURL points
// at the curve service used by RankHubs; hubsPath is the hub list file.
func NewPotentialHandler(curveBaseURL, hubsPath string, log *logrus.Logger) *PotentialHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if hubsPath == "" {
		hubsPath = data.DefaultHubsPath()
	}
	return &PotentialHandler{curveBaseURL: curveBaseURL, hubsPath: hubsPath, log: log}
}

// ComputePotential handles POST /api/v1/potential
func (h *PotentialHandler) ComputePotential(c *gin.Context) {
	var req models.PotentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	byHub := make(map[string]model.ForwardCurve, len(req.Curves))
	for i := range req.Curves {
		curve := req.Curves[i]
		if err := data.ValidateCurve(&curve); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_CURVE",
					Message: err.Error(),
					Details: map[string]interface{}{"index": i, "hub": curve.Hub},
				},
			})
			return
		}
		key := curve.Hub
		if key == "" {
			key = fmt.Sprintf("curve_%d", i)
		}
		byHub[key] = curve
	}

	c.JSON(http.StatusOK, models.PotentialResponse{Rankings: rankings(analysis.RankByIntrinsicValue(byHub), 0)})
}

// RankHubs handles GET /api/v1/rank. Curves are fetched from the curve
// service with the caller's API key.
func (h *PotentialHandler) RankHubs(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_DATE",
				Message: "start_date must be in YYYY-MM-DD format",
			},
		})
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_DATE",
				Message: "end_date must be in YYYY-MM-DD format",
			},
		})
		return
	}

	hubIDs, err := h.hubIDs(req.HubIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "HUBS_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to load hubs: %v", err),
			},
		})
		return
	}

	client := data.NewCurveClient(req.APIKey, h.curveBaseURL, h.log)
	byHub := make(map[string]model.ForwardCurve, len(hubIDs))
	for _, hub := range hubIDs {
		curve, err := client.FetchCurve(c.Request.Context(), data.CurveQuery{Hub: hub, Start: start, End: end})
		if err != nil {
			var cErr *data.CurveError
			if !errors.As(err, &cErr) {
				h.log.WithError(err).WithField("hub", hub).Warn("skipping hub")
				continue
			}
			// Auth and rate-limit failures affect every hub; the rest only this one.
			switch cErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			default:
				h.log.WithError(err).WithField("hub", hub).Warn("skipping hub")
				continue
			}
			status := http.StatusUnauthorized
			if cErr.StatusCode == http.StatusTooManyRequests {
				status = http.StatusTooManyRequests
			}
			c.JSON(status, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    cErr.Code,
					Message: fmt.Sprintf("Error querying hub %s: %s", hub, cErr.Message),
					Details: map[string]interface{}{
						"status_code": cErr.StatusCode,
						"retry_after": cErr.RetryAfter,
						"hub":         hub,
					},
				},
			})
			return
		}
		byHub[hub] = *curve
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	c.JSON(http.StatusOK, models.PotentialResponse{Rankings: rankings(analysis.RankByIntrinsicValue(byHub), limit)})
}

// ListHubs handles GET /api/v1/hubs
func (h *PotentialHandler) ListHubs(c *gin.Context) {
	list, err := data.LoadHubs(h.hubsPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "HUBS_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to load hubs: %v", err),
			},
		})
		return
	}

	hubs := make([]models.HubInfo, len(list.Hubs))
	for i, hub := range list.Hubs {
		hubs[i] = models.HubInfo{ID: hub.ID, Name: hub.Name, Currency: hub.Currency}
	}
	c.JSON(http.StatusOK, gin.H{"hubs": hubs, "updated_at": list.UpdatedAt})
}

func (h *PotentialHandler) hubIDs(param string) ([]string, error) {
	if param != "" {
		var ids []string
		for _, id := range strings.Split(param, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	list, err := data.LoadHubs(h.hubsPath)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list.Hubs))
	for i, hub := range list.Hubs {
		ids[i] = hub.ID
	}
	return ids, nil
}

func rankings(ranked []analysis.RankedPotential, limit int) []models.Ranking {
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		out[i] = models.Ranking{
			Rank:           r.Rank,
			Hub:            r.Hub,
			Currency:       r.Currency,
			Count:          r.Count,
			MinMid:         r.MinMid,
			MaxMid:         r.MaxMid,
			MeanMid:        r.MeanMid,
			SpreadP95P05:   r.SpreadP95P05,
			MeanBidAsk:     r.MeanBidAsk,
			IntrinsicValue: r.IntrinsicValue,
		}
	}
	return out
}
