package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gas-valuation/internal/model"
)

// CurveRequestsPerSecond is the default request rate towards the curve service.
const CurveRequestsPerSecond = 5

// CurveClient fetches forward curves from a curve service over HTTP.
type CurveClient struct {
	APIKey      string
	BaseURL     string
	Client      *http.Client
	RateLimiter *rate.Limiter
	Log         *logrus.Logger
}

// NewCurveClient creates a curve service client with a 30s timeout.
func NewCurveClient(apiKey, baseURL string, log *logrus.Logger) *CurveClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CurveClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		RateLimiter: rate.NewLimiter(rate.Limit(CurveRequestsPerSecond), CurveRequestsPerSecond),
		Log:         log,
	}
}

// CurveQuery selects the delivery range of one hub's curve.
type CurveQuery struct {
	Hub   string    // e.g., "TTF"
	Start time.Time // first delivery day
	End   time.Time // end of the last delivery day
}

// CurveError represents an error returned by the curve service.
type CurveError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *CurveError) Error() string {
	return e.Message
}

// FetchCurve requests GET {base}/v1/curves/{hub}?start=YYYY-MM-DD&end=YYYY-MM-DD
// and validates the returned curve.
func (c *CurveClient) FetchCurve(ctx context.Context, q CurveQuery) (*model.ForwardCurve, error) {
	if c.APIKey == "" {
		return nil, &CurveError{Code: "MISSING_API_KEY", Message: "API key is required"}
	}
	if q.Hub == "" {
		return nil, fmt.Errorf("hub is required")
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return nil, fmt.Errorf("start and end are required")
	}
	if !q.Start.Before(q.End) {
		return nil, fmt.Errorf("start must be before end")
	}

	u, err := url.Parse(c.BaseURL + "/v1/curves/" + url.PathEscape(q.Hub))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	v := u.Query()
	v.Set("start", q.Start.Format("2006-01-02"))
	v.Set("end", q.End.Format("2006-01-02"))
	u.RawQuery = v.Encode()

	log := c.Log.WithFields(logrus.Fields{"hub": q.Hub, "start": v.Get("start"), "end": v.Get("end")})
	log.WithField("path", u.Path).Debug("curve request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	if c.RateLimiter != nil {
		if err := c.RateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	started := time.Now()
	resp, err := c.Client.Do(req)
	elapsed := time.Since(started)
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Error("curve request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": elapsed})

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		log.Warn("curve service rejected the API key")
		return nil, &CurveError{StatusCode: resp.StatusCode, Code: "INVALID_API_KEY", Message: "Invalid API key or insufficient permissions"}
	case http.StatusNotFound:
		return nil, &CurveError{StatusCode: resp.StatusCode, Code: "UNKNOWN_HUB", Message: fmt.Sprintf("no curve for hub %s", q.Hub)}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		log.WithField("retry_after", retryAfter).Warn("curve service rate limit")
		return nil, &CurveError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		log.Error("curve service error")
		return nil, &CurveError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	curve, err := DecodeForwardCurve(resp.Body)
	if err != nil {
		log.WithError(err).Error("curve response rejected")
		return nil, err
	}
	if curve.Hub == "" {
		curve.Hub = q.Hub
	}
	log.WithField("points", len(curve.Points)).Info("curve received")
	return curve, nil
}
