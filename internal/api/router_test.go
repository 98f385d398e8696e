package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/api/models"
	"gas-valuation/internal/data"
	"gas-valuation/internal/solver"
	"gas-valuation/internal/valuation"
)

const valuationBody = `{
  "config": {
    "name": "api_test",
    "grid": {"periods": 2},
    "storages": [{"name": "stor", "wgv": 20000, "ci": 420, "cr": 420,
                  "bid": [19.8, 29.7], "ask": [20.2, 30.3]}],
    "markets": [
      {"name": "buy", "bid": [19.8, 29.7], "ask": [20.2, 30.3]},
      {"name": "sell", "bid": [19.8, 29.7], "ask": [20.2, 30.3]}
    ],
    "links": [{"from": "buy", "to": "stor"}, {"from": "stor", "to": "sell"}]
  },
  "options": {"include_ledger": true}
}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *data.ResultCache) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cache := data.NewResultCache(0)
	t.Cleanup(cache.Close)

	hubs := filepath.Join(t.TempDir(), "hubs.json")
	require.NoError(t, data.SaveHubs(&data.HubList{
		UpdatedAt: "2024-04-01T00:00:00Z",
		Hubs:      []data.Hub{{ID: "TTF", Name: "Title Transfer Facility", Currency: "EUR"}},
	}, hubs))

	r := NewRouter(Deps{
		Engine:   valuation.New(solver.NewLocal(log), log),
		Cache:    cache,
		Log:      log,
		HubsPath: hubs,
	})
	return r, cache
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRunValuationAndLedger(t *testing.T) {
	r, cache := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/valuation", valuationBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ValuationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Optimal", resp.Status)
	assert.Equal(t, "95760.00", resp.Summary.Value)
	assert.Equal(t, 2, resp.Summary.Periods)
	require.Len(t, resp.Summary.Entities, 3)
	assert.Equal(t, "stor", resp.Summary.Entities[0].Entity)
	assert.Len(t, resp.Ledger, 6)
	assert.Equal(t, 1, cache.Len())

	w = do(r, http.MethodGet, "/api/v1/valuation/"+resp.ID+"/ledger?entity=buy", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ledger models.LedgerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	require.Len(t, ledger.Ledger, 2)
	assert.Equal(t, "-203616.00", ledger.Ledger[0].Value)
	assert.Equal(t, "TRANSIT", ledger.Ledger[0].Action)

	w = do(r, http.MethodGet, "/api/v1/valuation/"+resp.ID+"/ledger", "", "Accept", "text/csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "index,start_hours"))
}

func TestGetLedgerNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/v1/valuation/not-an-id/ledger", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestRunValuationErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"config": `, http.StatusBadRequest, "INVALID_REQUEST"},
		{"file reference", `{"config": {"grid": {"periods": 1}, "curve_file": "x.json"}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"no entities", `{"config": {"grid": {"periods": 1}}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"too many periods", `{"config": {"grid": {"periods": 5000}, "markets": [{"name": "m"}]}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"too large", `{"config": {"grid": {"periods": 300},
			"markets": [{"name": "a"}, {"name": "b"}, {"name": "c"}, {"name": "d"}]}}`,
			http.StatusBadRequest, "INVALID_CONFIG"},
		{"duplicate", `{"config": {"grid": {"periods": 1}, "markets": [{"name": "m"}, {"name": "m"}]}}`, http.StatusBadRequest, "DUPLICATE_NAME"},
		{"shape", `{"config": {"grid": {"periods": 1}, "markets": [{"name": "m", "bid": [1, 2]}]}}`, http.StatusBadRequest, "SHAPE_MISMATCH"},
		{"infeasible", `{"config": {"grid": {"periods": 1},
			"storages": [{"name": "s", "wgv": 1000, "ci": 1, "cr": 1, "final_level": 1}]}}`,
			http.StatusUnprocessableEntity, "SOLVER_FAILURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t)
			w := do(r, http.MethodPost, "/api/v1/valuation", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestComputePotential(t *testing.T) {
	r, _ := newTestRouter(t)
	body := `{"curves": [
	  {"hub": "flat", "points": [
	    {"start": "2024-04-01T06:00:00Z", "end": "2024-04-02T06:00:00Z", "bid": 20, "ask": 21},
	    {"start": "2024-04-02T06:00:00Z", "end": "2024-04-03T06:00:00Z", "bid": 20, "ask": 21}]},
	  {"hub": "TTF", "points": [
	    {"start": "2024-04-01T06:00:00Z", "end": "2024-04-02T06:00:00Z", "bid": 19, "ask": 20},
	    {"start": "2024-04-02T06:00:00Z", "end": "2024-04-03T06:00:00Z", "bid": 30, "ask": 31}]}
	]}`
	w := do(r, http.MethodPost, "/api/v1/potential", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PotentialResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, "TTF", resp.Rankings[0].Hub)
	assert.Equal(t, 1, resp.Rankings[0].Rank)
	assert.Greater(t, resp.Rankings[0].IntrinsicValue, 0.0)

	w = do(r, http.MethodPost, "/api/v1/potential", `{"curves": [{"hub": "x", "points": []}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CURVE", decodeError(t, w).Code)

	w = do(r, http.MethodPost, "/api/v1/potential", `{"curves": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankHubs(t *testing.T) {
	curves := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.Header.Get("x-api-key") != "good-key":
			w.WriteHeader(http.StatusUnauthorized)
		case strings.HasSuffix(req.URL.Path, "/TTF"):
			io.WriteString(w, `{"hub": "TTF", "points": [
			  {"start": "2024-04-01T06:00:00Z", "end": "2024-04-02T06:00:00Z", "bid": 19, "ask": 20},
			  {"start": "2024-04-02T06:00:00Z", "end": "2024-04-03T06:00:00Z", "bid": 30, "ask": 31}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer curves.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewRouter(Deps{Log: log, CurveBaseURL: curves.URL, HubsPath: filepath.Join(t.TempDir(), "none.json")})

	w := do(r, http.MethodGet, "/api/v1/rank?api_key=good-key&start_date=2024-04-01&end_date=2024-04-03&hub_ids=TTF,NBP", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.PotentialResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rankings, 1)
	assert.Equal(t, "TTF", resp.Rankings[0].Hub)

	w = do(r, http.MethodGet, "/api/v1/rank?api_key=bad&start_date=2024-04-01&end_date=2024-04-03&hub_ids=TTF", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_API_KEY", decodeError(t, w).Code)

	w = do(r, http.MethodGet, "/api/v1/rank?api_key=good-key&start_date=April&end_date=2024-04-03", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE", decodeError(t, w).Code)

	// no hub_ids and no hubs file
	w = do(r, http.MethodGet, "/api/v1/rank?api_key=good-key&start_date=2024-04-01&end_date=2024-04-03", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListHubs(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/v1/hubs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"TTF"`)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodOptions, "/api/v1/valuation", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0644))
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewRouter(Deps{Log: log, StaticDir: dir})

	w := do(r, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app")

	w = do(r, http.MethodGet, "/api/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
