package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"gas-valuation/internal/config"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("network %q: %w", "n", fmt.Errorf("%w: problem is Infeasible", solver.ErrSolverFailure)), http.StatusUnprocessableEntity, "SOLVER_FAILURE"},
		{fmt.Errorf("product %q: %w", "p", model.ErrIndexOutOfRange), http.StatusBadRequest, "INDEX_OUT_OF_RANGE"},
		{fmt.Errorf("network config invalid: %w", fmt.Errorf("%w: no entities", config.ErrInvalidConfig)), http.StatusBadRequest, "INVALID_CONFIG"},
		{model.ErrPreconditionViolated, http.StatusInternalServerError, "PRECONDITION_VIOLATED"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestErrorHandlerRecovers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	r := gin.New()
	r.Use(ErrorHandler(log))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": {"code": "INTERNAL_ERROR", "message": "boom"}}`, w.Body.String())
}
