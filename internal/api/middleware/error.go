package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/api/models"
	"gas-valuation/internal/config"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"panic": fmt.Sprint(recovered),
		}).Error("request panicked")

		message := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: message,
			},
		})
	})
}

// errorKinds maps sentinel errors to an HTTP status and an error code.
// The first match wins.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{solver.ErrSolverFailure, http.StatusUnprocessableEntity, "SOLVER_FAILURE"},
	{model.ErrInvalidName, http.StatusBadRequest, "INVALID_NAME"},
	{model.ErrDuplicateName, http.StatusBadRequest, "DUPLICATE_NAME"},
	{model.ErrShapeMismatch, http.StatusBadRequest, "SHAPE_MISMATCH"},
	{model.ErrIndexOutOfRange, http.StatusBadRequest, "INDEX_OUT_OF_RANGE"},
	{model.ErrInvalidTuple, http.StatusBadRequest, "INVALID_TUPLE"},
	{model.ErrInvalidParameter, http.StatusBadRequest, "INVALID_PARAMETER"},
	{model.ErrPreconditionViolated, http.StatusInternalServerError, "PRECONDITION_VIOLATED"},
	{config.ErrInvalidConfig, http.StatusBadRequest, "INVALID_CONFIG"},
}

// Classify returns the HTTP status and code for err. Unknown errors map to
// 500 INTERNAL_ERROR.
func Classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// AbortWithError writes the ErrorResponse for err and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, code := Classify(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
