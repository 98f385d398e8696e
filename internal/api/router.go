package api

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/api/handlers"
	"gas-valuation/internal/api/middleware"
	"gas-valuation/internal/config"
	"gas-valuation/internal/data"
	"gas-valuation/internal/valuation"
)

// Deps are the shared services behind the routes.
type Deps struct {
	Engine          *valuation.Engine
	Cache           *data.ResultCache
	Log             *logrus.Logger
	SolverTimeLimit time.Duration
	// Limits bound the networks accepted by POST /valuation. Zero fields
	// take config.DefaultLimits.
	Limits       config.Limits
	CurveBaseURL string
	HubsPath     string
	// StaticDir, when it exists, is served as a single-page app.
	StaticDir string
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))

	valuationHandler := handlers.NewValuationHandler(d.Engine, d.Cache, d.SolverTimeLimit, d.Limits, d.Log)
	potentialHandler := handlers.NewPotentialHandler(d.CurveBaseURL, d.HubsPath, d.Log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_results": d.Cache.Len()})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/valuation", valuationHandler.RunValuation)
		api.GET("/valuation/:id/ledger", valuationHandler.GetLedger)

		api.POST("/potential", potentialHandler.ComputePotential)
		api.GET("/rank", potentialHandler.RankHubs)
		api.GET("/hubs", potentialHandler.ListHubs)
	}

	if d.StaticDir == "" {
		return router
	}
	if _, err := os.Stat(d.StaticDir); err != nil {
		d.Log.WithField("dir", d.StaticDir).Info("static directory not found, skipping static file serving")
		return router
	}
	router.Static("/assets", d.StaticDir+"/assets")
	router.StaticFile("/favicon.ico", d.StaticDir+"/favicon.ico")

	// Serve index.html for all non-API routes (SPA routing)
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(d.StaticDir + "/index.html")
	})
	d.Log.WithField("dir", d.StaticDir).Info("serving static files")
	return router
}
