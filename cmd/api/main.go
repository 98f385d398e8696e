package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/api"
	"gas-valuation/internal/config"
	"gas-valuation/internal/data"
	"gas-valuation/internal/solver"
	"gas-valuation/internal/valuation"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Environment first, then an optional server.yaml in the working directory.
	cfg, err := config.LoadServer(".")
	if err != nil {
		log.WithError(err).Fatal("failed to load server config")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if wd, err := os.Getwd(); err == nil {
		log.WithField("dir", wd).Info("working directory")
	}

	cache := data.NewResultCache(cfg.ResultCacheTTL)
	defer cache.Close()

	router := api.NewRouter(api.Deps{
		Engine:          valuation.New(solver.NewLocal(log), log),
		Cache:           cache,
		Log:             log,
		SolverTimeLimit: cfg.SolverTimeLimit,
		Limits:          cfg.Limits(),
		CurveBaseURL:    cfg.CurveBaseURL,
		HubsPath:        data.DefaultHubsPath(),
		StaticDir:       cfg.StaticDir,
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":         addr,
		"env":          cfg.Env,
		"cache_ttl":    cfg.ResultCacheTTL,
		"solver_limit": cfg.SolverTimeLimit,
		"max_size":     cfg.Limits().MaxSize,
	}).Info("starting API server")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
