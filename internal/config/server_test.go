package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	for _, env := range serverEnv {
		t.Setenv(env, "")
	}
	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./web/dist", cfg.StaticDir)
	assert.Equal(t, time.Hour, cfg.ResultCacheTTL)
	assert.Equal(t, time.Minute, cfg.SolverTimeLimit)
	assert.Equal(t, DefaultLimits(), cfg.Limits())
	assert.False(t, cfg.Production())
}

func TestLoadServerEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ENV", "production")
	t.Setenv("RESULT_CACHE_TTL", "15m")
	t.Setenv("SOLVER_TIME_LIMIT", "5s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_PERIODS", "48")
	t.Setenv("MAX_PROBLEM_SIZE", "5000")

	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Production())
	assert.Equal(t, 15*time.Minute, cfg.ResultCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.SolverTimeLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Limits{MaxPeriods: 48, MaxEntities: 64, MaxSize: 5000}, cfg.Limits())
}

func TestLoadServerFile(t *testing.T) {
	for _, env := range serverEnv {
		t.Setenv(env, "")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "server.yaml"), "port: \"7000\"\nstatic_dir: /srv/web\n")

	cfg, err := LoadServer(dir)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/srv/web", cfg.StaticDir)

	// a missing file is not an error
	cfg, err = LoadServer(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}
