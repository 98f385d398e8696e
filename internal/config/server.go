package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig stores the settings of the HTTP API.
// The values are read by viper from environment variables and, when present,
// a server.yaml in the working directory.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	StaticDir       string        `mapstructure:"static_dir"`
	ResultCacheTTL  time.Duration `mapstructure:"result_cache_ttl"`
	SolverTimeLimit time.Duration `mapstructure:"solver_time_limit"`
	LogLevel        string        `mapstructure:"log_level"`
	CurveBaseURL    string        `mapstructure:"curve_base_url"`
	MaxPeriods      int           `mapstructure:"max_periods"`
	MaxEntities     int           `mapstructure:"max_entities"`
	MaxProblemSize  int           `mapstructure:"max_problem_size"`
}

// Limits are the network size limits applied to HTTP requests.
func (s ServerConfig) Limits() Limits {
	return Limits{MaxPeriods: s.MaxPeriods, MaxEntities: s.MaxEntities, MaxSize: s.MaxProblemSize}.orDefault()
}

// Production reports whether the server runs in release mode.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Env, "production")
}

// serverEnv maps keys to the environment variables the deployment sets.
var serverEnv = map[string]string{
	"port":              "API_PORT",
	"env":               "API_ENV",
	"static_dir":        "STATIC_DIR",
	"result_cache_ttl":  "RESULT_CACHE_TTL",
	"solver_time_limit": "SOLVER_TIME_LIMIT",
	"log_level":         "LOG_LEVEL",
	"curve_base_url":    "CURVE_BASE_URL",
	"max_periods":       "MAX_PERIODS",
	"max_entities":      "MAX_ENTITIES",
	"max_problem_size":  "MAX_PROBLEM_SIZE",
}

// LoadServer reads the server configuration from the environment. dir, when
// not empty, is searched for an optional server.yaml.
func LoadServer(dir string) (cfg ServerConfig, err error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("static_dir", "./web/dist")
	v.SetDefault("result_cache_ttl", time.Hour)
	v.SetDefault("solver_time_limit", 60*time.Second)
	v.SetDefault("log_level", "info")
	limits := DefaultLimits()
	v.SetDefault("max_periods", limits.MaxPeriods)
	v.SetDefault("max_entities", limits.MaxEntities)
	v.SetDefault("max_problem_size", limits.MaxSize)

	for key, env := range serverEnv {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("server")
		v.SetConfigType("yaml")
		if err = v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return cfg, fmt.Errorf("server config: %w", err)
			}
			err = nil
		}
	}

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("server config: %w", err)
	}
	if cfg.Port == "" {
		return cfg, fmt.Errorf("%w: port must not be empty", ErrInvalidConfig)
	}
	return cfg, nil
}
