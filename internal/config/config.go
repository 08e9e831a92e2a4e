// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"runtime"

	"github.com/okian/riftelo/internal/domain/offset"
	"github.com/okian/riftelo/internal/domain/variant"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MatchesPath points at the match history export (csv, yaml or json).
	MatchesPath string `koanf:"matches_path"`

	// RegionsPath points at the optional team to region mapping.
	RegionsPath string `koanf:"regions_path"`

	// DedupeSize bounds duplicate suppression while reading history. Zero
	// means unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreBackend selects where results are cached: memory, postgres or redis.
	StoreBackend string `koanf:"store_backend"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// DefaultRating is the rating of a team's first appearance.
	DefaultRating float64 `koanf:"default_rating"`

	// Default rating configuration.
	Variant            string             `koanf:"variant"`
	KFactor            float64            `koanf:"k_factor"`
	UseScaleFactors    bool               `koanf:"use_scale_factors"`
	UseRegionalOffsets bool               `koanf:"use_regional_offsets"`
	ScaleFactors       map[string]float64 `koanf:"scale_factors"`

	// Regional offset learner tuning.
	MaxOffset      float64 `koanf:"max_offset"`
	PriorStd       float64 `koanf:"prior_std"`
	ConfidenceStep float64 `koanf:"confidence_step"`

	// ValidationFolds is the default fold count for POST /validate.
	ValidationFolds int `koanf:"validation_folds"`

	// ValidationWorkers bounds concurrently evaluated folds.
	ValidationWorkers int `koanf:"validation_workers"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		MatchesPath:         "data/matches.csv",
		StoreBackend:        "memory",
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "riftelo",
		DefaultRating:       1500,
		Variant:             variant.TournamentContext.String(),
		KFactor:             24,
		UseScaleFactors:     true,
		UseRegionalOffsets:  true,
		MaxOffset:           offset.DefaultMaxOffset,
		PriorStd:            offset.DefaultPriorStd,
		ConfidenceStep:      offset.DefaultConfidenceStep,
		ValidationFolds:     5,
		ValidationWorkers:   runtime.NumCPU(),
		MaxLeaderboardLimit: 100,
	}
}

// RatingSpec returns the default rating configuration in its plain form.
func (c *Config) RatingSpec() variant.Spec {
	return variant.Spec{
		Variant:            c.Variant,
		KFactor:            c.KFactor,
		UseScaleFactors:    c.UseScaleFactors,
		ScaleFactors:       c.ScaleFactors,
		UseRegionalOffsets: c.UseRegionalOffsets,
		Tuning:             c.Tuning(),
	}
}

// Tuning returns the engine parameters described by c.
func (c *Config) Tuning() variant.Tuning {
	return variant.Tuning{
		InitialRating:  c.DefaultRating,
		MaxOffset:      c.MaxOffset,
		PriorStd:       c.PriorStd,
		ConfidenceStep: c.ConfidenceStep,
	}
}
