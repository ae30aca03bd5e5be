package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Ranking configuration
	RankingMode     string        // "period" or "cumulative"
	RankingPolicy   string        // "strict" or "competition"
	RankingInterval time.Duration // how often the scheduler recomputes snapshots
	RankBonusDepth  int           // how many top ranks receive a rank_bonus award

	// Contention handling
	ConflictMaxRetries int // bounded retries for transient transaction conflicts

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Defaults
		RankingMode:        "period",
		RankingPolicy:      "strict",
		RankingInterval:    60 * time.Minute,
		RankBonusDepth:     3,
		ConflictMaxRetries: 3,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if mode := os.Getenv("RANKING_MODE"); mode != "" {
		if mode != "period" && mode != "cumulative" {
			return nil, fmt.Errorf("RANKING_MODE must be 'period' or 'cumulative', got %q", mode)
		}
		config.RankingMode = mode
	}
	if policy := os.Getenv("RANKING_POLICY"); policy != "" {
		if policy != "strict" && policy != "competition" {
			return nil, fmt.Errorf("RANKING_POLICY must be 'strict' or 'competition', got %q", policy)
		}
		config.RankingPolicy = policy
	}
	if minutes := os.Getenv("RANKING_INTERVAL_MINUTES"); minutes != "" {
		if parsed, err := strconv.Atoi(minutes); err == nil && parsed > 0 {
			config.RankingInterval = time.Duration(parsed) * time.Minute
		}
	}
	if depth := os.Getenv("RANK_BONUS_DEPTH"); depth != "" {
		if parsed, err := strconv.Atoi(depth); err == nil && parsed >= 0 {
			config.RankBonusDepth = parsed
		}
	}
	if retries := os.Getenv("CONFLICT_MAX_RETRIES"); retries != "" {
		if parsed, err := strconv.Atoi(retries); err == nil && parsed >= 0 {
			config.ConflictMaxRetries = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
