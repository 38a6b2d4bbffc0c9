package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"linkbias/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Simulation SimulationConfig
	Paths      PathConfig
	LogLevel   string
}

// DatabaseConfig holds database connection settings. An empty URL means runs
// are kept in memory only.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	UIPort  string
	GinMode string
}

// SimulationConfig holds execution settings that never affect results
type SimulationConfig struct {
	Workers           int
	MaxConcurrentRuns int
	RunTimeout        time.Duration
	KeepTrials        bool
	MaxPopulation     int
	PopulationCache   int
}

// PathConfig holds file system paths
type PathConfig struct {
	OutputDir string
	Scenario  string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:   loadDatabaseConfig(),
		Server:     loadServerConfig(),
		Simulation: loadSimulationConfig(),
		Paths:      loadPathConfig(),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// HasDatabase reports whether a database URL (Postgres or SQLite) is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		UIPort:  getEnvOrDefault("UI_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Workers:           getEnvIntOrDefault("LINKBIAS_WORKERS", runtime.NumCPU()),
		MaxConcurrentRuns: getEnvIntOrDefault("LINKBIAS_MAX_RUNS", 2),
		RunTimeout:        getEnvDurationOrDefault("LINKBIAS_RUN_TIMEOUT", 10*time.Minute),
		KeepTrials:        getEnvBoolOrDefault("LINKBIAS_KEEP_TRIALS", true),
		MaxPopulation:     getEnvIntOrDefault("LINKBIAS_MAX_POPULATION", 5_000_000),
		PopulationCache:   getEnvIntOrDefault("LINKBIAS_POPULATION_CACHE", 4),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		OutputDir: getEnvOrDefault("LINKBIAS_OUTPUT_DIR", "."),
		Scenario:  getEnvOrDefault("LINKBIAS_SCENARIO", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Simulation.Workers < 1 {
		return errors.ConfigInvalid("LINKBIAS_WORKERS must be >= 1")
	}
	if config.Simulation.MaxConcurrentRuns < 1 {
		return errors.ConfigInvalid("LINKBIAS_MAX_RUNS must be >= 1")
	}
	if config.Simulation.RunTimeout <= 0 {
		return errors.ConfigInvalid("LINKBIAS_RUN_TIMEOUT must be positive")
	}
	if config.Simulation.MaxPopulation < 1 {
		return errors.ConfigInvalid("LINKBIAS_MAX_POPULATION must be >= 1")
	}
	if config.Simulation.PopulationCache < 1 {
		return errors.ConfigInvalid("LINKBIAS_POPULATION_CACHE must be >= 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
