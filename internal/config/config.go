package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gouq/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Sampling  SamplingConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Paths     PathConfig
	Profiling ProfilingConfig
}

// SamplingConfig holds the sampler defaults used by posterior dispatch
type SamplingConfig struct {
	Seed             uint64
	ProgressInterval int
	CWMHScale        float64
	CWMHInitial      float64
	BurnInFraction   float64
	PCNScale         float64
	DefaultSamples   int
	MaxSamples       int
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port              string
	MaxConcurrentRuns int64
	RequestTimeout    time.Duration
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory run repository.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// PathConfig holds file system paths
type PathConfig struct {
	ExportDir string
}

// ProfilingConfig controls the optional pprof listener
type ProfilingConfig struct {
	Enabled bool
	Port    string
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Sampling:  *loadSamplingConfig(),
		Server:    *loadServerConfig(),
		Database:  *loadDatabaseConfig(),
		Paths:     *loadPathConfig(),
		Profiling: *loadProfilingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			Seed:             0,
			ProgressInterval: 500,
			CWMHScale:        0.05,
			CWMHInitial:      0.5,
			BurnInFraction:   0.2,
			PCNScale:         0.02,
			DefaultSamples:   5000,
			MaxSamples:       200000,
		},
		Server: ServerConfig{
			Port:              "8080",
			MaxConcurrentRuns: 2,
			RequestTimeout:    5 * time.Minute,
		},
		Database:  DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 5},
		Paths:     PathConfig{ExportDir: "./exports"},
		Profiling: ProfilingConfig{Port: "6060"},
	}
}

func loadSamplingConfig() *SamplingConfig {
	d := Default().Sampling
	return &SamplingConfig{
		Seed:             getEnvUint64OrDefault("SAMPLER_SEED", d.Seed),
		ProgressInterval: getEnvIntOrDefault("SAMPLER_PROGRESS_INTERVAL", d.ProgressInterval),
		CWMHScale:        getEnvFloatOrDefault("CWMH_SCALE", d.CWMHScale),
		CWMHInitial:      getEnvFloatOrDefault("CWMH_INITIAL", d.CWMHInitial),
		BurnInFraction:   getEnvFloatOrDefault("CWMH_BURN_IN_FRACTION", d.BurnInFraction),
		PCNScale:         getEnvFloatOrDefault("PCN_SCALE", d.PCNScale),
		DefaultSamples:   getEnvIntOrDefault("DEFAULT_SAMPLES", d.DefaultSamples),
		MaxSamples:       getEnvIntOrDefault("MAX_SAMPLES", d.MaxSamples),
	}
}

func loadServerConfig() *ServerConfig {
	d := Default().Server
	return &ServerConfig{
		Port:              getEnvOrDefault("PORT", d.Port),
		MaxConcurrentRuns: int64(getEnvIntOrDefault("MAX_CONCURRENT_RUNS", int(d.MaxConcurrentRuns))),
		RequestTimeout:    getEnvDurationOrDefault("REQUEST_TIMEOUT", d.RequestTimeout),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	d := Default().Database
	return &DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", d.MaxOpenConns),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", d.MaxIdleConns),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		ExportDir: getEnvOrDefault("EXPORT_DIR", Default().Paths.ExportDir),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Enabled: getEnvBoolOrDefault("PROFILING_ENABLED", false),
		Port:    getEnvOrDefault("PROFILING_PORT", Default().Profiling.Port),
	}
}

// Validate checks ranges; the CLI calls it after applying flag overrides.
func (c *Config) Validate() error { return validateConfig(c) }

func validateConfig(config *Config) error {
	s := config.Sampling
	if s.ProgressInterval < 1 {
		return errors.ConfigInvalid("SAMPLER_PROGRESS_INTERVAL must be positive")
	}
	if !(s.CWMHScale > 0) || !(s.PCNScale > 0) {
		return errors.ConfigInvalid("sampler scales must be positive")
	}
	if s.PCNScale > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("PCN_SCALE must be in (0, 1], got %g", s.PCNScale))
	}
	if s.BurnInFraction < 0 || s.BurnInFraction >= 1 {
		return errors.ConfigInvalid("CWMH_BURN_IN_FRACTION must be in [0, 1)")
	}
	if s.DefaultSamples < 1 || s.MaxSamples < s.DefaultSamples {
		return errors.ConfigInvalid("DEFAULT_SAMPLES must be positive and not exceed MAX_SAMPLES")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Server.MaxConcurrentRuns < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT_RUNS must be positive")
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

func getEnvUint64OrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
