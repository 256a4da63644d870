package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from the optional iacscan.yml file and
// environment variables. Environment variables win over file values.
func Load() (*Config, error) {
	cfg := &Config{
		Scan: ScanConfig{
			ToolTimeout: 5 * time.Minute,
			ReportDir:   ".",
		},
		Lookup: LookupConfig{
			Region:       "us-east-1",
			Architecture: "x86_64",
			LiveLookups:  true,
			Timeout:      30 * time.Second,
			Limit:        3,
		},
		Cache: CacheConfig{
			Path: "iacscan.db",
			TTL:  time.Hour,
		},
		Gate: GateConfig{
			Expression:     "failCount == 0 && errorCount == 0",
			FailureMessage: "scan gate failed",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsPort: 0, // disabled unless set
		},
	}

	path := getEnv("IACSCAN_CONFIG", "iacscan.yml")
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		applyFile(cfg, &fc)
	}

	applyEnv(cfg)

	return cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.Scan.ToolTimeout != "" {
		if d, err := parseInterval(fc.Scan.ToolTimeout); err == nil {
			cfg.Scan.ToolTimeout = d
		}
	}
	if fc.Scan.ReportDir != "" {
		cfg.Scan.ReportDir = fc.Scan.ReportDir
	}
	if fc.Lookup.Region != "" {
		cfg.Lookup.Region = fc.Lookup.Region
	}
	if fc.Lookup.Architecture != "" {
		cfg.Lookup.Architecture = fc.Lookup.Architecture
	}
	if fc.Lookup.LiveLookups != nil {
		cfg.Lookup.LiveLookups = *fc.Lookup.LiveLookups
	}
	if fc.Lookup.Timeout != "" {
		if d, err := parseInterval(fc.Lookup.Timeout); err == nil {
			cfg.Lookup.Timeout = d
		}
	}
	if fc.Lookup.Limit > 0 {
		cfg.Lookup.Limit = fc.Lookup.Limit
	}
	if fc.Cache.Path != "" {
		cfg.Cache.Path = fc.Cache.Path
	}
	if fc.Cache.TTL != "" {
		if d, err := parseInterval(fc.Cache.TTL); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if fc.Gate.Expression != "" {
		cfg.Gate.Expression = fc.Gate.Expression
	}
	if fc.Gate.FailureMessage != "" {
		cfg.Gate.FailureMessage = fc.Gate.FailureMessage
	}
	if fc.Observability.LogLevel != "" {
		cfg.Observability.LogLevel = fc.Observability.LogLevel
	}
	if fc.Observability.MetricsPort > 0 {
		cfg.Observability.MetricsPort = fc.Observability.MetricsPort
	}
}

func applyEnv(cfg *Config) {
	cfg.Scan.ToolTimeout = getEnvDuration("IACSCAN_TOOL_TIMEOUT", cfg.Scan.ToolTimeout)
	cfg.Scan.ReportDir = getEnv("IACSCAN_REPORT_DIR", cfg.Scan.ReportDir)

	cfg.Lookup.Region = getEnv("IACSCAN_REGION", cfg.Lookup.Region)
	cfg.Lookup.Architecture = getEnv("IACSCAN_ARCHITECTURE", cfg.Lookup.Architecture)
	cfg.Lookup.LiveLookups = getEnvBool("IACSCAN_LIVE_LOOKUPS", cfg.Lookup.LiveLookups)
	cfg.Lookup.Timeout = getEnvDuration("IACSCAN_LOOKUP_TIMEOUT", cfg.Lookup.Timeout)
	cfg.Lookup.Limit = getEnvInt("IACSCAN_ALTERNATIVE_LIMIT", cfg.Lookup.Limit)

	cfg.Cache.Path = getEnv("IACSCAN_CACHE_PATH", cfg.Cache.Path)
	cfg.Cache.TTL = getEnvDuration("IACSCAN_CACHE_TTL", cfg.Cache.TTL)

	cfg.Gate.Expression = getEnv("IACSCAN_GATE_EXPRESSION", cfg.Gate.Expression)

	cfg.Observability.LogLevel = getEnv("IACSCAN_LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsPort = getEnvInt("IACSCAN_METRICS_PORT", cfg.Observability.MetricsPort)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Scan.ToolTimeout <= 0 {
		return fmt.Errorf("tool timeout must be positive")
	}

	if c.Lookup.Limit <= 0 {
		return fmt.Errorf("alternative limit must be positive")
	}

	if c.Lookup.Region == "" {
		return fmt.Errorf("lookup region is required")
	}

	if c.Lookup.Architecture != "x86_64" && c.Lookup.Architecture != "arm64" {
		return fmt.Errorf("invalid architecture: %s (must be x86_64 or arm64)", c.Lookup.Architecture)
	}

	if c.Cache.Path == "" {
		return fmt.Errorf("cache path is required")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Gate.Expression == "" {
		return fmt.Errorf("gate expression is required")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
