package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Scan          ScanConfig
	Lookup        LookupConfig
	Cache         CacheConfig
	Gate          GateConfig
	Observability ObservabilityConfig
}

// ScanConfig configures tool execution and report output
type ScanConfig struct {
	ToolTimeout time.Duration
	ReportDir   string
}

// LookupConfig configures alternative-image resolution
type LookupConfig struct {
	Region       string
	Architecture string
	LiveLookups  bool
	Timeout      time.Duration
	Limit        int
}

// CacheConfig configures the lookup cache and session history store
type CacheConfig struct {
	Path string
	TTL  time.Duration
}

// GateConfig configures the CEL policy gate evaluated after aggregation
type GateConfig struct {
	Expression     string
	FailureMessage string
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort int
}

// fileConfig mirrors the optional iacscan.yml layout. Interval fields use
// shorthand notation ("30m", "2h", "7d") rather than Go duration strings.
type fileConfig struct {
	Scan struct {
		ToolTimeout string `yaml:"toolTimeout,omitempty"`
		ReportDir   string `yaml:"reportDir,omitempty"`
	} `yaml:"scan,omitempty"`
	Lookup struct {
		Region       string `yaml:"region,omitempty"`
		Architecture string `yaml:"architecture,omitempty"`
		LiveLookups  *bool  `yaml:"liveLookups,omitempty"`
		Timeout      string `yaml:"timeout,omitempty"`
		Limit        int    `yaml:"limit,omitempty"`
	} `yaml:"lookup,omitempty"`
	Cache struct {
		Path string `yaml:"path,omitempty"`
		TTL  string `yaml:"ttl,omitempty"`
	} `yaml:"cache,omitempty"`
	Gate struct {
		Expression     string `yaml:"expression,omitempty"`
		FailureMessage string `yaml:"failureMessage,omitempty"`
	} `yaml:"gate,omitempty"`
	Observability struct {
		LogLevel    string `yaml:"logLevel,omitempty"`
		MetricsPort int    `yaml:"metricsPort,omitempty"`
	} `yaml:"observability,omitempty"`
}
