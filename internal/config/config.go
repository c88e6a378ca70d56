// Package config provides configuration loading for wbs.
//
// Configuration is assembled from defaults, an optional YAML file and
// WBS_-prefixed environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Config holds the complete wbs configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Scoring       ScoringConfig       `koanf:"scoring"`
	Report        ReportConfig        `koanf:"report"`
	Input         InputConfig         `koanf:"input"`
	Lint          LintConfig          `koanf:"lint"`
	Secrets       SecretsConfig       `koanf:"secrets"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration for wbsd.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// APIToken guards mutating routes when set.
	APIToken Secret `koanf:"api_token"`

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// ScoringConfig holds scoring engine options.
type ScoringConfig struct {
	// Scale is "auto", "unit" or "percent".
	Scale string `koanf:"scale"`

	// WeightsFile is an optional TOML file overriding feature weights.
	WeightsFile string `koanf:"weights_file"`

	// StrictOrder rejects out-of-order outline lines.
	StrictOrder bool `koanf:"strict_order"`
}

// ReportConfig holds report rendering options.
type ReportConfig struct {
	TopN int `koanf:"top_n"`

	// Labels is "eisenhower" or "action".
	Labels string `koanf:"labels"`
}

// InputConfig locates WBS sources on disk.
type InputConfig struct {
	OutlineFile   string   `koanf:"outline_file"`
	FragmentsDir  string   `koanf:"fragments_dir"`
	OutputFile    string   `koanf:"output_file"`
	WatchDebounce Duration `koanf:"watch_debounce"`
}

// LintConfig holds commit message linting options.
type LintConfig struct {
	Branch     string `koanf:"branch"`
	Pattern    string `koanf:"pattern"`
	MaxCommits int    `koanf:"max_commits"`
}

// SecretsConfig controls redaction of titles and commit messages in output.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistFile string `koanf:"allowlist_file"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"`
	Insecure        bool   `koanf:"insecure"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Secrets: SecretsConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}

	if cfg.Scoring.Scale == "" {
		cfg.Scoring.Scale = "auto"
	}

	if cfg.Report.TopN == 0 {
		cfg.Report.TopN = 10
	}
	if cfg.Report.Labels == "" {
		cfg.Report.Labels = "eisenhower"
	}

	if cfg.Input.OutputFile == "" {
		cfg.Input.OutputFile = "detailed_wbs.json"
	}
	if cfg.Input.WatchDebounce == 0 {
		cfg.Input.WatchDebounce = Duration(250 * time.Millisecond)
	}

	if cfg.Lint.Branch == "" {
		cfg.Lint.Branch = "main"
	}
	if cfg.Lint.Pattern == "" {
		cfg.Lint.Pattern = DefaultCommitPattern
	}
	if cfg.Lint.MaxCommits == 0 {
		cfg.Lint.MaxCommits = 500
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "wbs"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
}

// DefaultCommitPattern accepts conventional commit headers.
const DefaultCommitPattern = `^(feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\([\w./-]+\))?!?: .+`

var validScales = map[string]bool{"auto": true, "unit": true, "percent": true}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}

	if !validScales[c.Scoring.Scale] {
		return fmt.Errorf("invalid scoring scale %q (must be auto, unit or percent)", c.Scoring.Scale)
	}

	if c.Report.TopN < 1 {
		return fmt.Errorf("report top_n must be positive, got %d", c.Report.TopN)
	}
	if c.Report.Labels != "eisenhower" && c.Report.Labels != "action" {
		return fmt.Errorf("report labels must be 'eisenhower' or 'action', got %q", c.Report.Labels)
	}

	if _, err := regexp.Compile(c.Lint.Pattern); err != nil {
		return fmt.Errorf("invalid lint pattern: %w", err)
	}
	if c.Lint.MaxCommits < 0 {
		return fmt.Errorf("lint max_commits cannot be negative: %d", c.Lint.MaxCommits)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Observability.Protocol != "grpc" && c.Observability.Protocol != "http" {
		return fmt.Errorf("observability protocol must be 'grpc' or 'http', got %q", c.Observability.Protocol)
	}

	return nil
}
