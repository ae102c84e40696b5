package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Jobs        JobsConfig      `toml:"jobs"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Scoring     ScoringConfig   `toml:"scoring"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Uploads string `toml:"uploads"` // Directory for uploaded presentation files
	Output  string `toml:"output"`  // Directory for rendered PDF output
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// JobsConfig contains job lifecycle configuration
type JobsConfig struct {
	Retention        string `toml:"retention"`         // How long finished jobs are kept, e.g. "24h"
	CleanupSchedule  string `toml:"cleanup_schedule"`  // Cron schedule for the retention sweep
	MaxUploadSize    int64  `toml:"max_upload_size"`   // Maximum upload size in bytes
	AllowedExtension string `toml:"allowed_extension"` // Accepted source extension
}

// AnalysisConfig controls the AI analysis stage
type AnalysisConfig struct {
	VisionConcurrency   int     `toml:"vision_concurrency"`   // Max vision calls in flight per job
	VisionTimeout       string  `toml:"vision_timeout"`       // Per-element vision call timeout
	ConfidenceThreshold float64 `toml:"confidence_threshold"` // Slides below this are flagged for review
	DenseRowThreshold   int     `toml:"dense_row_threshold"`  // Elements per row above which ordering confidence drops
	MaxAltTextLength    int     `toml:"max_alt_text_length"`  // Alt text longer than this draws an info finding
}

// ScoringConfig holds the accessibility score weights.
// Score = 100 - errors*ErrorWeight - warnings*WarningWeight - info*InfoWeight, clamped to [0,100].
type ScoringConfig struct {
	ErrorWeight   int `toml:"error_weight"`
	WarningWeight int `toml:"warning_weight"`
	InfoWeight    int `toml:"info_weight"`
}

// GeminiConfig contains Google Gemini API configuration for vision operations
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`    // Google Gemini API key
	Model     string `toml:"model"`      // Model for vision operations (default: "gemini-3-flash-preview")
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Rate limit duration string (default: "4s" for 15 RPM)
}

// ClaudeConfig contains Anthropic Claude API configuration for vision operations
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`    // Anthropic API key
	Model     string `toml:"model"`      // Model for vision operations (default: "claude-haiku-3-5-20241022")
	MaxTokens int    `toml:"max_tokens"` // Maximum tokens in response (default: 1024)
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Rate limit duration string (default: "1s")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "claude")
}

// WebSocketConfig contains configuration for WebSocket progress streaming
type WebSocketConfig struct {
	// Throttle interval for high-frequency progress events, e.g. "500ms".
	ProgressThrottle string `toml:"progress_throttle"`
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in decktag.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Uploads: "./data/uploads",
				Output:  "./data/output",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Jobs: JobsConfig{
			Retention:        "24h",
			CleanupSchedule:  "0 0 * * * *", // Hourly retention sweep (cron format with seconds)
			MaxUploadSize:    100 * 1024 * 1024,
			AllowedExtension: ".pptx",
		},
		Analysis: AnalysisConfig{
			VisionConcurrency:   4,
			VisionTimeout:       "30s",
			ConfidenceThreshold: 0.7,
			DenseRowThreshold:   4,
			MaxAltTextLength:    125,
		},
		Scoring: ScoringConfig{
			ErrorWeight:   10,
			WarningWeight: 3,
			InfoWeight:    1,
		},
		Gemini: GeminiConfig{
			APIKey:    "", // User must provide API key (no fallback)
			Model:     "gemini-3-flash-preview",
			Timeout:   "5m",
			RateLimit: "4s",
		},
		Claude: ClaudeConfig{
			APIKey:    "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 1024,
			Timeout:   "5m",
			RateLimit: "1s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "500ms",
			AllowedEvents:    []string{},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: DECKTAG_ENV, fallback: GO_ENV)
	if env := os.Getenv("DECKTAG_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DECKTAG_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DECKTAG_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("DECKTAG_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uploads := os.Getenv("DECKTAG_UPLOADS_DIR"); uploads != "" {
		config.Storage.Filesystem.Uploads = uploads
	}
	if output := os.Getenv("DECKTAG_OUTPUT_DIR"); output != "" {
		config.Storage.Filesystem.Output = output
	}

	// Logging configuration
	if level := os.Getenv("DECKTAG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DECKTAG_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("DECKTAG_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Jobs configuration
	if retention := os.Getenv("DECKTAG_JOBS_RETENTION"); retention != "" {
		config.Jobs.Retention = retention
	}
	if schedule := os.Getenv("DECKTAG_JOBS_CLEANUP_SCHEDULE"); schedule != "" {
		config.Jobs.CleanupSchedule = schedule
	}
	if maxSize := os.Getenv("DECKTAG_JOBS_MAX_UPLOAD_SIZE"); maxSize != "" {
		if ms, err := strconv.ParseInt(maxSize, 10, 64); err == nil {
			config.Jobs.MaxUploadSize = ms
		}
	}

	// Analysis configuration
	if concurrency := os.Getenv("DECKTAG_VISION_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Analysis.VisionConcurrency = c
		}
	}
	if timeout := os.Getenv("DECKTAG_VISION_TIMEOUT"); timeout != "" {
		config.Analysis.VisionTimeout = timeout
	}
	if threshold := os.Getenv("DECKTAG_CONFIDENCE_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil && t >= 0 && t <= 1 {
			config.Analysis.ConfidenceThreshold = t
		}
	}

	// AI provider configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("DECKTAG_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("DECKTAG_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("DECKTAG_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("DECKTAG_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if provider := os.Getenv("DECKTAG_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// validateConfig checks values that would fail much later if left bad
func validateConfig(config *Config) error {
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Analysis.VisionConcurrency < 1 {
		return fmt.Errorf("analysis.vision_concurrency must be at least 1, got %d", config.Analysis.VisionConcurrency)
	}
	if config.Analysis.ConfidenceThreshold < 0 || config.Analysis.ConfidenceThreshold > 1 {
		return fmt.Errorf("analysis.confidence_threshold must be in [0,1], got %f", config.Analysis.ConfidenceThreshold)
	}
	if _, err := time.ParseDuration(config.Jobs.Retention); err != nil {
		return fmt.Errorf("invalid jobs.retention %q: %w", config.Jobs.Retention, err)
	}
	if _, err := time.ParseDuration(config.Analysis.VisionTimeout); err != nil {
		return fmt.Errorf("invalid analysis.vision_timeout %q: %w", config.Analysis.VisionTimeout, err)
	}
	if config.Scoring.ErrorWeight < 0 || config.Scoring.WarningWeight < 0 || config.Scoring.InfoWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	return nil
}

// VisionTimeoutDuration returns the parsed per-element vision timeout
func (c *Config) VisionTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Analysis.VisionTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RetentionDuration returns the parsed job retention window
func (c *Config) RetentionDuration() time.Duration {
	d, err := time.ParseDuration(c.Jobs.Retention)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
