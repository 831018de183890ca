// Package config loads and validates service configuration from a YAML file
// with environment variable overrides. Secrets (tokens, API keys) come from
// the environment only and are never written to the config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Provider names accepted in AIConfig.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGenAPI    = "genapi"
	ProviderMock      = "mock"
)

// Config is the root configuration for the service.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	AI       AIConfig       `yaml:"ai"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token          string   `yaml:"-"` // TELEGRAM_BOT_TOKEN only
	UpdateTimeout  Duration `yaml:"update_timeout"`
	MaxFileSizeKB  int64    `yaml:"max_file_size_kb"`
	AllowedDocExts []string `yaml:"allowed_doc_exts"`
}

// AIConfig selects and tunes the AI backend.
type AIConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"` // AI_API_KEY only
	BaseURL  string `yaml:"base_url"`

	// Polling backend tuning (genapi provider).
	PollInterval    Duration `yaml:"poll_interval"`
	MaxPollAttempts int      `yaml:"max_poll_attempts"`

	RequestTimeout Duration `yaml:"request_timeout"`
	MaxInputTokens int      `yaml:"max_input_tokens"`

	// Per-token pricing in USD. Zero means cost is not tracked.
	PromptTokenCostUSD     float64 `yaml:"prompt_token_cost_usd"`
	CompletionTokenCostUSD float64 `yaml:"completion_token_cost_usd"`
}

// DatabaseConfig configures the sqlite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig configures the on-disk document store.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			UpdateTimeout:  Duration(30 * time.Second),
			MaxFileSizeKB:  512,
			AllowedDocExts: []string{".txt"},
		},
		AI: AIConfig{
			Provider:        ProviderOpenAI,
			Model:           "gpt-4o-mini",
			PollInterval:    Duration(2 * time.Second),
			MaxPollAttempts: 60,
			RequestTimeout:  Duration(120 * time.Second),
			MaxInputTokens:  12000,
		},
		Database: DatabaseConfig{Path: "resumebot.db"},
		Storage:  StorageConfig{Root: "storage"},
		Metrics:  MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}

// Load reads the YAML file at path (optional, may be empty), applies
// environment overrides and validates the result. A .env file in the working
// directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env is not an error; real deployments use process env.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		cfg.Storage.Root = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("AI_MAX_POLL_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AI.MaxPollAttempts = n
		}
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram: TELEGRAM_BOT_TOKEN is required")
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGenAPI:
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai: AI_API_KEY is required for provider %q", c.AI.Provider)
		}
	case ProviderOllama:
		if c.AI.BaseURL == "" {
			return fmt.Errorf("ai: base_url is required for provider %q", c.AI.Provider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("ai: unknown provider %q", c.AI.Provider)
	}
	if c.AI.Model == "" && c.AI.Provider != ProviderMock && c.AI.Provider != ProviderGenAPI {
		return fmt.Errorf("ai: model is required for provider %q", c.AI.Provider)
	}
	if c.AI.PollInterval <= 0 {
		return fmt.Errorf("ai: poll_interval must be positive")
	}
	if c.AI.MaxPollAttempts <= 0 {
		return fmt.Errorf("ai: max_poll_attempts must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database: path is required")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage: root is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics: addr is required when enabled")
	}
	return nil
}
