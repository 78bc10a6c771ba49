package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all shellsense configuration.
type Config struct {
	// LLM advice settings
	LLM LLMConfig `yaml:"llm"`

	// Default health values for a new session
	Game GameConfig `yaml:"game"`

	// Round journal
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`
}

// LLMConfig configures the remote advice call.
type LLMConfig struct {
	Provider     string  `yaml:"provider"` // openai, gemini
	APIURL       string  `yaml:"api_url"`  // full chat-completions endpoint
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	CustomPrompt string  `yaml:"custom_prompt"`
	Timeout      string  `yaml:"timeout"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
}

// GameConfig holds the starting health of both sides.
type GameConfig struct {
	PlayerHealth    int `yaml:"player_health"`
	PlayerMaxHealth int `yaml:"player_max_health"`
	DealerHealth    int `yaml:"dealer_health"`
	DealerMaxHealth int `yaml:"dealer_max_health"`
}

// StoreConfig configures the sqlite round journal.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UIConfig configures the interactive terminal UI.
type UIConfig struct {
	Theme string `yaml:"theme"` // light, dark
}

const (
	DefaultAPIURL   = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-3.5-turbo"
	DefaultGemini   = "gemini-2.5-flash"
	DefaultTimeout  = 60 * time.Second
	MaxHealthLimit  = 10
	defaultHealth   = 3
	defaultDirName  = ".shellsense"
	defaultFileName = "config.yaml"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"openai", "gemini"}

// DefaultDir returns ~/.shellsense, or .shellsense when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), defaultFileName)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			APIURL:      DefaultAPIURL,
			Model:       DefaultModel,
			Timeout:     "60s",
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		Game: GameConfig{
			PlayerHealth:    defaultHealth,
			PlayerMaxHealth: defaultHealth,
			DealerHealth:    defaultHealth,
			DealerMaxHealth: defaultHealth,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultDir(), "journal.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(DefaultDir(), "shellsense.log"),
		},
		UI: UIConfig{
			Theme: "light",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile is Load without environment overrides, for editing the file itself.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry an API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	// Explicit key wins over provider-specific ones and keeps the configured provider.
	if key := os.Getenv("SHELLSENSE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("SHELLSENSE_API_URL"); url != "" {
		c.LLM.APIURL = url
	}
	if model := os.Getenv("SHELLSENSE_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("SHELLSENSE_DB"); path != "" {
		c.Store.Path = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// ModelOrDefault returns the configured model, or the provider default when empty.
func (l LLMConfig) ModelOrDefault() string {
	if strings.TrimSpace(l.Model) != "" {
		return strings.TrimSpace(l.Model)
	}
	if l.Provider == "gemini" {
		return DefaultGemini
	}
	return DefaultModel
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	return c.Game.Validate()
}

// ValidateLLM checks only the settings needed for a remote advice call.
func (c *Config) ValidateLLM() error {
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("%w: unknown LLM provider %q (valid: %v)", ErrInvalid, c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Provider == "openai" && strings.TrimSpace(c.LLM.APIURL) == "" {
		return fmt.Errorf("%w: llm.api_url is required", ErrInvalid)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: LLM API key not configured (set llm.api_key, SHELLSENSE_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)", ErrInvalid)
	}
	return nil
}

// Validate checks health bounds: max in 1..10, current in 0..max.
func (g GameConfig) Validate() error {
	check := func(side string, hp, maxHP int) error {
		if maxHP < 1 || maxHP > MaxHealthLimit {
			return fmt.Errorf("%w: %s max health %d out of range 1..%d", ErrInvalid, side, maxHP, MaxHealthLimit)
		}
		if hp < 0 || hp > maxHP {
			return fmt.Errorf("%w: %s health %d out of range 0..%d", ErrInvalid, side, hp, maxHP)
		}
		return nil
	}
	if err := check("player", g.PlayerHealth, g.PlayerMaxHealth); err != nil {
		return err
	}
	return check("dealer", g.DealerHealth, g.DealerMaxHealth)
}

// Set assigns a value by dotted key, e.g. "llm.model". Used by `config set`.
func (c *Config) Set(key, value string) error {
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer: %v", ErrInvalid, key, err)
		}
		*dst = n
		return nil
	}

	switch strings.ToLower(key) {
	case "llm.provider":
		c.LLM.Provider = value
	case "llm.api_url":
		c.LLM.APIURL = value
	case "llm.api_key":
		c.LLM.APIKey = value
	case "llm.model":
		c.LLM.Model = value
	case "llm.custom_prompt":
		c.LLM.CustomPrompt = value
	case "llm.timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: llm.timeout: %v", ErrInvalid, err)
		}
		c.LLM.Timeout = value
	case "llm.max_tokens":
		return atoi(&c.LLM.MaxTokens)
	case "llm.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: llm.temperature: %v", ErrInvalid, err)
		}
		c.LLM.Temperature = f
	case "game.player_health":
		return atoi(&c.Game.PlayerHealth)
	case "game.player_max_health":
		return atoi(&c.Game.PlayerMaxHealth)
	case "game.dealer_health":
		return atoi(&c.Game.DealerHealth)
	case "game.dealer_max_health":
		return atoi(&c.Game.DealerMaxHealth)
	case "store.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: store.enabled: %v", ErrInvalid, err)
		}
		c.Store.Enabled = b
	case "store.path":
		c.Store.Path = value
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "logging.file":
		c.Logging.File = value
	case "ui.theme":
		c.UI.Theme = value
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return nil
}

// Redacted returns a copy safe to print: the API key keeps only its last 4 characters.
func (c *Config) Redacted() *Config {
	cp := *c
	if k := cp.LLM.APIKey; k != "" {
		if len(k) > 4 {
			cp.LLM.APIKey = "***..." + k[len(k)-4:]
		} else {
			cp.LLM.APIKey = "***"
		}
	}
	return &cp
}
