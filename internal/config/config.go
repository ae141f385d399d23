package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Period   string        `mapstructure:"period"`
	Channels []Channel     `mapstructure:"channels"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Cache    CacheConfig   `mapstructure:"cache"`
}

// ServerConfig holds ledger service connection configuration.
type ServerConfig struct {
	URL            string `mapstructure:"url"`
	TokenFile      string `mapstructure:"token_file"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PollSeconds    int    `mapstructure:"poll_seconds"`
}

// Channel describes one configured sales channel. The capability fields are
// pointers so an absent key reads as enabled.
type Channel struct {
	ID         string `mapstructure:"id"`
	Label      string `mapstructure:"label"`
	BulkRun    *bool  `mapstructure:"bulk_run"`
	Completion *bool  `mapstructure:"completion"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// CacheConfig holds the offline snapshot location.
type CacheConfig struct {
	File string `mapstructure:"file"`
}

// BulkRunEnabled reports whether the channel carries the fast reopen path.
func (ch Channel) BulkRunEnabled() bool {
	return ch.BulkRun == nil || *ch.BulkRun
}

// CompletionEnabled reports whether the channel tracks physical printing.
func (ch Channel) CompletionEnabled() bool {
	return ch.Completion == nil || *ch.Completion
}

// DisplayName returns the label, falling back to a capitalized id.
func (ch Channel) DisplayName() string {
	if strings.TrimSpace(ch.Label) != "" {
		return ch.Label
	}
	runes := []rune(ch.ID)
	if len(runes) == 0 {
		return ch.ID
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Timeout returns the ledger request timeout.
func (c *Config) Timeout() time.Duration {
	if c.Server.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// PollInterval returns the health poll cadence.
func (c *Config) PollInterval() time.Duration {
	if c.Server.PollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Server.PollSeconds) * time.Second
}

// FindChannel resolves a channel id against the configured set. Unknown ids
// produce an error naming the closest configured id when one is plausible.
func (c *Config) FindChannel(id string) (Channel, error) {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	ids := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		ids = append(ids, ch.ID)
	}
	ranks := fuzzy.RankFindFold(id, ids)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return Channel{}, fmt.Errorf("unknown channel %q (did you mean %q?)", id, ranks[0].Target)
	}
	return Channel{}, fmt.Errorf("unknown channel %q", id)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://127.0.0.1:8787",
			TokenFile:      filepath.Join(defaultConfigPath(), "token"),
			TimeoutSeconds: 15,
			PollSeconds:    5,
		},
		Channels: []Channel{
			{ID: "amazon", Label: "Amazon"},
			{ID: "rakuten", Label: "Rakuten"},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Cache: CacheConfig{
			File: defaultCachePath(),
		},
	}
}

// defaultConfigPath returns the default config directory for the current OS.
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "platen")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "platen")
	}
}

// defaultLogPath returns the default log file path for the current OS.
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "platen", "platen.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "platen", "platen.log")
	}
}

// defaultCachePath returns the default offline cache path for the current OS.
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "platen", "cache.db")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "platen", "cache.db")
	}
}

// Load reads configuration from file and environment. A missing config file
// is not an error; defaults apply. When path is empty the default locations
// are searched.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	explicit := strings.TrimSpace(path) != ""
	if explicit {
		resolved, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(resolved)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. PLATEN_SERVER_URL.
	v.SetEnvPrefix("PLATEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Scalar keys need registered defaults for env-only overrides to bind.
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.token_file", cfg.Server.TokenFile)
	v.SetDefault("server.timeout_seconds", cfg.Server.TimeoutSeconds)
	v.SetDefault("server.poll_seconds", cfg.Server.PollSeconds)
	v.SetDefault("period", cfg.Period)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("cache.file", cfg.Cache.File)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		missing := explicit && errors.Is(err, os.ErrNotExist)
		if !notFound && !missing {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use defaults.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			return fmt.Errorf("channel with empty id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate channel id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Server.TokenFile = mustExpand(c.Server.TokenFile)
	c.Logging.File = mustExpand(c.Logging.File)
	c.Cache.File = mustExpand(c.Cache.File)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
