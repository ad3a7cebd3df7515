package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BotConfig covers the chat side: who may schedule and how replies get back
// to the platform.
type BotConfig struct {
	// AllowedChats is a comma-separated list of numeric chat ids permitted
	// to schedule meetings. Group chat ids may be negative. Parsed once at
	// startup; malformed entries are skipped.
	AllowedChats string `yaml:"allowed_chats"`

	// WebhookSecret must match the X-Meetline-Secret header on incoming
	// message posts. Empty disables the check (local development only).
	WebhookSecret string `yaml:"webhook_secret"`

	// ReplyURL, when set, receives a POST {chat_id, text} for every
	// non-empty reply so the chat platform can deliver it.
	ReplyURL string `yaml:"reply_url"`
}

// CalendarConfig identifies the Google calendar and OAuth client.
type CalendarConfig struct {
	// ID is the calendar to insert events into.
	ID string `yaml:"id"`

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// ServerConfig covers the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`

	// JWTSecret signs bearer tokens for the read endpoints.
	JWTSecret string `yaml:"jwt_secret"`
}

// Config models meetline.yml.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Calendar CalendarConfig `yaml:"calendar"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns an in-memory default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills missing values with defaults so partially filled configs
// still behave.
func (c *Config) Normalize() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8080"
	}
	if c.Calendar.ID == "" {
		c.Calendar.ID = "primary"
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "meetline.yml")
}

// Load reads config from the workspace. A missing file yields defaults, so a
// fresh checkout works before `ml config init` has run.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration with 0600 permissions; it carries OAuth
// client material.
func Save(workspace string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o600)
}
