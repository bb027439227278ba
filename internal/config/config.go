// Package config is the on-disk configuration for vidya-ai.
//
// Secrets (provider API keys, the token signing key) never live here; they
// are managed by internal/settings and the auth key file under the data dir.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	// ListenAddr is the HTTP listen address (host:port).
	ListenAddr string `json:"listen_addr,omitempty"`

	// DataDir holds the SQLite databases, the signing key, and secrets.json.
	// If empty, a default under the user home dir is used.
	DataDir string `json:"data_dir,omitempty"`

	// Providers is the LLM provider registry available to the chat endpoint.
	//
	// Notes:
	// - Providers own their allowed model list.
	// - Exactly one provider model must be marked as default via models[].is_default.
	Providers []Provider `json:"providers,omitempty"`

	// Auth configures token issuance.
	Auth AuthConfig `json:"auth"`

	// CustomFeaturesPath optionally points at a YAML file with extra
	// tutoring features merged into the builtin catalog.
	CustomFeaturesPath string `json:"custom_features_path,omitempty"`

	// CORSOrigins are the allowed browser origins for the API.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// LogFormat is "json" or "text".
	LogFormat string `json:"log_format,omitempty"`
	// LogLevel is "debug|info|warn|error".
	LogLevel string `json:"log_level,omitempty"`
}

type AuthConfig struct {
	// AccessTokenTTLMinutes bounds token lifetime. Defaults to 720 (12h).
	AccessTokenTTLMinutes int `json:"access_token_ttl_minutes,omitempty"`
}

const (
	defaultListenAddr     = "127.0.0.1:8090"
	defaultAccessTTLMin   = 720
	maxAccessTokenTTLMins = 7 * 24 * 60
)

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("missing listen_addr")
	}
	if c.Auth.AccessTokenTTLMinutes < 0 || c.Auth.AccessTokenTTLMinutes > maxAccessTokenTTLMins {
		return fmt.Errorf("invalid access_token_ttl_minutes %d", c.Auth.AccessTokenTTLMinutes)
	}
	if err := validateProviders(c.Providers); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// AccessTokenTTLMinutes returns the configured TTL or the default.
func (c *Config) AccessTokenTTLMinutes() int {
	if c == nil || c.Auth.AccessTokenTTLMinutes <= 0 {
		return defaultAccessTTLMin
	}
	return c.Auth.AccessTokenTTLMinutes
}

// ResolvedDataDir returns DataDir or the default under the user home dir.
func (c *Config) ResolvedDataDir() string {
	if c != nil && strings.TrimSpace(c.DataDir) != "" {
		return filepath.Clean(strings.TrimSpace(c.DataDir))
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ".vidya-ai"
	}
	return filepath.Join(home, ".vidya-ai")
}

// DefaultConfigPath returns the default config path:
//
//	~/.vidya-ai/config.json
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "vidya-ai.config.json"
	}
	return filepath.Join(home, ".vidya-ai", "config.json")
}

// Default returns a config with sensible local-deployment values and an
// OpenAI provider entry the operator fills in.
func Default() *Config {
	return &Config{
		ListenAddr: defaultListenAddr,
		Providers: []Provider{
			{
				ID:   "openai",
				Name: "OpenAI",
				Type: ProviderTypeOpenAI,
				Models: []ProviderModel{
					{ModelName: "gpt-4o-mini", IsDefault: true},
				},
			},
		},
		Auth:      AuthConfig{AccessTokenTTLMinutes: defaultAccessTTLMin},
		LogFormat: "json",
		LogLevel:  "info",
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write atomically.
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
