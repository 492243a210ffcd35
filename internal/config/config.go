// Package config loads client settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/and161185/machtrueke/internal/tokenstore"
)

// DefaultAPIURL is used when nothing else is configured.
const DefaultAPIURL = "http://127.0.0.1:8000"

// Environment variables read by FromEnv.
const (
	EnvAPIURL      = "MT_API_URL"
	EnvUseMock     = "MT_USE_MOCK"
	EnvLogLevel    = "MT_LOG_LEVEL"
	EnvPassphrase  = "MT_TOKEN_PASSPHRASE"
	EnvHTTPTimeout = "MT_HTTP_TIMEOUT"
)

// Config holds all client configuration.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Log   LogConfig   `yaml:"log"`
	Token TokenConfig `yaml:"token"`
}

// APIConfig holds backend settings.
type APIConfig struct {
	URL     string        `yaml:"url"`
	UseMock bool          `yaml:"use_mock"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// TokenConfig holds token storage settings. An empty Passphrase selects the
// key-file mode.
type TokenConfig struct {
	Dir        string `yaml:"dir"`
	Passphrase string `yaml:"passphrase"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API:   APIConfig{URL: DefaultAPIURL, Timeout: 15 * time.Second},
		Log:   LogConfig{Level: "warn"},
		Token: TokenConfig{Dir: tokenstore.DefaultDir()},
	}
}

// DefaultPath returns the config file location.
func DefaultPath() string { return filepath.Join(tokenstore.DefaultDir(), "config.yaml") }

// Load returns Default overlaid with the YAML file at path (a missing file
// is not an error) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv overrides fields with the MT_* variables found by lookup.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		c.API.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUseMock); ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUseMock, err)
		}
		c.API.UseMock = b
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPassphrase); ok {
		c.Token.Passphrase = v
	}
	if v, ok := lookup(EnvHTTPTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPTimeout, err)
		}
		c.API.Timeout = d
	}
	return nil
}

// parseBool also accepts "1"/"0" style toggles.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if !c.API.UseMock {
		if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
			return fmt.Errorf("api url %q: want http:// or https://", c.API.URL)
		}
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("negative http timeout %s", c.API.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// NewLogger builds a production JSON logger writing to stderr at level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
