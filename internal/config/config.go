package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "HEALTHDESK_"

// Config holds healthdesk configuration.
type Config struct {
	// APIBaseURL is the REST backend root, e.g. https://api.example.com/api/v1.
	APIBaseURL string `yaml:"api_base_url" env:"API_BASE_URL"`

	// DataDir holds the key-value store, preferences and logs.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	// StaleTime is how long a cached list or detail response is served
	// without refetching.
	StaleTime time.Duration `yaml:"stale_time" env:"STALE_TIME"`

	DefaultPageSize int `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE"`

	// DevOrgID is the last-resort organization used when neither the token
	// nor the store carries one.
	DevOrgID string `yaml:"dev_org_id" env:"DEV_ORG_ID"`

	Theme    string `yaml:"theme" env:"THEME"`         // dark, light
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"` // debug, info, warn, error
}

// DefaultDataDir returns ~/.healthdesk, or a relative .healthdesk when the
// home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".healthdesk"
	}
	return filepath.Join(home, ".healthdesk")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:         DefaultDataDir(),
		RequestTimeout:  30 * time.Second,
		StaleTime:       5 * time.Minute,
		DefaultPageSize: 10,
		DevOrgID:        "org-123",
		Theme:           "dark",
		LogLevel:        "info",
	}
}

// Path returns the config file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// LoadEnv loads whichever of the given dotenv files exist. Variables already
// present in the environment are not overwritten.
func LoadEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("failed to load env files: %w", err)
	}
	return len(existing), nil
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is not an error), then HEALTHDESK_* environment variables.
// Dotenv files should be loaded with LoadEnv beforehand.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ErrNoAPIBaseURL is returned by Validate when no backend is configured.
var ErrNoAPIBaseURL = errors.New("api base url is not configured")

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrNoAPIBaseURL
	}
	if err := ValidateBaseURL(c.APIBaseURL); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.StaleTime < 0 {
		return fmt.Errorf("stale_time must not be negative, got %s", c.StaleTime)
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be positive, got %d", c.DefaultPageSize)
	}
	switch c.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}

// ValidateBaseURL requires an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base url must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api base url has no host: %q", raw)
	}
	return nil
}

// StorePath is the SQLite key-value database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "healthdesk.db")
}

// LogPath is the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "healthdesk.log")
}

// PrefsPath is the table preferences file location.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "ui_prefs.json")
}
