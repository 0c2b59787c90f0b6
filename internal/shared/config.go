package shared

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	// MaxBatchSize is the most track ids the catalog accepts in one add or remove call.
	MaxBatchSize = 100
	// MaxPageSize is the most saved tracks the catalog returns per page.
	MaxPageSize = 50

	appName        = "mixsync"
	configFileName = "config.toml"
)

// DefaultConfigPath returns config.toml in the working directory when present, otherwise the
// per-user location under the XDG config home.
func DefaultConfigPath() string {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Rules       RulesConfig       `toml:"rules"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig points at the credentials file.
type CredentialsConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig contains catalog (Spotify Web API) client settings.
type CatalogConfig struct {
	BaseURL   string   `toml:"base_url"`
	BatchSize int      `toml:"batch_size"`
	PageSize  int      `toml:"page_size"`
	RateLimit float64  `toml:"rate_limit"`
	Timeout   Duration `toml:"timeout"`
}

// RulesConfig points at the rule-definition file.
type RulesConfig struct {
	Path string `toml:"path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Credentials is the account identity consumed to authorize every catalog call.
type Credentials struct {
	Username   string `json:"username"`
	OAuthToken string `json:"oauth-token"`
}

// Map returns the credentials in the form services constructors accept.
func (c Credentials) Map() map[string]string {
	return map[string]string{
		"username":    c.Username,
		"oauth-token": c.OAuthToken,
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks catalog limits and required paths.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.BatchSize < 1 || c.Catalog.BatchSize > MaxBatchSize:
		return fmt.Errorf("%w: catalog.batch_size must be between 1 and %d", ErrInvalidConfig, MaxBatchSize)
	case c.Catalog.PageSize < 1 || c.Catalog.PageSize > MaxPageSize:
		return fmt.Errorf("%w: catalog.page_size must be between 1 and %d", ErrInvalidConfig, MaxPageSize)
	case c.Catalog.RateLimit < 0:
		return fmt.Errorf("%w: catalog.rate_limit must not be negative", ErrInvalidConfig)
	case c.Rules.Path == "":
		return fmt.Errorf("%w: rules.path is required", ErrInvalidConfig)
	case c.Credentials.Path == "":
		return fmt.Errorf("%w: credentials.path is required", ErrInvalidConfig)
	}
	return nil
}

// LoadCredentials reads the credentials JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if creds.Username == "" || creds.OAuthToken == "" {
		return nil, fmt.Errorf("%w: username and oauth-token are required", ErrInvalidCredentials)
	}
	return &creds, nil
}
