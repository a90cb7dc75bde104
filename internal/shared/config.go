package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Security    SecurityConfig    `toml:"security"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Export      ExportConfig      `toml:"export"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map converts the credentials to the map shape the Spotify service expects.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// SecurityConfig contains token-at-rest encryption settings.
//
// TokenKey is 64 hex characters (32 bytes). InsecureDev permits a fixed
// development key when TokenKey is absent or malformed; production runs
// must leave it false so a bad key is a startup error.
type SecurityConfig struct {
	TokenKey    string `toml:"token_key"`
	InsecureDev bool   `toml:"insecure_dev"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ExportConfig contains bulk export tuning knobs.
type ExportConfig struct {
	PageSize         int     `toml:"page_size"`
	RateLimit        float64 `toml:"rate_limit"`
	RetentionMinutes int     `toml:"retention_minutes"`
	RequestTimeoutS  int     `toml:"request_timeout_seconds"`
}

// Retention returns the configured artifact retention window.
func (e ExportConfig) Retention() time.Duration {
	if e.RetentionMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(e.RetentionMinutes) * time.Minute
}

// RequestTimeout returns the per-request timeout for provider calls.
func (e ExportConfig) RequestTimeout() time.Duration {
	if e.RequestTimeoutS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.RequestTimeoutS) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
