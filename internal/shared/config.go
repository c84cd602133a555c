package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is the prefix for environment variable overrides (e.g. GROUPCHAT_SPOTIFY_CLIENT_ID).
const EnvPrefix = "groupchat"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	HTTP        HTTPConfig        `toml:"http"`
	Chat        ChatConfig        `toml:"chat"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
//
// The base URLs are only overridden in tests.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthBaseURL  string `toml:"auth_base_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// DatabaseConfig contains database connection settings.
//
// Driver is "sqlite3" or "pgx". Path is a file path for SQLite and a DSN for PostgreSQL.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	SessionSecret   string `toml:"session_secret"`
	SessionTTLHours int    `toml:"session_ttl_hours"`
	SecureCookies   bool   `toml:"secure_cookies"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ChatConfig contains chat ingestion settings.
type ChatConfig struct {
	ImportRateLimit float64 `toml:"import_rate_limit"`
	BatchSize       int     `toml:"batch_size"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionTTL returns the session lifetime, defaulting to one week.
func (s ServerConfig) SessionTTL() time.Duration {
	if s.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// Timeout returns the outbound request timeout, defaulting to 10 seconds.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Map returns the Spotify credentials as a map, as consumed by the services package.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
		"auth_base_url": s.AuthBaseURL,
		"api_base_url":  s.APIBaseURL,
	}
}

// Validate reports whether the Spotify client credentials are present.
func (s SpotifyConfig) Validate() error {
	if s.ClientID == "" || s.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	return nil
}

// Validate checks the settings required to run the web server.
func (c *Config) Validate() error {
	if err := c.Credentials.Spotify.Validate(); err != nil {
		return err
	}
	if c.Server.SessionSecret == "" {
		return fmt.Errorf("%w: server.session_secret is required", ErrInvalidConfig)
	}
	if c.Chat.BatchSize > 100 {
		return fmt.Errorf("%w: chat.batch_size cannot exceed 100", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// ResolveConfig loads the config at path if it exists, falling back to defaults, then applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
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

// LoadEnvFiles loads .env style files into the process environment.
//
// Missing files are skipped; existing variables are never overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

type envOverrides struct {
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `envconfig:"SPOTIFY_REDIRECT_URI"`
	DatabaseDriver      string `envconfig:"DATABASE_DRIVER"`
	DatabasePath        string `envconfig:"DATABASE_PATH"`
	SessionSecret       string `envconfig:"SESSION_SECRET"`
	Port                int    `envconfig:"PORT"`
}

// ApplyEnv overrides config values with GROUPCHAT_* environment variables when they are set.
func ApplyEnv(config *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.Credentials.Spotify.ClientID, env.SpotifyClientID)
	set(&config.Credentials.Spotify.ClientSecret, env.SpotifyClientSecret)
	set(&config.Credentials.Spotify.RedirectURI, env.SpotifyRedirectURI)
	set(&config.Database.Driver, env.DatabaseDriver)
	set(&config.Database.Path, env.DatabasePath)
	set(&config.Server.SessionSecret, env.SessionSecret)
	if env.Port > 0 {
		config.Server.Port = env.Port
	}

	return nil
}
