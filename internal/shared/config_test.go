package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != DriverSQLite {
			t.Errorf("expected database driver sqlite3, got %s", config.Database.Driver)
		}

		if config.Database.Path != "./groupchat.db" {
			t.Errorf("expected database path ./groupchat.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.APIBaseURL != "https://api.spotify.com/v1" {
			t.Errorf("unexpected api base url %s", config.Credentials.Spotify.APIBaseURL)
		}

		if config.Chat.BatchSize != 100 {
			t.Errorf("expected batch size 100, got %d", config.Chat.BatchSize)
		}

		if config.HTTP.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.HTTP.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "pgx"
path = "postgres:///spotify_group_chat"

[server]
host = "0.0.0.0"
port = 8080
session_secret = "s3cret"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != DriverPostgres {
			t.Errorf("expected driver pgx, got %s", config.Database.Driver)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:5000/login/callback" {
			t.Errorf("unset keys should keep defaults, got redirect %s", config.Credentials.Spotify.RedirectURI)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Server.SessionSecret = "s3cret"

		config.Credentials.Spotify.ClientSecret = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		config.Credentials.Spotify.ClientSecret = "secret"
		config.Chat.BatchSize = 101
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for oversized batch, got %v", err)
		}

		config.Chat.BatchSize = 50
		config.Server.SessionSecret = ""
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for missing secret, got %v", err)
		}
	})

	t.Run("ResolveConfig", func(t *testing.T) {
		t.Setenv("GROUPCHAT_SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("GROUPCHAT_PORT", "9001")

		config, err := ResolveConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("failed to resolve config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Server.Port != 9001 {
			t.Errorf("expected env port 9001, got %d", config.Server.Port)
		}
		if config.Database.Path != "./groupchat.db" {
			t.Errorf("expected default database path, got %s", config.Database.Path)
		}
	})

	t.Run("ResolveConfig Invalid Env", func(t *testing.T) {
		t.Setenv("GROUPCHAT_PORT", "not-a-number")

		if _, err := ResolveConfig(""); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadEnvFiles", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("GROUPCHAT_SESSION_SECRET=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("GROUPCHAT_SESSION_SECRET", "")
		os.Unsetenv("GROUPCHAT_SESSION_SECRET")

		if err := LoadEnvFiles(filepath.Join(dir, "absent.env"), envPath); err != nil {
			t.Fatalf("LoadEnvFiles failed: %v", err)
		}

		if got := os.Getenv("GROUPCHAT_SESSION_SECRET"); got != "from-dotenv" {
			t.Errorf("expected from-dotenv, got %q", got)
		}
	})

	t.Run("SessionTTL", func(t *testing.T) {
		if got := (ServerConfig{}).SessionTTL(); got != 168*time.Hour {
			t.Errorf("expected default one week, got %v", got)
		}
		if got := (ServerConfig{SessionTTLHours: 2}).SessionTTL(); got != 2*time.Hour {
			t.Errorf("expected 2h, got %v", got)
		}
	})
}
