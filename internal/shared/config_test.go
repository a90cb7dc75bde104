package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "spx.db" {
			t.Errorf("expected database path spx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:3000/callback" {
			t.Errorf("expected default redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Export.PageSize != 100 {
			t.Errorf("expected page size 100, got %d", config.Export.PageSize)
		}

		if config.Security.InsecureDev {
			t.Error("insecure_dev must default to false")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"

[security]
token_key = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[export]
rate_limit = 2.5
retention_minutes = 5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("client_id = %s", config.Credentials.Spotify.ClientID)
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("database path = %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("server port = %d", config.Server.Port)
		}
		if config.Export.RateLimit != 2.5 {
			t.Errorf("rate limit = %v", config.Export.RateLimit)
		}
		if config.Export.Retention() != 5*time.Minute {
			t.Errorf("retention = %v", config.Export.Retention())
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("SpotifyConfig Map", func(t *testing.T) {
		s := SpotifyConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost/cb"}
		m := s.Map()

		if m["client_id"] != "id" || m["client_secret"] != "secret" || m["redirect_uri"] != "http://localhost/cb" {
			t.Errorf("unexpected map: %v", m)
		}
	})

	t.Run("ExportConfig defaults", func(t *testing.T) {
		var e ExportConfig

		if e.Retention() != 10*time.Minute {
			t.Errorf("zero retention should default to 10m, got %v", e.Retention())
		}
		if e.RequestTimeout() != 30*time.Second {
			t.Errorf("zero timeout should default to 30s, got %v", e.RequestTimeout())
		}
	})
}
