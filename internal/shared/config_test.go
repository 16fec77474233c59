package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ytsort.db" {
			t.Errorf("expected database path ./ytsort.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5001 {
			t.Errorf("expected server port 5001, got %d", config.Server.Port)
		}

		if config.Pipeline.Privacy != "private" {
			t.Errorf("expected private playlists by default, got %s", config.Pipeline.Privacy)
		}

		if config.Pipeline.Size() != 50 {
			t.Errorf("expected page size 50, got %d", config.Pipeline.Size())
		}

		if config.Credentials.YouTube.Token() != nil {
			t.Error("expected no stored token in default config")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

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
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.youtube]
api_key = "test_api_key"
client_id = "test_client_id"
client_secret = "test_secret"

[pipeline]
page_size = 25
request_timeout = "5s"
description_template = "Copy of {playlist_id}"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Credentials.YouTube.APIKey != "test_api_key" {
			t.Errorf("expected api key test_api_key, got %s", config.Credentials.YouTube.APIKey)
		}
		if !config.Credentials.YouTube.HasClient() {
			t.Error("expected client credentials to be detected")
		}
		if config.Pipeline.Size() != 25 {
			t.Errorf("expected page size 25, got %d", config.Pipeline.Size())
		}
		if config.Pipeline.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.Pipeline.Timeout())
		}
		if got := config.Pipeline.Description("PL1"); got != "Copy of PL1" {
			t.Errorf("expected rendered description, got %q", got)
		}
		if config.Pipeline.InsertRetries != DefaultConfig().Pipeline.InsertRetries {
			t.Errorf("expected omitted keys to keep defaults, got %d retries", config.Pipeline.InsertRetries)
		}
		if config.Server.CallbackAttempts != 5 {
			t.Errorf("expected default callback attempts, got %d", config.Server.CallbackAttempts)
		}
	})

	t.Run("LoadConfig with invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("SaveConfig round trips tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

		if err := config.Credentials.YouTube.Update(&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       expiry,
		}); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		tok := loaded.Credentials.YouTube.Token()
		if tok == nil {
			t.Fatal("expected token to be restored")
		}
		if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", tok)
		}
		if !tok.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
		}
	})

	t.Run("SaveConfig with nil config", func(t *testing.T) {
		if err := SaveConfig(filepath.Join(t.TempDir(), "c.toml"), nil); err == nil {
			t.Fatal("expected error for nil config")
		}
	})

	t.Run("Update keeps refresh token when absent", func(t *testing.T) {
		yt := YouTubeConfig{RefreshToken: "keep-me"}
		if err := yt.Update(&oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if yt.RefreshToken != "keep-me" {
			t.Errorf("expected refresh token to be kept, got %q", yt.RefreshToken)
		}
		if err := yt.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}

		yt.ClearToken()
		if yt.Token() != nil {
			t.Error("expected cleared token")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("YOUTUBE_API_KEY", "from-env")
		config := DefaultConfig()
		config.ApplyEnv()
		if config.Credentials.YouTube.APIKey != "from-env" {
			t.Errorf("expected env key, got %q", config.Credentials.YouTube.APIKey)
		}
	})

	t.Run("Pipeline fallbacks", func(t *testing.T) {
		p := PipelineConfig{PageSize: 500, RequestTimeout: "soon", InsertBackoffMax: "-1s"}
		if p.Size() != 50 {
			t.Errorf("expected clamp to 50, got %d", p.Size())
		}
		if p.Timeout() != defaultTimeout {
			t.Errorf("expected default timeout, got %v", p.Timeout())
		}
		if p.BackoffMax() != defaultBackoffMax {
			t.Errorf("expected default backoff max, got %v", p.BackoffMax())
		}
		if p.BackoffInitial() != defaultBackoffInit {
			t.Errorf("expected default backoff initial, got %v", p.BackoffInitial())
		}
		if got := p.Description("PLx"); got != "Sorted version of playlist PLx" {
			t.Errorf("unexpected default description %q", got)
		}
	})
}
