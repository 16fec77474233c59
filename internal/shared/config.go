package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	defaultPageSize    int64 = 50
	defaultTimeout           = 30 * time.Second
	defaultBackoffInit       = 500 * time.Millisecond
	defaultBackoffMax        = 8 * time.Second
	defaultDescription       = "Sorted version of playlist {playlist_id}"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains the YouTube Data API key, OAuth2 client and the persisted user token.
type YouTubeConfig struct {
	APIKey            string `toml:"api_key"`
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret"`
	ClientSecretsPath string `toml:"client_secrets_path"`
	RedirectURI       string `toml:"redirect_uri"`
	AccessToken       string `toml:"access_token"`
	RefreshToken      string `toml:"refresh_token"`
	TokenType         string `toml:"token_type"`
	Expiry            string `toml:"expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
//
// CallbackAttempts is how many consecutive ports the OAuth callback listener tries, starting at Port.
type ServerConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	CallbackAttempts int    `toml:"callback_attempts"`
	AllowedOrigin    string `toml:"allowed_origin"`
}

// PipelineConfig tunes the remote listing and materialization stages.
type PipelineConfig struct {
	PageSize             int64   `toml:"page_size"`
	RequestTimeout       string  `toml:"request_timeout"`
	InsertRetries        int     `toml:"insert_retries"`
	InsertBackoffInitial string  `toml:"insert_backoff_initial"`
	InsertBackoffMax     string  `toml:"insert_backoff_max"`
	InsertsPerSecond     float64 `toml:"inserts_per_second"`
	Privacy              string  `toml:"privacy"`
	DescriptionTemplate  string  `toml:"description_template"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep their [DefaultConfig] values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
//
// The file holds OAuth tokens so it is written owner-only.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables.
//
// YOUTUBE_API_KEY takes precedence over credentials.youtube.api_key.
func (c *Config) ApplyEnv() {
	if key := strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")); key != "" {
		c.Credentials.YouTube.APIKey = key
	}
}

// Token returns the stored user token, or nil when none has been saved.
func (y *YouTubeConfig) Token() *oauth2.Token {
	if y.AccessToken == "" && y.RefreshToken == "" {
		return nil
	}

	tok := &oauth2.Token{
		AccessToken:  y.AccessToken,
		RefreshToken: y.RefreshToken,
		TokenType:    y.TokenType,
	}
	if y.Expiry != "" {
		if exp, err := time.Parse(time.RFC3339, y.Expiry); err == nil {
			tok.Expiry = exp
		}
	}
	return tok
}

// Update stores token in the config. A refresh token is only replaced when the new token carries one.
func (y *YouTubeConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", ErrInvalidArgument)
	}

	y.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		y.RefreshToken = token.RefreshToken
	}
	y.TokenType = token.TokenType
	if token.Expiry.IsZero() {
		y.Expiry = ""
	} else {
		y.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// ClearToken forgets the stored user token.
func (y *YouTubeConfig) ClearToken() {
	y.AccessToken = ""
	y.RefreshToken = ""
	y.TokenType = ""
	y.Expiry = ""
}

// HasClient reports whether OAuth2 client credentials are configured.
func (y *YouTubeConfig) HasClient() bool {
	return y.ClientSecretsPath != "" || (y.ClientID != "" && y.ClientSecret != "")
}

// Timeout is the per-request deadline applied to every remote call.
func (p PipelineConfig) Timeout() time.Duration {
	return parseDuration(p.RequestTimeout, defaultTimeout)
}

// BackoffInitial is the first pause between insert retries.
func (p PipelineConfig) BackoffInitial() time.Duration {
	return parseDuration(p.InsertBackoffInitial, defaultBackoffInit)
}

// BackoffMax caps the pause between insert retries.
func (p PipelineConfig) BackoffMax() time.Duration {
	return parseDuration(p.InsertBackoffMax, defaultBackoffMax)
}

// Size returns the listing page size, clamped to the API maximum of 50.
func (p PipelineConfig) Size() int64 {
	if p.PageSize <= 0 || p.PageSize > defaultPageSize {
		return defaultPageSize
	}
	return p.PageSize
}

// Description renders the description of a materialized playlist for the source playlist id.
func (p PipelineConfig) Description(playlistID string) string {
	tmpl := p.DescriptionTemplate
	if tmpl == "" {
		tmpl = defaultDescription
	}
	return strings.ReplaceAll(tmpl, "{playlist_id}", playlistID)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
