package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// Scopes requested during login: playlist management plus the read scope the listing calls need.
var Scopes = []string{youtube.YoutubeScope, youtube.YoutubeForceSslScope}

var revokeURL = "https://oauth2.googleapis.com/revoke"

// NewOAuthConfig builds the OAuth2 client config from a client secrets file when one is configured,
// otherwise from the client id and secret.
func NewOAuthConfig(cfg shared.YouTubeConfig) (*oauth2.Config, error) {
	if !cfg.HasClient() {
		return nil, fmt.Errorf("%w: youtube client_id/client_secret or client_secrets_path", shared.ErrMissingCredentials)
	}

	var conf *oauth2.Config
	if cfg.ClientSecretsPath != "" {
		b, err := os.ReadFile(cfg.ClientSecretsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read client secrets (%s): %w", cfg.ClientSecretsPath, err)
		}
		conf, err = google.ConfigFromJSON(b, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse client secrets: %v", shared.ErrInvalidConfig, err)
		}
	} else {
		conf = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		}
	}

	if cfg.RedirectURI != "" {
		conf.RedirectURL = cfg.RedirectURI
	}
	return conf, nil
}

// TokenProvider is the [CredentialProvider] backed by a stored user token.
//
// Refreshed tokens are handed to persist so the caller can write them back to the config file.
type TokenProvider struct {
	mu         sync.Mutex
	conf       *oauth2.Config
	token      *oauth2.Token
	persist    func(*oauth2.Token) error
	httpClient *http.Client
}

// NewTokenProvider creates a provider around conf. tok may be nil; persist may be nil.
func NewTokenProvider(conf *oauth2.Config, tok *oauth2.Token, persist func(*oauth2.Token) error) *TokenProvider {
	return &TokenProvider{conf: conf, token: tok, persist: persist, httpClient: http.DefaultClient}
}

// WithHTTPClient sets the client used for token exchange, refresh and revocation.
func (p *TokenProvider) WithHTTPClient(c *http.Client) *TokenProvider {
	p.httpClient = c
	return p
}

func (p *TokenProvider) oauthContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Current returns a valid token, refreshing and persisting it when the stored one has expired.
func (p *TokenProvider) Current(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return nil, fmt.Errorf("%w: run `ytsort auth login`", shared.ErrNotAuthenticated)
	}
	if p.token.Valid() {
		return p.token, nil
	}
	if p.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired and no refresh token stored", shared.ErrNotAuthenticated)
	}

	refreshed, err := p.conf.TokenSource(p.oauthContext(ctx), p.token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = p.token.RefreshToken
	}

	if refreshed.AccessToken != p.token.AccessToken && p.persist != nil {
		if err := p.persist(refreshed); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
	}

	p.token = refreshed
	return refreshed, nil
}

// Set replaces the stored token.
func (p *TokenProvider) Set(tok *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = tok
}

// Authenticated reports whether a token is stored, without refreshing it.
func (p *TokenProvider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil
}

// AuthURL returns the consent page URL. Offline access makes Google issue a refresh token.
func (p *TokenProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// OAuthConfig returns the underlying client config.
func (p *TokenProvider) OAuthConfig() *oauth2.Config { return p.conf }

// Exchange trades an authorization code for a token, stores it and persists it.
func (p *TokenProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	tok, err := p.conf.Exchange(p.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange code: %v", shared.ErrAuthFailed, err)
	}
	if p.persist != nil {
		if err := p.persist(tok); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	p.Set(tok)
	return tok, nil
}

// Revoke invalidates the stored token at Google and forgets it locally.
func (p *TokenProvider) Revoke(ctx context.Context) error {
	p.mu.Lock()
	tok := p.token
	p.token = nil
	p.mu.Unlock()

	if tok == nil {
		return nil
	}

	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
