package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/ytsort/internal/server"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow for YouTube.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.tokens == nil {
		return fmt.Errorf("%w: set credentials.youtube client_id/client_secret or client_secrets_path in %s",
			shared.ErrMissingCredentials, r.configPath)
	}

	if _, err := r.doOAuth(ctx, r.tokens, !cmd.Bool("no-browser")); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: ytsort playlists\n")
	return nil
}

// AuthStatus reports which credentials are configured without calling the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	yt := r.config.Credentials.YouTube

	r.writePlainHeader("Authentication")
	if yt.APIKey != "" {
		r.writePlain("API key: ✓ configured (read-only listing)\n")
	} else {
		r.writePlain("API key: ✗ not configured\n")
	}

	if !yt.HasClient() {
		r.writePlain("OAuth client: ✗ not configured\n")
		return nil
	}
	r.writePlain("OAuth client: ✓ configured\n")

	tok := yt.Token()
	switch {
	case tok == nil:
		r.writePlain("User token: ✗ not authenticated (run `ytsort auth login`)\n")
	case tok.Valid():
		r.writePlain("User token: ✓ valid until %s\n", tok.Expiry.Local().Format(time.RFC1123))
	case tok.RefreshToken != "":
		r.writePlain("User token: ✓ expired, will refresh on next use\n")
	default:
		r.writePlain("User token: ✗ expired and no refresh token stored\n")
	}
	return nil
}

// AuthLogout revokes the stored token at Google and clears it from the config file.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.tokens != nil {
		if err := r.tokens.Revoke(ctx); err != nil {
			r.logger.Warn("failed to revoke token", "error", err)
		}
	}

	r.config.Credentials.YouTube.ClearToken()
	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	r.writePlain("✓ Logged out\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
//
// The callback listener starts on server.port and moves up while the port is busy; the redirect URL follows it.
func (r *Runner) doOAuth(ctx context.Context, provider *services.TokenProvider, openBrowser bool) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	conf := provider.OAuthConfig()
	path := callbackPath(conf.RedirectURL)

	host := r.config.Server.Host
	listener, port, err := server.ListenFallback(host, r.config.Server.Port, r.config.Server.CallbackAttempts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	conf.RedirectURL = fmt.Sprintf("http://%s:%d%s", callbackHost(host), port, path)

	oauthHandler := server.NewOAuthHandler(provider, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Recovery(r.logger))
	router.Handler(oauthHandler)

	httpServer := server.New(host, port, router)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := provider.AuthURL(state)
	if openBrowser {
		r.writePlain("→ Opening browser for Google authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// callbackPath is the path of the configured redirect URI, or the default callback path.
func callbackPath(redirect string) string {
	if redirect == "" {
		return server.DefaultCallbackPath
	}
	u, err := url.Parse(redirect)
	if err != nil || u.Path == "" || u.Path == "/" {
		return server.DefaultCallbackPath
	}
	return u.Path
}

// callbackHost is the host Google redirects the browser to. Wildcard listen addresses become localhost.
func callbackHost(host string) string {
	switch host {
	case "", "0.0.0.0", "::":
		return "localhost"
	default:
		return host
	}
}
