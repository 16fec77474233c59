package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Factory is the [ClientFactory] for the YouTube Data API.
//
// Options are appended to every client, which is how tests point clients at a fake server.
// When Credentials is set, clients go back to it once the token they were built with expires.
type Factory struct {
	APIKey      string
	PageSize    int64
	Timeout     time.Duration
	Options     []option.ClientOption
	Credentials CredentialProvider
	Logger      *log.Logger
}

// NewFactory creates a factory from the loaded config.
func NewFactory(cfg *shared.Config, logger *log.Logger, opts ...option.ClientOption) *Factory {
	return &Factory{
		APIKey:   cfg.Credentials.YouTube.APIKey,
		PageSize: cfg.Pipeline.Size(),
		Timeout:  cfg.Pipeline.Timeout(),
		Options:  opts,
		Logger:   logger,
	}
}

// Reader returns a listing client authorized by tok, or by the API key when tok is nil.
func (f *Factory) Reader(ctx context.Context, tok *oauth2.Token) (Lister, error) {
	var auth option.ClientOption
	switch {
	case tok != nil:
		auth = option.WithTokenSource(f.tokenSource(ctx, tok))
	case f.APIKey != "":
		auth = option.WithAPIKey(f.APIKey)
	default:
		return nil, shared.Faultf(shared.FaultAuthorization, "reader", "%w: no user credential or API key configured", shared.ErrMissingCredentials)
	}
	return f.client(ctx, auth)
}

// Writer returns a client authorized by tok. Writes always need a user credential.
func (f *Factory) Writer(ctx context.Context, tok *oauth2.Token) (Writer, error) {
	if tok == nil {
		return nil, shared.Faultf(shared.FaultAuthorization, "writer", "%w: user credential required", shared.ErrNotAuthenticated)
	}
	return f.client(ctx, option.WithTokenSource(f.tokenSource(ctx, tok)))
}

// tokenSource serves tok until it expires, then asks the credential provider for a fresh one.
func (f *Factory) tokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	if f.Credentials == nil {
		return oauth2.StaticTokenSource(tok)
	}
	return oauth2.ReuseTokenSource(tok, providerSource{ctx: ctx, creds: f.Credentials})
}

// providerSource adapts a [CredentialProvider] to [oauth2.TokenSource].
type providerSource struct {
	ctx   context.Context
	creds CredentialProvider
}

func (s providerSource) Token() (*oauth2.Token, error) {
	return s.creds.Current(s.ctx)
}

func (f *Factory) client(ctx context.Context, auth option.ClientOption) (*YouTubeClient, error) {
	opts := append([]option.ClientOption{auth}, f.Options...)
	c, err := NewYouTubeClient(ctx, ClientOpts{PageSize: f.PageSize, Timeout: f.Timeout, Logger: f.Logger}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build youtube client: %w", err)
	}
	return c, nil
}
