package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultCallbackPath is the redirect path used when the configured redirect URI has none.
const DefaultCallbackPath = "/callback"

// Exchanger trades an authorization code for a token. [services.TokenProvider] persists the result.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthResult is the outcome of one authorization code callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the OAuth2 redirect of a single login attempt.
//
// It accepts exactly one callback; replays are rejected so a leaked URL cannot be exchanged twice.
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	path      string
	hit       atomic.Bool
	results   chan OAuthResult
	once      sync.Once
}

// NewOAuthHandler creates a handler serving path that expects state on the callback.
// state must be unguessable; see [shared.GenerateState].
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = DefaultCallbackPath
	}
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}
}

// Routes returns the redirect path.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hit.CompareAndSwap(false, true) {
		renderPage(w, http.StatusBadRequest, "Already authorized", "This login link has already been used.")
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("state") != h.state:
		h.finish(w, http.StatusBadRequest, OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		return
	case q.Get("code") == "":
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
		h.finish(w, http.StatusBadRequest, OAuthResult{err: err})
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.finish(w, http.StatusInternalServerError, OAuthResult{err: err})
		return
	}
	h.finish(w, http.StatusOK, OAuthResult{Token: token})
}

// finish publishes result and tells the browser what happened.
func (h *OAuthHandler) finish(w http.ResponseWriter, status int, result OAuthResult) {
	h.Send(result)
	if result.err != nil {
		renderPage(w, status, "Authorization failed", result.err.Error())
		return
	}
	renderPage(w, status, "Authentication successful!", "You can close this window and return to the terminal.")
}

// Send publishes result. Only the first call has an effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

var page = template.Must(template.New("oauth").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>ytsort: {{.Heading}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f9f9f9; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #ff0033; margin: 0 0 1rem 0; }
        p { color: #606060; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Heading}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, heading, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, struct{ Heading, Message string }{heading, message})
}
