package server

import (
	"bytes"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/ytsort/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("filters methods", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", ok)

		if rec := serve(r, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		rec := serve(r, http.MethodPost, "/ping", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != http.MethodGet {
			t.Errorf("expected Allow GET, got %q", got)
		}
	})

	t.Run("applies middleware in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/", ok)
		serve(r, http.MethodGet, "/", "")

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})

	t.Run("registers every route of a Handler", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(newAPI(&fakeEngine{}, authFlag(true)))

		if rec := serve(r, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
			t.Errorf("expected 200 for /healthz, got %d", rec.Code)
		}
		if rec := serve(r, http.MethodGet, "/api/auth/status", ""); rec.Code != http.StatusOK {
			t.Errorf("expected 200 for /api/auth/status, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("CORS answers preflight requests", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(CORS(""))
		r.Handle(http.MethodPost, "/api/sort", http.NotFoundHandler())

		rec := serve(r, http.MethodOptions, "/api/sort", "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected wildcard origin, got %q", got)
		}
	})

	t.Run("CORS with a fixed origin allows credentials", func(t *testing.T) {
		h := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		rec := serve(h, http.MethodGet, "/", "")
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("unexpected origin %q", got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("expected credentials to be allowed")
		}
	})

	t.Run("Recovery turns panics into 500", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recovery(shared.NewLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := serve(h, http.MethodGet, "/", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})

	t.Run("Logging records status and path", func(t *testing.T) {
		var buf bytes.Buffer
		h := Logging(shared.NewLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		serve(h, http.MethodGet, "/brew", "")
		out := buf.String()
		if !strings.Contains(out, "/brew") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
	})
}

func TestListenFallback(t *testing.T) {
	t.Run("moves past a port in use", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer busy.Close()
		port := busy.Addr().(*net.TCPAddr).Port

		l, got, err := ListenFallback("127.0.0.1", port, 5)
		if err != nil {
			t.Skipf("no free port after %d: %v", port, err)
		}
		defer l.Close()
		if got == port {
			t.Errorf("expected a port other than %d", port)
		}
		if got < port || got >= port+5 {
			t.Errorf("port %d outside fallback range", got)
		}
	})

	t.Run("fails when a single attempt is busy", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer busy.Close()
		port := busy.Addr().(*net.TCPAddr).Port

		if _, _, err := ListenFallback("127.0.0.1", port, 1); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("New sets the address", func(t *testing.T) {
		srv := New("localhost", 5001, http.NotFoundHandler())
		if srv.Addr != "localhost:5001" {
			t.Errorf("expected localhost:5001, got %s", srv.Addr)
		}
	})
}
