package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/ytsort/internal/server"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Serve runs the JSON API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	if err := r.openJobs(ctx); err != nil {
		r.logger.Warn("job store unavailable, runs will not be resumable", "error", err)
	}

	var auth server.AuthStatus
	if r.tokens != nil {
		auth = r.tokens
	}

	router := server.NewBasicRouter()
	router.Use(
		server.Logging(r.logger),
		server.Recovery(r.logger),
		server.CORS(r.config.Server.AllowedOrigin),
	)
	router.Handler(server.NewAPIHandler(r.engine, auth, r.logger))

	httpServer := server.New(host, port, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("serving API", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.logger.Info("shutting down API server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
