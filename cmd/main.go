package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: logger})

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		if shared.KindOf(err).NeedsInput() {
			logger.Error("invalid input", "kind", shared.KindOf(err), "error", err)
			os.Exit(2)
		}
		logger.Fatal("application error", "kind", shared.KindOf(err), "error", err)
	}
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytsort",
		Usage:   "Read, sort and rebuild YouTube playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("YTSORT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides log.level",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}
