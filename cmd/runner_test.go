package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	tu "github.com/desertthunder/ytsort/internal/testing"
	"golang.org/x/oauth2"
)

func quietRunner(opts RunnerOpts) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	if opts.Output == nil {
		opts.Output = out
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(&bytes.Buffer{})
	}
	return NewRunner(opts), out
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("NewRunner", func(t *testing.T) {
		t.Run("keeps injected collaborators", func(t *testing.T) {
			config := shared.DefaultConfig()
			httpClient := &http.Client{}
			factory := &services.Factory{APIKey: "key"}
			tokens := services.NewTokenProvider(&oauth2.Config{}, nil, nil)

			r, out := quietRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/tmp/ytsort.toml",
				HTTPClient: httpClient,
				Factory:    factory,
				Tokens:     tokens,
			})

			if r.config != config || r.httpClient != httpClient || r.output != out {
				t.Error("expected injected config, http client and output to be kept")
			}
			if r.factory != services.ClientFactory(factory) || r.tokens != tokens {
				t.Error("expected injected factory and token provider to be kept")
			}
			if r.configPath != "/tmp/ytsort.toml" {
				t.Errorf("expected config path to be kept, got %q", r.configPath)
			}
			if r.engine == nil {
				t.Error("expected engine to be built")
			}
		})

		t.Run("fills in defaults", func(t *testing.T) {
			r := NewRunner(RunnerOpts{})

			if r.config == nil || r.logger == nil || r.engine == nil {
				t.Fatal("expected config, logger and engine defaults")
			}
			if r.output != os.Stdout {
				t.Error("expected stdout as the default output")
			}
			if r.httpClient != http.DefaultClient {
				t.Error("expected the default http client")
			}
			if r.factory != nil || r.tokens != nil || r.jobs != nil {
				t.Error("expected no remote collaborators before Before runs")
			}
		})
	})

	t.Run("buildEngine", func(t *testing.T) {
		t.Run("reports a missing client factory", func(t *testing.T) {
			r, _ := quietRunner(RunnerOpts{})

			if _, err := r.engine.Read(ctx, "PL1", nil); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("reads through the API key without a token provider", func(t *testing.T) {
			fake := tu.NewFakeYouTube(t)
			fake.AddPlaylist(tu.FakePlaylist{ID: "PL1", Title: "One", ChannelID: "UC1"})
			r, _ := quietRunner(RunnerOpts{
				Factory: &services.Factory{APIKey: "key", Options: fake.ClientOptions()},
			})

			playlists, err := r.engine.Playlists(ctx, "UC1", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 1 {
				t.Errorf("expected 1 playlist, got %d", len(playlists))
			}

			if _, err := r.engine.Playlists(ctx, "", nil); shared.KindOf(err) != shared.FaultAuthorization {
				t.Errorf("expected own playlists to need authorization, got %v", err)
			}
		})

		t.Run("SetLogger rebuilds the engine", func(t *testing.T) {
			r, _ := quietRunner(RunnerOpts{})
			before := r.engine

			r.SetLogger(shared.NewLogger(&bytes.Buffer{}))
			if r.engine == before {
				t.Error("expected a new engine")
			}
		})
	})

	t.Run("watch", func(t *testing.T) {
		t.Run("prints every update before stop returns", func(t *testing.T) {
			r, out := quietRunner(RunnerOpts{})

			progress, stop := r.watch(false)
			progress <- tasks.ProgressUpdate{Message: "reading playlist"}
			progress <- tasks.ProgressUpdate{Message: "sorted 3 videos"}
			stop()

			if got := out.String(); got != "reading playlist\nsorted 3 videos\n" {
				t.Errorf("unexpected output %q", got)
			}
		})

		t.Run("quiet watch keeps stdout clean", func(t *testing.T) {
			r, out := quietRunner(RunnerOpts{})

			progress, stop := r.watch(true)
			progress <- tasks.ProgressUpdate{Message: "reading playlist"}
			stop()

			if out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
		})
	})

	t.Run("openJobs", func(t *testing.T) {
		t.Run("opens and migrates the configured database", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "jobs.db")
			r, _ := quietRunner(RunnerOpts{Config: config})

			if err := r.openJobs(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			repo, ok := r.jobs.(*repositories.JobRepository)
			if !ok {
				t.Fatalf("expected a job repository, got %T", r.jobs)
			}
			if _, err := repo.List(nil); err != nil {
				t.Errorf("expected migrated jobs table, got %v", err)
			}

			db := r.db
			if err := r.openJobs(ctx); err != nil || r.db != db {
				t.Error("expected a second open to reuse the database")
			}

			if err := r.After(ctx, nil); err != nil {
				t.Errorf("expected After to close the database, got %v", err)
			}
			if r.db != nil {
				t.Error("expected the database handle to be released")
			}
		})

		t.Run("keeps an injected store", func(t *testing.T) {
			store := repositories.NewJobRepository(nil)
			r, _ := quietRunner(RunnerOpts{Jobs: store})

			if err := r.openJobs(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if r.db != nil || r.jobs != tasks.JobStore(store) {
				t.Error("expected no database to be opened")
			}
		})

		t.Run("fails on an unusable path", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "jobs.db")
			r, _ := quietRunner(RunnerOpts{Config: config})

			if err := r.openJobs(ctx); err == nil {
				t.Fatal("expected an error")
			}
			if r.jobs != nil || r.db != nil {
				t.Error("expected no job store after a failed open")
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Setenv("YOUTUBE_API_KEY", "")

		t.Run("hands the token provider to the client factory", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			config.Credentials.YouTube.ClientID = "id"
			config.Credentials.YouTube.ClientSecret = "secret"
			config.Credentials.YouTube.AccessToken = "access"
			if err := shared.SaveConfig(path, config); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			r, out := quietRunner(RunnerOpts{})
			if err := newApp(r).Run(ctx, []string{"ytsort", "--config", path, "auth", "status"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if r.tokens == nil {
				t.Fatal("expected a token provider from the OAuth client config")
			}
			f, ok := r.factory.(*services.Factory)
			if !ok {
				t.Fatalf("expected the default factory, got %T", r.factory)
			}
			if f.Credentials != services.CredentialProvider(r.tokens) {
				t.Error("expected the factory to refresh through the token provider")
			}
			if !strings.Contains(out.String(), "OAuth client: ✓ configured") {
				t.Errorf("unexpected status output %q", out.String())
			}
		})

		t.Run("leaves reads to the API key without an OAuth client", func(t *testing.T) {
			r, out := quietRunner(RunnerOpts{})
			missing := filepath.Join(t.TempDir(), "none.toml")
			if err := newApp(r).Run(ctx, []string{"ytsort", "--config", missing, "auth", "status"}); err != nil {
				t.Fatalf("expected a missing config to fall back to defaults, got %v", err)
			}

			if r.tokens != nil {
				t.Error("expected no token provider")
			}
			if f, ok := r.factory.(*services.Factory); !ok || f.Credentials != nil {
				t.Error("expected a factory without credentials")
			}
			if !strings.Contains(out.String(), "OAuth client: ✗ not configured") {
				t.Errorf("unexpected status output %q", out.String())
			}
		})
	})

	t.Run("output helpers", func(t *testing.T) {
		tests := []struct {
			name    string
			write   func(r *Runner) error
			want    string
			wantErr string
		}{
			{
				name:  "indented JSON ends with a newline",
				write: func(r *Runner) error { return r.writeJSON(map[string]int{"videos": 3}, true) },
				want:  "{\n  \"videos\": 3\n}\n",
			},
			{
				name:  "compact JSON",
				write: func(r *Runner) error { return r.writeJSON([]string{"a", "b"}, false) },
				want:  "[\"a\",\"b\"]\n",
			},
			{
				name:    "unmarshalable values",
				write:   func(r *Runner) error { return r.writeJSON(make(chan int), false) },
				wantErr: "failed to marshal JSON",
			},
			{
				name:  "formatted plain text",
				write: func(r *Runner) error { return r.writePlain("Videos: %d", 3) },
				want:  "Videos: 3",
			},
			{
				name:  "plain line surrounded by newlines",
				write: func(r *Runner) error { return r.writePlainln("⚠ %s", "partial") },
				want:  "\n⚠ partial\n",
			},
			{
				name:  "header",
				write: func(r *Runner) error { r.writePlainHeader("Export Complete"); return nil },
				want:  "═══════════════════════════════════════\nExport Complete\n═══════════════════════════════════════\n",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, out := quietRunner(RunnerOpts{})
				err := tt.write(r)

				if tt.wantErr != "" {
					if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
						t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if out.String() != tt.want {
					t.Errorf("expected %q, got %q", tt.want, out.String())
				}
			})
		}

		t.Run("write failures", func(t *testing.T) {
			r, _ := quietRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := r.writePlain("x"); err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}

			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			r, _ = quietRunner(RunnerOpts{Output: &limited})
			if err := r.writeJSON(map[string]int{}, false); err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		r, _ := quietRunner(RunnerOpts{})
		commands := r.register()

		if len(commands) != 9 {
			t.Errorf("expected 9 commands, got %d", len(commands))
		}
		seen := map[string]bool{}
		for _, cmd := range commands {
			if seen[cmd.Name] {
				t.Errorf("duplicate command %s", cmd.Name)
			}
			seen[cmd.Name] = true
			if cmd.Action == nil && len(cmd.Commands) == 0 {
				t.Errorf("command %s has neither an action nor subcommands", cmd.Name)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "fresh", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

		t.Run("writes the token back to the config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			r, _ := quietRunner(RunnerOpts{Config: config, ConfigPath: path})

			if err := r.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.YouTube.AccessToken != "fresh" || loaded.Credentials.YouTube.RefreshToken != "refresh" {
				t.Errorf("expected the saved token, got %+v", loaded.Credentials.YouTube)
			}
		})

		t.Run("only updates memory without a config path", func(t *testing.T) {
			config := shared.DefaultConfig()
			r, _ := quietRunner(RunnerOpts{Config: config})

			if err := r.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Credentials.YouTube.AccessToken != "fresh" {
				t.Error("expected the in-memory config to hold the token")
			}
		})

		t.Run("rejects unusable input", func(t *testing.T) {
			r, _ := quietRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "config.toml")})
			if err := r.saveTokens(nil); err == nil || !strings.Contains(err.Error(), "failed to update youtube configuration") {
				t.Errorf("expected update error, got %v", err)
			}

			r.config = nil
			if err := r.saveTokens(token); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("reports an unwritable config path", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing", "config.toml")
			r, _ := quietRunner(RunnerOpts{ConfigPath: path})

			if err := r.saveTokens(token); err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save error, got %v", err)
			}
		})
	})
}
