package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/ytsort/internal/formatter"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Playlists lists the playlists of --channel, or of the authenticated user.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	channelID := strings.TrimSpace(cmd.String("channel"))
	useJSON := cmd.Bool("json")

	progress, stop := r.watch(true)
	playlists, err := r.engine.Playlists(ctx, channelID, progress)
	stop()
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Title)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", shared.Truncate(p.Description, 80))
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Videos: %d\n", p.ItemCount)
		if p.Privacy != "" {
			r.writePlain("   Visibility: %s\n", p.Privacy)
		}
		r.writePlain("\n")
	}
	return nil
}

// Items lists a playlist's videos in playlist order.
func (r *Runner) Items(ctx context.Context, cmd *cli.Command) error {
	playlistID := strings.TrimSpace(cmd.StringArg("playlist"))
	if playlistID == "" {
		return shared.Faultf(shared.FaultValidation, "items", "%w: playlist id", shared.ErrMissingArgument)
	}
	useJSON := cmd.Bool("json")

	progress, stop := r.watch(true)
	items, err := r.engine.Read(ctx, playlistID, progress)
	stop()
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlain("Videos: %d\n\n", len(items))
	for _, it := range items {
		r.writePlain("%3d. %s\n", it.Position+1, it.Title)
		details := fmt.Sprintf("%s • %s • %s", it.ChannelTitle, it.PublishedAt, it.VideoID)
		if it.DurationSeconds > 0 {
			details += " • " + shared.FormatDuration(it.DurationSeconds)
		}
		r.writePlain("     %s\n", details)
	}
	return nil
}

// Sort sorts a playlist and prints or writes the result. With --create the sorted videos are
// inserted into a new private playlist and the run is recorded as a resumable job.
func (r *Runner) Sort(ctx context.Context, cmd *cli.Command) error {
	req := tasks.SortRequest{
		PlaylistID: strings.TrimSpace(cmd.StringArg("playlist")),
		SortBy:     cmd.String("sort-by"),
		Order:      cmd.String("order"),
	}
	if cmd.IsSet("create") {
		req.CreatePlaylist = true
		req.NewPlaylistName = cmd.String("create")
		return r.sortAndCreate(ctx, req)
	}

	spec, err := req.Validate()
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	outDir := cmd.String("output")
	progress, stop := r.watch(outDir == "")
	export, err := r.engine.SortedPlaylist(ctx, req.PlaylistID, spec, progress)
	stop()
	if err != nil {
		return err
	}

	if outDir == "" {
		return formatter.Render(r.output, export, format)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	files, err := formatter.WriteExport(export, format, outDir)
	if err != nil {
		return err
	}

	r.writePlain("✓ Sorted %d videos by %s\n", len(export.Items), spec)
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

func (r *Runner) sortAndCreate(ctx context.Context, req tasks.SortRequest) error {
	if err := r.openJobs(ctx); err != nil {
		r.logger.Warn("job store unavailable, run will not be resumable", "error", err)
	}

	progress, stop := r.watch(false)
	result, err := r.engine.Run(ctx, req, progress)
	stop()

	if err != nil {
		r.reportPartial(result)
		return err
	}
	return r.reportMaterialized(result)
}

func (r *Runner) reportMaterialized(result *tasks.SortResult) error {
	res := result.Materialized
	r.writePlainln("")
	r.writePlainHeader("Playlist created successfully")
	r.writePlain("Source: %s\n", result.PlaylistID)
	r.writePlain("New playlist: %s\n", res.PlaylistID)
	r.writePlain("Videos inserted: %d/%d\n", res.LastSuccessful, res.Total)
	if result.JobID != "" {
		r.writePlain("Job: %s\n", result.JobID)
	}
	return nil
}

// reportPartial explains how to finish a run that created its playlist but stopped inserting.
func (r *Runner) reportPartial(result *tasks.SortResult) {
	if result == nil || result.Materialized == nil || result.Materialized.PlaylistID == "" {
		return
	}
	res := result.Materialized
	r.writePlainln("⚠ Playlist %s holds %d of %d videos.", res.PlaylistID, res.LastSuccessful, res.Total)
	if result.JobID != "" {
		r.writePlain("Run `ytsort jobs resume %s` to insert the rest.\n", result.JobID)
	}
}
