package main

import (
	"context"
	"slices"
	"strings"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export sorts playlists and writes one export per playlist plus a manifest.
//
// Playlists come from the arguments, from --channel, or from --mine.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	spec, err := models.ParseSortSpec(cmd.String("sort-by"), cmd.String("order"))
	if err != nil {
		return err
	}

	ids, err := r.exportIDs(ctx, cmd)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return shared.Faultf(shared.FaultValidation, "export", "%w: playlist ids, --channel or --mine", shared.ErrMissingArgument)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Spec:       spec,
	}

	r.writePlain("Exporting %d playlists sorted by %s...\n", len(ids), spec)
	progress, stop := r.watch(false)
	manifest, err := r.engine.BulkExport(ctx, progress, ids, opts)
	stop()
	if manifest == nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete")
	r.writePlain("Output: %s\n", manifest.OutputDirectory)
	r.writePlain("Format: %s\n", manifest.Format)
	r.writePlain("Successful: %d/%d\n", manifest.Successful, manifest.TotalPlaylists)
	if manifest.Failed > 0 {
		r.writePlain("\nFailed playlists:\n")
		for _, res := range manifest.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.Title, res.Error)
			}
		}
	}
	return err
}

func (r *Runner) exportIDs(ctx context.Context, cmd *cli.Command) ([]string, error) {
	var ids []string
	for _, id := range cmd.StringArgs("playlists") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	channelID := strings.TrimSpace(cmd.String("channel"))
	if channelID == "" && !cmd.Bool("mine") {
		return ids, nil
	}

	playlists, err := r.engine.Playlists(ctx, channelID, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if !slices.Contains(ids, p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}
