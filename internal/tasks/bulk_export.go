package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/ytsort/internal/formatter"
	"github.com/desertthunder/ytsort/internal/models"
	"golang.org/x/time/rate"
)

// ManifestFile is the name of the manifest written at the root of a bulk export.
const ManifestFile = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string          // Export format: json, csv, markdown, txt
	OutputDir  string          // Base output directory (default: youtube_export_{epoch})
	NumWorkers int             // Concurrent workers (default: 4, max: 10)
	RateLimit  float64         // Playlists started per second (default: 2)
	Spec       models.SortSpec // Order applied to every playlist
}

type exportJob struct {
	index      int
	playlistID string
}

type exportOutcome struct {
	index  int
	result models.ExportResult
}

// BulkExport sorts and exports multiple playlists concurrently with rate limiting and progress tracking.
//
// A worker pool reads, sorts and writes each playlist; one failing playlist does not stop the others.
// The manifest is written to OutputDir/export_manifest.json with results in input order.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*models.ExportManifest, error) {
	if err := CheckSpec(opts.Spec); err != nil {
		return nil, err
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("youtube_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &models.ExportManifest{
		CreatedAt:       time.Now().UTC(),
		Format:          opts.Format,
		Spec:            opts.Spec,
		OutputDirectory: opts.OutputDir,
		TotalPlaylists:  len(ids),
		Results:         make([]models.ExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(ids))
	outcomes := make(chan exportOutcome, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, outcomes, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), id))
			jobs <- exportJob{index: i, playlistID: id}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]exportOutcome, 0, len(ids))
	for out := range outcomes {
		collected = append(collected, out)
		res := out.result
		if res.Success {
			manifest.Successful++
			e.sendProgress(prog, exportCompletedUpdate(len(collected), len(ids), res.Title, len(res.Files)))
		} else {
			manifest.Failed++
			e.sendProgress(prog, exportFailedUpdate(len(collected), len(ids), res.Title, errors.New(res.Error)))
		}
	}

	slices.SortFunc(collected, func(a, b exportOutcome) int { return cmp.Compare(a.index, b.index) })
	for _, out := range collected {
		manifest.Results = append(manifest.Results, out.result)
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := formatter.WriteBulkExportManifest(manifest, manifestPath); err != nil {
		return manifest, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return manifest, fmt.Errorf("export interrupted after %d of %d playlists: %w", len(collected), len(ids), err)
	}
	e.logger.Info("bulk export finished", "dir", opts.OutputDir, "ok", manifest.Successful, "failed", manifest.Failed)
	return manifest, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	outcomes chan<- exportOutcome,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		outcomes <- exportOutcome{index: job.index, result: e.exportSinglePlaylist(ctx, job.playlistID, opts)}
	}
}

// exportSinglePlaylist reads, sorts and writes a single playlist.
func (e *PlaylistEngine) exportSinglePlaylist(ctx context.Context, playlistID string, opts BulkExportOpts) models.ExportResult {
	result := models.ExportResult{
		PlaylistID: playlistID,
		Title:      fmt.Sprintf("Unknown (%s)", playlistID),
		Files:      []string{},
	}

	export, err := e.SortedPlaylist(ctx, playlistID, opts.Spec, nil)
	if err != nil {
		result.Error = fmt.Sprintf("failed to fetch playlist: %v", err)
		return result
	}
	if export.Playlist.Title != "" {
		result.Title = export.Playlist.Title
	}

	files, err := formatter.WriteExport(export, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = fmt.Sprintf("%s export failed: %v", opts.Format, err)
		return result
	}

	result.Files = files
	result.Success = true
	return result
}
