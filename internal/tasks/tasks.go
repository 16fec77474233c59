package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
)

// SortRequest is the boundary input of a sort operation.
type SortRequest struct {
	PlaylistID      string `json:"playlist_id"`
	SortBy          string `json:"sort_by"`
	Order           string `json:"order"`
	CreatePlaylist  bool   `json:"create_playlist"`
	NewPlaylistName string `json:"new_playlist_name"`
}

// Validate checks the request without any remote call and returns the parsed sort spec.
func (r SortRequest) Validate() (models.SortSpec, error) {
	if strings.TrimSpace(r.PlaylistID) == "" {
		return models.SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: playlist_id", shared.ErrMissingArgument)
	}

	spec, err := models.ParseSortSpec(r.SortBy, r.Order)
	if err != nil {
		return models.SortSpec{}, err
	}
	if err := CheckSpec(spec); err != nil {
		return models.SortSpec{}, err
	}

	if r.CreatePlaylist && strings.TrimSpace(r.NewPlaylistName) == "" {
		return models.SortSpec{}, shared.Faultf(shared.FaultValidation, "sort", "%w: new_playlist_name", shared.ErrMissingArgument)
	}
	return spec, nil
}

// SortResult is the outcome of [PlaylistEngine.Run] and [PlaylistEngine.Resume].
//
// Materialized is nil when no playlist was requested.
type SortResult struct {
	PlaylistID   string                `json:"playlist_id"`
	Spec         models.SortSpec       `json:"sort"`
	Items        []models.EnrichedItem `json:"items"`
	Materialized *MaterializeResult    `json:"materialized,omitempty"`
	JobID        string                `json:"job_id,omitempty"`
}

// JobStore records materialize jobs so failed runs can be resumed.
type JobStore interface {
	Create(job *models.MaterializeJob) error
	Get(id string) (*models.MaterializeJob, error)
	Update(job *models.MaterializeJob) error
}

// EngineOpts wires a [PlaylistEngine]. Credentials and Jobs are optional.
type EngineOpts struct {
	Factory     services.ClientFactory
	Credentials services.CredentialProvider
	Jobs        JobStore
	Pipeline    shared.PipelineConfig
	Logger      *log.Logger
}

// PlaylistEngine runs the listing, aggregation, sort and materialize stages for one request at a time.
//
// The engine holds no per-request state so one instance may serve concurrent requests.
type PlaylistEngine struct {
	factory  services.ClientFactory
	creds    services.CredentialProvider
	jobs     JobStore
	pipeline shared.PipelineConfig
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided collaborators.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &PlaylistEngine{
		factory:  opts.Factory,
		creds:    opts.Credentials,
		jobs:     opts.Jobs,
		pipeline: opts.Pipeline,
		logger:   opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// readCredential returns the user token when one is usable. Reads fall back to the API key otherwise.
func (e *PlaylistEngine) readCredential(ctx context.Context) (*oauth2.Token, error) {
	if e.creds == nil {
		return nil, nil
	}
	tok, err := e.creds.Current(ctx)
	if err != nil {
		e.logger.Debug("no user credential for read", "error", err)
		return nil, err
	}
	return tok, nil
}

// writeCredential returns the user token required by every remote mutation.
func (e *PlaylistEngine) writeCredential(ctx context.Context) (*oauth2.Token, error) {
	if e.creds == nil {
		return nil, shared.Faultf(shared.FaultAuthorization, "materialize", "%w: no credential provider", shared.ErrNotAuthenticated)
	}
	tok, err := e.creds.Current(ctx)
	if err != nil {
		return nil, shared.NewFault(shared.FaultAuthorization, "materialize", err)
	}
	return tok, nil
}

func (e *PlaylistEngine) reader(ctx context.Context) (services.Lister, error) {
	if err := e.checkFactory(); err != nil {
		return nil, err
	}

	tok, credErr := e.readCredential(ctx)
	r, err := e.factory.Reader(ctx, tok)
	if err != nil {
		if credErr != nil && shared.KindOf(err) == shared.FaultAuthorization {
			return nil, shared.NewFault(shared.FaultAuthorization, "reader", credErr)
		}
		return nil, err
	}
	return r, nil
}

// ownReader returns a reader authorized as the user, for listings that need the user's identity.
func (e *PlaylistEngine) ownReader(ctx context.Context) (services.Lister, error) {
	if err := e.checkFactory(); err != nil {
		return nil, err
	}
	tok, err := e.writeCredential(ctx)
	if err != nil {
		return nil, err
	}
	return e.factory.Reader(ctx, tok)
}

func (e *PlaylistEngine) checkFactory() error {
	if e.factory == nil {
		return fmt.Errorf("%w: client factory not configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// Playlists lists a channel's playlists, or the authorized user's own when channelID is empty.
func (e *PlaylistEngine) Playlists(ctx context.Context, channelID string, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	var (
		r   services.Lister
		err error
	)
	if channelID == "" {
		r, err = e.ownReader(ctx)
	} else {
		r, err = e.reader(ctx)
	}
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchPlaylistsUpdate(channelID))
	playlists, err := r.ListPlaylists(ctx, channelID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("listed playlists", "channel", channelID, "count", len(playlists))
	return playlists, nil
}

// Read fetches a playlist's declared count, walks its item pages and merges them into enriched items.
func (e *PlaylistEngine) Read(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) ([]models.EnrichedItem, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, shared.Faultf(shared.FaultValidation, "read", "%w: playlist_id", shared.ErrMissingArgument)
	}

	r, err := e.reader(ctx)
	if err != nil {
		return nil, err
	}
	return e.read(ctx, r, playlistID, progress)
}

func (e *PlaylistEngine) read(ctx context.Context, r services.Lister, playlistID string, progress chan<- ProgressUpdate) ([]models.EnrichedItem, error) {
	e.sendProgress(progress, fetchCountUpdate(playlistID))
	declared, err := r.PlaylistItemCount(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return e.readItems(ctx, r, playlistID, declared, progress)
}

// readItems walks the item pages and checks them against a declared count the caller already holds.
func (e *PlaylistEngine) readItems(ctx context.Context, r services.Lister, playlistID string, declared int, progress chan<- ProgressUpdate) ([]models.EnrichedItem, error) {
	e.sendProgress(progress, fetchItemsUpdate(declared))
	pages, err := r.ListPlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	items, err := Aggregate(pages, declared)
	if err != nil {
		e.logger.Warn("incomplete playlist listing", "playlist", playlistID, "error", err)
		return nil, err
	}

	e.sendProgress(progress, aggregatedUpdate(items))
	e.logger.Debug("read playlist", "playlist", playlistID, "pages", len(pages), "items", len(items))
	return items, nil
}

// Sort reads a playlist and returns its items ordered by spec. Unsupported keys fail before any remote call.
func (e *PlaylistEngine) Sort(ctx context.Context, playlistID string, spec models.SortSpec, progress chan<- ProgressUpdate) ([]models.EnrichedItem, error) {
	if err := CheckSpec(spec); err != nil {
		return nil, err
	}

	items, err := e.Read(ctx, playlistID, progress)
	if err != nil {
		return nil, err
	}

	sorted, err := SortItems(items, spec)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, sortedUpdate(spec, len(sorted)))
	return sorted, nil
}

// SortedPlaylist reads the playlist's metadata and its sorted items, for exports.
func (e *PlaylistEngine) SortedPlaylist(ctx context.Context, playlistID string, spec models.SortSpec, progress chan<- ProgressUpdate) (*models.SortedPlaylist, error) {
	if err := CheckSpec(spec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(playlistID) == "" {
		return nil, shared.Faultf(shared.FaultValidation, "export", "%w: playlist_id", shared.ErrMissingArgument)
	}

	r, err := e.reader(ctx)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchCountUpdate(playlistID))
	meta, err := r.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	items, err := e.readItems(ctx, r, playlistID, meta.ItemCount, progress)
	if err != nil {
		return nil, err
	}
	sorted, err := SortItems(items, spec)
	if err != nil {
		return nil, err
	}
	return &models.SortedPlaylist{Playlist: meta, Spec: spec, Items: sorted}, nil
}

// Run validates req, reads and sorts the playlist and, when requested, materializes the sorted order
// into a new private playlist.
//
// On a partial materialize failure both the result (with the new playlist id) and the fault are returned.
func (e *PlaylistEngine) Run(ctx context.Context, req SortRequest, progress chan<- ProgressUpdate) (*SortResult, error) {
	spec, err := req.Validate()
	if err != nil {
		return nil, err
	}

	var tok *oauth2.Token
	if req.CreatePlaylist {
		if tok, err = e.writeCredential(ctx); err != nil {
			return nil, err
		}
	}

	items, err := e.Sort(ctx, req.PlaylistID, spec, progress)
	if err != nil {
		return nil, err
	}

	result := &SortResult{PlaylistID: req.PlaylistID, Spec: spec, Items: items}
	if !req.CreatePlaylist {
		return result, nil
	}

	writer, err := e.factory.Writer(ctx, tok)
	if err != nil {
		return result, err
	}

	title := strings.TrimSpace(req.NewPlaylistName)
	job, err := e.recordJob(req.PlaylistID, title, spec, len(items))
	if err != nil {
		return result, err
	}
	if job != nil {
		result.JobID = job.ID()
	}

	m := e.materializer(writer, job, progress)
	playlistReq := models.NewPlaylistRequestFrom(title, e.pipeline.Description(req.PlaylistID), e.pipeline.Privacy, items)

	res, err := m.Materialize(ctx, playlistReq)
	result.Materialized = res
	e.finishJob(job, err)
	return result, err
}

// Resume continues a recorded materialize job after its last successful insert.
//
// The source playlist is read and sorted again; a changed item count is a completeness fault.
func (e *PlaylistEngine) Resume(ctx context.Context, jobID string, progress chan<- ProgressUpdate) (*SortResult, error) {
	if e.jobs == nil {
		return nil, fmt.Errorf("%w: job store not configured", shared.ErrServiceUnavailable)
	}

	job, err := e.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	if !job.Resumable() {
		return nil, shared.Faultf(shared.FaultValidation, "resume", "%w: job %s is %s and cannot be resumed",
			shared.ErrInvalidArgument, jobID, job.State())
	}

	tok, err := e.writeCredential(ctx)
	if err != nil {
		return nil, err
	}

	items, err := e.Sort(ctx, job.SourcePlaylistID(), job.Spec(), progress)
	if err != nil {
		return nil, err
	}
	if job.ItemsTotal() > 0 && len(items) != job.ItemsTotal() {
		return nil, shared.Faultf(shared.FaultCompleteness, "resume", "%w: source playlist has %d items, job recorded %d",
			shared.ErrIncomplete, len(items), job.ItemsTotal())
	}

	writer, err := e.factory.Writer(ctx, tok)
	if err != nil {
		return nil, err
	}

	result := &SortResult{PlaylistID: job.SourcePlaylistID(), Spec: job.Spec(), Items: items, JobID: job.ID()}
	ids := models.NewPlaylistRequestFrom(job.Title(), "", "", items).VideoIDs

	m := e.materializer(writer, job, progress)
	res, err := m.Resume(ctx, job.TargetPlaylistID(), ids, job.LastSuccessful()+1)
	result.Materialized = res
	e.finishJob(job, err)
	return result, err
}

func (e *PlaylistEngine) materializer(w services.Writer, job *models.MaterializeJob, progress chan<- ProgressUpdate) *Materializer {
	return NewMaterializer(w, MaterializerOpts{
		Retries:          e.pipeline.InsertRetries,
		BackoffInitial:   e.pipeline.BackoffInitial(),
		BackoffMax:       e.pipeline.BackoffMax(),
		InsertsPerSecond: e.pipeline.InsertsPerSecond,
		Logger:           e.logger,
		Checkpoint: func(res MaterializeResult) {
			e.sendProgress(progress, materializeUpdate(res))
			e.checkpointJob(job, res)
		},
	})
}

func (e *PlaylistEngine) recordJob(source, title string, spec models.SortSpec, total int) (*models.MaterializeJob, error) {
	if e.jobs == nil {
		return nil, nil
	}

	job := models.NewMaterializeJob(0, source, title, spec)
	job.SetItemsTotal(total)
	if err := e.jobs.Create(job); err != nil {
		return nil, fmt.Errorf("failed to record materialize job: %w", err)
	}
	return job, nil
}

// checkpointJob persists a transition. Persistence failures are logged, never surfaced.
func (e *PlaylistEngine) checkpointJob(job *models.MaterializeJob, res MaterializeResult) {
	if job == nil || e.jobs == nil {
		return
	}

	if res.PlaylistID != "" {
		job.SetTargetPlaylistID(res.PlaylistID)
	}
	job.SetState(res.State)
	job.SetItemsTotal(res.Total)
	job.SetLastSuccessful(res.LastSuccessful)
	job.SetUpdatedAt(time.Now())
	if res.State == models.StateCompleted {
		now := time.Now()
		job.SetCompletedAt(&now)
		job.SetErrorMessage("")
	}

	if err := e.jobs.Update(job); err != nil {
		e.logger.Warn("failed to checkpoint job", "job", job.ID(), "state", res.State, "error", err)
	}
}

func (e *PlaylistEngine) finishJob(job *models.MaterializeJob, err error) {
	if job == nil || e.jobs == nil || err == nil {
		return
	}
	job.SetErrorMessage(err.Error())
	if uerr := e.jobs.Update(job); uerr != nil {
		e.logger.Warn("failed to record job failure", "job", job.ID(), "error", uerr)
	}
}
