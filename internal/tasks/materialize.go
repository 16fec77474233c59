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
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/time/rate"
)

// MaterializeResult is the state of a materialize operation after its last transition.
//
// Current is the 1-based index of the insert being attempted and LastSuccessful the index of the last
// insert that succeeded. PlaylistID is set as soon as the playlist exists, including on failure.
type MaterializeResult struct {
	PlaylistID     string                  `json:"playlist_id,omitempty"`
	State          models.MaterializeState `json:"state"`
	Current        int                     `json:"current"`
	LastSuccessful int                     `json:"last_successful"`
	Total          int                     `json:"total"`
}

// MaterializerOpts tunes insert retries and pacing.
//
// Checkpoint, when set, is called synchronously after every state transition.
type MaterializerOpts struct {
	Retries          int
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	InsertsPerSecond float64
	Checkpoint       func(MaterializeResult)
	Logger           *log.Logger
}

// Materializer creates a playlist and replays a sorted sequence into it one insert at a time.
//
// Nothing is rolled back on failure: the partially filled playlist is reported and can be resumed.
type Materializer struct {
	writer  services.Writer
	opts    MaterializerOpts
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewMaterializer creates a Materializer writing through w.
func NewMaterializer(w services.Writer, opts MaterializerOpts) *Materializer {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 500 * time.Millisecond
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = opts.BackoffInitial
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.InsertsPerSecond > 0 {
		limit = rate.Limit(opts.InsertsPerSecond)
	}

	return &Materializer{
		writer:  w,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger,
	}
}

func (m *Materializer) checkpoint(res *MaterializeResult) {
	if m.opts.Checkpoint != nil {
		m.opts.Checkpoint(*res)
	}
}

// Materialize creates a playlist from req and inserts req.VideoIDs in order.
//
// The returned result is never nil once validation passed, so callers always learn the playlist id
// and the last successful index.
func (m *Materializer) Materialize(ctx context.Context, req models.NewPlaylistRequest) (*MaterializeResult, error) {
	const op = "playlists.insert"

	if strings.TrimSpace(req.Title) == "" {
		return nil, shared.Faultf(shared.FaultValidation, op, "%w: new playlist name", shared.ErrMissingArgument)
	}

	res := &MaterializeResult{State: models.StateNotStarted, Total: len(req.VideoIDs)}
	m.checkpoint(res)

	if err := ctx.Err(); err != nil {
		res.State = models.StateFailed
		m.checkpoint(res)
		return res, shared.NewFault(shared.FaultRemoteCall, op, err)
	}

	id, err := m.writer.CreatePlaylist(ctx, req)
	if err != nil {
		res.State = models.StateFailed
		m.checkpoint(res)
		return res, asRemoteFault(op, err, 0)
	}

	res.PlaylistID = id
	res.State = models.StatePlaylistCreated
	m.checkpoint(res)
	m.logger.Info("materializing playlist", "id", id, "items", res.Total)

	return m.insertFrom(ctx, res, req.VideoIDs, 1)
}

// Resume continues inserting videoIDs into an existing playlist starting at the 1-based index from.
func (m *Materializer) Resume(ctx context.Context, playlistID string, videoIDs []string, from int) (*MaterializeResult, error) {
	const op = "resume"

	if playlistID == "" {
		return nil, shared.Faultf(shared.FaultValidation, op, "%w: target playlist id", shared.ErrMissingArgument)
	}
	if from < 1 || from > len(videoIDs)+1 {
		return nil, shared.Faultf(shared.FaultValidation, op, "%w: resume index %d out of range 1..%d",
			shared.ErrInvalidArgument, from, len(videoIDs)+1)
	}

	res := &MaterializeResult{
		PlaylistID:     playlistID,
		State:          models.StatePlaylistCreated,
		LastSuccessful: from - 1,
		Total:          len(videoIDs),
	}
	m.checkpoint(res)
	m.logger.Info("resuming playlist", "id", playlistID, "from", from, "items", res.Total)

	return m.insertFrom(ctx, res, videoIDs, from)
}

func (m *Materializer) insertFrom(ctx context.Context, res *MaterializeResult, ids []string, from int) (*MaterializeResult, error) {
	const op = "playlistItems.insert"

	for k := from; k <= len(ids); k++ {
		res.State = models.StateInsertingItem
		res.Current = k
		m.checkpoint(res)

		if err := m.insert(ctx, res.PlaylistID, ids[k-1]); err != nil {
			res.State = models.StateFailed
			m.checkpoint(res)
			m.logger.Error("insert failed", "playlist", res.PlaylistID, "item", k, "video", ids[k-1], "error", err)
			return res, asRemoteFault(op, err, k)
		}
		res.LastSuccessful = k
	}

	res.State = models.StateCompleted
	res.Current = len(ids)
	m.checkpoint(res)
	return res, nil
}

// insert performs one insert with bounded retry and exponential backoff on transient failures.
func (m *Materializer) insert(ctx context.Context, playlistID, videoID string) error {
	bo := gax.Backoff{
		Initial:    m.opts.BackoffInitial,
		Max:        m.opts.BackoffMax,
		Multiplier: 2,
	}

	for attempt := 0; ; attempt++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}

		err := m.writer.InsertItem(ctx, playlistID, videoID)
		if err == nil {
			return nil
		}
		if attempt >= m.opts.Retries || ctx.Err() != nil || !services.IsRetryable(err) {
			return err
		}

		pause := bo.Pause()
		m.logger.Warn("retrying insert", "video", videoID, "attempt", attempt+1, "pause", pause, "error", err)
		if serr := gax.Sleep(ctx, pause); serr != nil {
			return fmt.Errorf("%w (retry interrupted: %v)", err, serr)
		}
	}
}

// asRemoteFault tags err with the failing insert index, keeping the kind of an existing fault.
func asRemoteFault(op string, err error, index int) *shared.Fault {
	if f, ok := shared.AsFault(err); ok {
		cp := *f
		cp.Index = index
		return &cp
	}
	f := shared.NewFault(shared.FaultRemoteCall, op, err)
	f.Index = index
	return f
}
