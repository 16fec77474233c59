package tasks

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	tu "github.com/desertthunder/ytsort/internal/testing"
	"google.golang.org/api/googleapi"
)

// fakeWriter records writes. failures holds the errors returned by successive inserts of a video.
type fakeWriter struct {
	mu        sync.Mutex
	createErr error
	failures  map[string][]error
	created   []models.NewPlaylistRequest
	attempts  []string
	inserted  []string
	// afterInsert runs once a video has been inserted.
	afterInsert func(videoID string)
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{failures: map[string][]error{}}
}

func (w *fakeWriter) CreatePlaylist(ctx context.Context, req models.NewPlaylistRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.createErr != nil {
		return "", w.createErr
	}
	w.created = append(w.created, req)
	return "PLsorted", nil
}

func (w *fakeWriter) InsertItem(ctx context.Context, playlistID, videoID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts = append(w.attempts, videoID)
	if errs := w.failures[videoID]; len(errs) > 0 {
		err := errs[0]
		if len(errs) > 1 {
			w.failures[videoID] = errs[1:]
		}
		if err != nil {
			return err
		}
	}
	w.inserted = append(w.inserted, videoID)
	if w.afterInsert != nil {
		w.afterInsert(videoID)
	}
	return nil
}

func apiErr(code int) error { return &googleapi.Error{Code: code, Message: http.StatusText(code)} }

func fastOpts(retries int, checkpoints *[]MaterializeResult) MaterializerOpts {
	opts := MaterializerOpts{
		Retries:        retries,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		Logger:         shared.NewLogger(&tu.FWriter{}),
	}
	if checkpoints != nil {
		opts.Checkpoint = func(res MaterializeResult) { *checkpoints = append(*checkpoints, res) }
	}
	return opts
}

func threeItemRequest() models.NewPlaylistRequest {
	return models.NewPlaylistRequest{Title: "Sorted", Privacy: "private", VideoIDs: []string{"a", "b", "c"}}
}

func TestMaterializer_Materialize(t *testing.T) {
	t.Run("inserts every item in order", func(t *testing.T) {
		w := newFakeWriter()
		var checkpoints []MaterializeResult
		m := NewMaterializer(w, fastOpts(0, &checkpoints))

		res, err := m.Materialize(context.Background(), threeItemRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if res.State != models.StateCompleted {
			t.Errorf("expected completed, got %s", res.State)
		}
		if res.PlaylistID != "PLsorted" || res.LastSuccessful != 3 || res.Total != 3 {
			t.Errorf("unexpected result %+v", res)
		}
		if !slices.Equal(w.inserted, []string{"a", "b", "c"}) {
			t.Errorf("expected ordered inserts, got %v", w.inserted)
		}

		var states []models.MaterializeState
		for _, c := range checkpoints {
			states = append(states, c.State)
		}
		want := []models.MaterializeState{
			models.StateNotStarted,
			models.StatePlaylistCreated,
			models.StateInsertingItem,
			models.StateInsertingItem,
			models.StateInsertingItem,
			models.StateCompleted,
		}
		if !slices.Equal(states, want) {
			t.Errorf("expected transitions %v, got %v", want, states)
		}
		for i, c := range checkpoints[2:5] {
			if c.Current != i+1 {
				t.Errorf("checkpoint %d: expected current %d, got %d", i, i+1, c.Current)
			}
		}
	})

	t.Run("partial failure keeps playlist and reports index", func(t *testing.T) {
		w := newFakeWriter()
		w.failures["b"] = []error{apiErr(http.StatusForbidden)}
		m := NewMaterializer(w, fastOpts(3, nil))

		res, err := m.Materialize(context.Background(), threeItemRequest())
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		if res == nil {
			t.Fatal("expected result on partial failure")
		}
		if res.State != models.StateFailed {
			t.Errorf("expected failed, got %s", res.State)
		}
		if res.PlaylistID != "PLsorted" {
			t.Errorf("expected playlist id to be reported, got %q", res.PlaylistID)
		}
		if res.LastSuccessful != 1 {
			t.Errorf("expected last successful 1, got %d", res.LastSuccessful)
		}

		f, ok := shared.AsFault(err)
		if !ok {
			t.Fatalf("expected fault, got %T", err)
		}
		if f.Kind != shared.FaultRemoteCall || f.Index != 2 {
			t.Errorf("expected remote call fault at item 2, got %v", f)
		}

		if !slices.Equal(w.attempts, []string{"a", "b"}) {
			t.Errorf("expected no retry of a 403 and no further inserts, got %v", w.attempts)
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		w := newFakeWriter()
		w.failures["b"] = []error{apiErr(http.StatusServiceUnavailable), apiErr(http.StatusTooManyRequests), nil}
		m := NewMaterializer(w, fastOpts(3, nil))

		res, err := m.Materialize(context.Background(), threeItemRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if res.State != models.StateCompleted {
			t.Errorf("expected completed, got %s", res.State)
		}
		if !slices.Equal(w.attempts, []string{"a", "b", "b", "b", "c"}) {
			t.Errorf("unexpected attempts %v", w.attempts)
		}
	})

	t.Run("gives up after bounded retries", func(t *testing.T) {
		w := newFakeWriter()
		w.failures["a"] = []error{apiErr(http.StatusInternalServerError)}
		m := NewMaterializer(w, fastOpts(2, nil))

		res, err := m.Materialize(context.Background(), threeItemRequest())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if len(w.attempts) != 3 {
			t.Errorf("expected 3 attempts, got %d", len(w.attempts))
		}
		if res.LastSuccessful != 0 {
			t.Errorf("expected last successful 0, got %d", res.LastSuccessful)
		}
		var gerr *googleapi.Error
		if !errors.As(err, &gerr) || gerr.Code != http.StatusInternalServerError {
			t.Errorf("expected wrapped 500, got %v", err)
		}
	})

	t.Run("create failure inserts nothing", func(t *testing.T) {
		w := newFakeWriter()
		w.createErr = apiErr(http.StatusBadRequest)
		m := NewMaterializer(w, fastOpts(3, nil))

		res, err := m.Materialize(context.Background(), threeItemRequest())
		if shared.KindOf(err) != shared.FaultRemoteCall {
			t.Errorf("expected remote call fault, got %v", err)
		}
		if res.State != models.StateFailed || res.PlaylistID != "" {
			t.Errorf("unexpected result %+v", res)
		}
		if len(w.attempts) != 0 {
			t.Errorf("expected no inserts, got %v", w.attempts)
		}
	})

	t.Run("authorization faults keep their kind", func(t *testing.T) {
		w := newFakeWriter()
		w.failures["a"] = []error{shared.Faultf(shared.FaultAuthorization, "playlistItems.insert", "%w", shared.ErrNotAuthenticated)}
		m := NewMaterializer(w, fastOpts(3, nil))

		_, err := m.Materialize(context.Background(), threeItemRequest())
		f, ok := shared.AsFault(err)
		if !ok || f.Kind != shared.FaultAuthorization || f.Index != 1 {
			t.Errorf("expected authorization fault at item 1, got %v", err)
		}
		if len(w.attempts) != 1 {
			t.Errorf("expected no retry, got %d attempts", len(w.attempts))
		}
	})

	t.Run("empty title is rejected", func(t *testing.T) {
		w := newFakeWriter()
		m := NewMaterializer(w, fastOpts(0, nil))

		res, err := m.Materialize(context.Background(), models.NewPlaylistRequest{Title: "  ", VideoIDs: []string{"a"}})
		if shared.KindOf(err) != shared.FaultValidation {
			t.Errorf("expected validation fault, got %v", err)
		}
		if res != nil {
			t.Errorf("expected nil result, got %+v", res)
		}
		if len(w.created) != 0 {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("cancelled context creates nothing", func(t *testing.T) {
		w := newFakeWriter()
		m := NewMaterializer(w, fastOpts(0, nil))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := m.Materialize(ctx, threeItemRequest())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if res.State != models.StateFailed {
			t.Errorf("expected failed, got %s", res.State)
		}
		if len(w.created) != 0 {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("cancellation between inserts fails at the next item", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := newFakeWriter()
		w.afterInsert = func(string) { cancel() }
		var checkpoints []MaterializeResult
		m := NewMaterializer(w, fastOpts(3, &checkpoints))

		res, err := m.Materialize(ctx, threeItemRequest())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if res.State != models.StateFailed {
			t.Errorf("expected failed, got %s", res.State)
		}
		if res.PlaylistID != "PLsorted" {
			t.Errorf("expected the created playlist id to be kept, got %q", res.PlaylistID)
		}
		if res.LastSuccessful != 1 {
			t.Errorf("expected last successful 1, got %d", res.LastSuccessful)
		}
		if !slices.Equal(w.inserted, []string{"a"}) {
			t.Errorf("expected only a to be inserted, got %v", w.inserted)
		}

		f, ok := shared.AsFault(err)
		if !ok {
			t.Fatalf("expected a fault, got %T", err)
		}
		if f.Kind != shared.FaultRemoteCall || f.Index != 2 {
			t.Errorf("expected remote_call fault at item 2, got %v at %d", f.Kind, f.Index)
		}
		if last := checkpoints[len(checkpoints)-1]; last.State != models.StateFailed || last.Current != 2 {
			t.Errorf("expected a failed checkpoint at item 2, got %+v", last)
		}
	})

	t.Run("empty sequence completes after create", func(t *testing.T) {
		w := newFakeWriter()
		m := NewMaterializer(w, fastOpts(0, nil))

		res, err := m.Materialize(context.Background(), models.NewPlaylistRequest{Title: "Empty"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.State != models.StateCompleted || res.PlaylistID == "" {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

func TestMaterializer_Resume(t *testing.T) {
	t.Run("continues after the last successful insert", func(t *testing.T) {
		w := newFakeWriter()
		m := NewMaterializer(w, fastOpts(0, nil))

		res, err := m.Resume(context.Background(), "PLsorted", []string{"a", "b", "c"}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(w.inserted, []string{"b", "c"}) {
			t.Errorf("expected b and c, got %v", w.inserted)
		}
		if res.State != models.StateCompleted || res.LastSuccessful != 3 {
			t.Errorf("unexpected result %+v", res)
		}
		if len(w.created) != 0 {
			t.Error("resume must not create a playlist")
		}
	})

	t.Run("resume after full insert is a no-op", func(t *testing.T) {
		w := newFakeWriter()
		m := NewMaterializer(w, fastOpts(0, nil))

		res, err := m.Resume(context.Background(), "PLsorted", []string{"a"}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.State != models.StateCompleted || len(w.attempts) != 0 {
			t.Errorf("unexpected result %+v with attempts %v", res, w.attempts)
		}
	})

	t.Run("rejects out of range index", func(t *testing.T) {
		m := NewMaterializer(newFakeWriter(), fastOpts(0, nil))

		for _, from := range []int{0, 5} {
			if _, err := m.Resume(context.Background(), "PLsorted", []string{"a", "b", "c"}, from); shared.KindOf(err) != shared.FaultValidation {
				t.Errorf("from %d: expected validation fault, got %v", from, err)
			}
		}
	})

	t.Run("requires a target playlist", func(t *testing.T) {
		m := NewMaterializer(newFakeWriter(), fastOpts(0, nil))
		if _, err := m.Resume(context.Background(), "", []string{"a"}, 1); shared.KindOf(err) != shared.FaultValidation {
			t.Errorf("expected validation fault, got %v", err)
		}
	})
}
