package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
)

type fakeEngine struct {
	playlists []models.Playlist
	items     []models.EnrichedItem
	runResult *tasks.SortResult
	runErr    error
	resumed   string
	requests  []tasks.SortRequest
}

func (f *fakeEngine) Playlists(context.Context, string, chan<- tasks.ProgressUpdate) ([]models.Playlist, error) {
	return f.playlists, nil
}

func (f *fakeEngine) Read(context.Context, string, chan<- tasks.ProgressUpdate) ([]models.EnrichedItem, error) {
	return f.items, nil
}

func (f *fakeEngine) Run(_ context.Context, req tasks.SortRequest, progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error) {
	f.requests = append(f.requests, req)
	progress <- tasks.ProgressUpdate{Phase: tasks.Sorting, Message: "Sorted"}
	return f.runResult, f.runErr
}

func (f *fakeEngine) Resume(_ context.Context, jobID string, progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error) {
	f.resumed = jobID
	progress <- tasks.ProgressUpdate{Phase: tasks.InsertItems, Step: 3, Total: 3}
	return &tasks.SortResult{
		PlaylistID:   "PL1",
		Materialized: &tasks.MaterializeResult{PlaylistID: "PLnew", State: models.StateCompleted, LastSuccessful: 3, Total: 3},
		JobID:        jobID,
	}, nil
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func send(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

// drain feeds progress messages back into the model until the run completes.
func drain(t *testing.T, m *Model) {
	t.Helper()
	for i := 0; m.view == ProgressView; i++ {
		if i > 100 {
			t.Fatal("run never completed")
		}
		send(t, m, m.waitForProgress()())
	}
}

func fixture() *fakeEngine {
	return &fakeEngine{
		playlists: []models.Playlist{{ID: "PL1", Title: "Mix", ItemCount: 3}},
		items: []models.EnrichedItem{
			{VideoID: "b", Title: "Bravo"},
			{VideoID: "a", Title: "Alpha"},
			{VideoID: "c", Title: "Charlie"},
		},
	}
}

// toConfirm walks the model from startup to the confirm view with the first sort option.
func toConfirm(t *testing.T, m *Model) {
	t.Helper()
	send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	send(t, m, m.Init()())

	cmd := send(t, m, keyPress("enter"))
	if cmd == nil {
		t.Fatal("expected a fetch command for the selected playlist")
	}
	send(t, m, cmd())
	if m.view != ItemListView {
		t.Fatalf("expected item list view, got %v", m.view)
	}

	send(t, m, keyPress("enter"))
	if m.view != SortView {
		t.Fatalf("expected sort view, got %v", m.view)
	}
	send(t, m, keyPress("enter"))
	if m.view != ConfirmView {
		t.Fatalf("expected confirm view, got %v", m.view)
	}
}

func TestModel(t *testing.T) {
	t.Run("previews a sorted playlist", func(t *testing.T) {
		engine := fixture()
		engine.runResult = &tasks.SortResult{PlaylistID: "PL1", Items: engine.items}
		m := NewModel(context.Background(), engine, "UC1")
		toConfirm(t, m)

		send(t, m, keyPress("n"))
		drain(t, m)

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		req := engine.requests[0]
		if req.CreatePlaylist || req.PlaylistID != "PL1" || req.SortBy != "title" || req.Order != "asc" {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.Contains(m.View(), "Sorted by title/asc") {
			t.Error("expected sorted list title in view")
		}
	})

	t.Run("creates a playlist", func(t *testing.T) {
		engine := fixture()
		engine.runResult = &tasks.SortResult{
			PlaylistID:   "PL1",
			Materialized: &tasks.MaterializeResult{PlaylistID: "PLnew", State: models.StateCompleted, LastSuccessful: 3, Total: 3},
		}
		m := NewModel(context.Background(), engine, "")
		toConfirm(t, m)

		send(t, m, keyPress("y"))
		drain(t, m)

		req := engine.requests[0]
		if !req.CreatePlaylist || req.NewPlaylistName != "Mix (sorted by title)" {
			t.Errorf("unexpected request %+v", req)
		}
		if view := m.View(); !strings.Contains(view, "PLnew") || !strings.Contains(view, "3/3") {
			t.Errorf("expected created playlist in view, got %q", view)
		}
	})

	t.Run("resumes a partial run", func(t *testing.T) {
		engine := fixture()
		engine.runResult = &tasks.SortResult{
			PlaylistID:   "PL1",
			Materialized: &tasks.MaterializeResult{PlaylistID: "PLnew", State: models.StateFailed, LastSuccessful: 1, Total: 3},
			JobID:        "job-1",
		}
		engine.runErr = shared.Faultf(shared.FaultRemoteCall, "insert", "backend error")
		m := NewModel(context.Background(), engine, "")
		toConfirm(t, m)

		send(t, m, keyPress("y"))
		drain(t, m)
		if !m.canResume() {
			t.Fatal("expected run to be resumable")
		}
		if !strings.Contains(m.View(), "holds 1 of 3") {
			t.Errorf("expected partial progress in view, got %q", m.View())
		}

		cmd := send(t, m, keyPress("r"))
		if cmd == nil {
			t.Fatal("expected resume to start")
		}
		drain(t, m)

		if engine.resumed != "job-1" {
			t.Errorf("expected job-1 to be resumed, got %q", engine.resumed)
		}
		if m.Err() != nil {
			t.Errorf("unexpected error after resume: %v", m.Err())
		}
	})

	t.Run("failed run without a playlist is not resumable", func(t *testing.T) {
		engine := fixture()
		engine.runErr = shared.Faultf(shared.FaultUnsupported, "sort", "Duration sorting not implemented")
		m := NewModel(context.Background(), engine, "")
		toConfirm(t, m)

		send(t, m, keyPress("n"))
		drain(t, m)

		if m.canResume() {
			t.Error("expected run not to be resumable")
		}
		if !strings.Contains(m.View(), "unsupported_operation") {
			t.Errorf("expected fault kind in view, got %q", m.View())
		}
		if cmd := send(t, m, keyPress("r")); cmd != nil {
			t.Error("expected resume key to be ignored")
		}

		send(t, m, keyPress("esc"))
		if m.view != PlaylistListView || m.Err() != nil {
			t.Errorf("expected reset to playlist view, got %v (err %v)", m.view, m.Err())
		}
	})

	t.Run("quits when playlists cannot be fetched", func(t *testing.T) {
		m := NewModel(context.Background(), fixture(), "")
		cmd := send(t, m, playlistsFetchedMsg(nil, errors.New("Not authenticated")))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("esc steps back through the views", func(t *testing.T) {
		m := NewModel(context.Background(), fixture(), "")
		toConfirm(t, m)

		send(t, m, keyPress("esc"))
		if m.view != SortView {
			t.Fatalf("expected sort view, got %v", m.view)
		}
		send(t, m, keyPress("esc"))
		if m.view != ItemListView {
			t.Fatalf("expected item list view, got %v", m.view)
		}
		send(t, m, keyPress("esc"))
		if m.view != PlaylistListView {
			t.Fatalf("expected playlist list view, got %v", m.view)
		}
	})
}

func TestBar(t *testing.T) {
	if got := bar(0, 0, 10); got != "" {
		t.Errorf("expected empty bar, got %q", got)
	}
	if got := bar(5, 10, 10); !strings.HasSuffix(got, "5/10") || strings.Count(got, "█") != 5 {
		t.Errorf("unexpected bar %q", got)
	}
}
