package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
)

const maxBodyBytes = 1 << 20

// Engine is the subset of [tasks.PlaylistEngine] served over HTTP.
type Engine interface {
	Playlists(ctx context.Context, channelID string, progress chan<- tasks.ProgressUpdate) ([]models.Playlist, error)
	Read(ctx context.Context, playlistID string, progress chan<- tasks.ProgressUpdate) ([]models.EnrichedItem, error)
	Run(ctx context.Context, req tasks.SortRequest, progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error)
}

// AuthStatus reports whether a user credential is stored.
type AuthStatus interface {
	Authenticated() bool
}

// APIHandler serves the JSON API.
type APIHandler struct {
	engine Engine
	auth   AuthStatus
	logger *log.Logger
}

// NewAPIHandler creates the JSON API handler. auth may be nil when no OAuth client is configured.
func NewAPIHandler(engine Engine, auth AuthStatus, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &APIHandler{engine: engine, auth: auth, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/playlists", "/api/playlist-items", "/api/sort", "/api/auth/status", "/healthz"}
}

// ServeHTTP dispatches on path and method.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	switch route {
	case "GET /api/playlists":
		h.playlists(w, r)
	case "GET /api/playlist-items":
		h.playlistItems(w, r)
	case "POST /api/sort":
		h.sort(w, r)
	case "GET /api/auth/status":
		h.authStatus(w, r)
	case "GET /healthz":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		if h.known(r.URL.Path) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandler) known(path string) bool {
	for _, route := range h.Routes() {
		if route == path {
			return true
		}
	}
	return false
}

func (h *APIHandler) playlists(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(r.URL.Query().Get("channel_id"))
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "Channel ID is required")
		return
	}

	playlists, err := h.engine.Playlists(r.Context(), channelID, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": playlists})
}

func (h *APIHandler) playlistItems(w http.ResponseWriter, r *http.Request) {
	playlistID := strings.TrimSpace(r.URL.Query().Get("playlist_id"))
	if playlistID == "" {
		writeError(w, http.StatusBadRequest, "Playlist ID is required")
		return
	}

	items, err := h.engine.Read(r.Context(), playlistID, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// sortResponse is the body of a successful materializing sort.
type sortResponse struct {
	Message       string `json:"message"`
	NewPlaylistID string `json:"new_playlist_id"`
	ItemsInserted int    `json:"items_inserted"`
	JobID         string `json:"job_id,omitempty"`
}

// partialFailure is the body of a sort whose materialization stopped part-way.
type partialFailure struct {
	Error               string `json:"error"`
	Kind                string `json:"kind"`
	NewPlaylistID       string `json:"new_playlist_id,omitempty"`
	LastSuccessfulIndex int    `json:"last_successful_index"`
	FailedIndex         int    `json:"failed_index,omitempty"`
	JobID               string `json:"job_id,omitempty"`
}

func (h *APIHandler) sort(w http.ResponseWriter, r *http.Request) {
	var req tasks.SortRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.engine.Run(r.Context(), req, nil)
	if err != nil {
		if result != nil && result.Materialized != nil && result.Materialized.PlaylistID != "" {
			h.partial(w, result, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	if result.Materialized == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": result.Items})
		return
	}

	writeJSON(w, http.StatusOK, sortResponse{
		Message:       "Playlist created successfully",
		NewPlaylistID: result.Materialized.PlaylistID,
		ItemsInserted: result.Materialized.LastSuccessful,
		JobID:         result.JobID,
	})
}

func (h *APIHandler) partial(w http.ResponseWriter, result *tasks.SortResult, err error) {
	res := result.Materialized
	body := partialFailure{
		Error:               err.Error(),
		Kind:                shared.KindOf(err).String(),
		NewPlaylistID:       res.PlaylistID,
		LastSuccessfulIndex: res.LastSuccessful,
		JobID:               result.JobID,
	}
	if f, ok := shared.AsFault(err); ok {
		body.FailedIndex = f.Index
	}

	h.logger.Warn("sort partially materialized", "playlist", res.PlaylistID, "last", res.LastSuccessful, "error", err)
	writeJSON(w, http.StatusBadGateway, body)
}

func (h *APIHandler) authStatus(w http.ResponseWriter, _ *http.Request) {
	authenticated := h.auth != nil && h.auth.Authenticated()
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}

// fail writes err as {error, kind} with the status of its fault kind.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := shared.HTTPStatus(err)
	if errors.Is(err, context.Canceled) {
		status = 499
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  shared.KindOf(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
