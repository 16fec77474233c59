// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// Operation names counted by [FakeYouTube].
const (
	OpPlaylistsList     = "playlists.list"
	OpPlaylistItemsList = "playlistItems.list"
	OpVideosList        = "videos.list"
	OpPlaylistsInsert   = "playlists.insert"
	OpItemsInsert       = "playlistItems.insert"
	OpPlaylistsDelete   = "playlists.delete"
)

// FakeItem is an entry of a fake playlist.
type FakeItem struct {
	VideoID     string
	Title       string
	PublishedAt string
	Channel     string
}

// FakePlaylist is a playlist served by [FakeYouTube].
//
// Declared overrides the item count reported by playlists.list when non-negative.
type FakePlaylist struct {
	ID          string
	Title       string
	Description string
	ChannelID   string
	Privacy     string
	Declared    int
	Items       []FakeItem
}

// FakeVideo is a video served by videos.list. Videos not registered are omitted from lookups.
type FakeVideo struct {
	ID        string
	Thumbnail string
	Duration  string
}

// FakeYouTube is an httptest server speaking the subset of the YouTube Data API v3 the pipeline uses.
//
// Page tokens are item offsets. Every request is counted per operation so tests can assert call patterns.
type FakeYouTube struct {
	Server *httptest.Server

	mu              sync.Mutex
	playlists       map[string]*FakePlaylist
	order           []string
	videos          map[string]FakeVideo
	calls           map[string]int
	videoBatches    [][]string
	failCalls       map[string]map[int]int
	failVideos      map[string]int
	cursorOnEmpty   bool
	nextID          int
	insertedVideos  []string
	createdRequests []CreatedPlaylist
}

// CreatedPlaylist records a playlists.insert request.
type CreatedPlaylist struct {
	ID          string
	Title       string
	Description string
	Privacy     string
}

// NewFakeYouTube starts a fake server that is closed when the test ends.
func NewFakeYouTube(t *testing.T) *FakeYouTube {
	t.Helper()

	f := &FakeYouTube{
		playlists:  make(map[string]*FakePlaylist),
		videos:     make(map[string]FakeVideo),
		calls:      make(map[string]int),
		failCalls:  make(map[string]map[int]int),
		failVideos: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Server.Close)
	return f
}

// ClientOptions points a youtube client at the fake server.
func (f *FakeYouTube) ClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(f.Server.URL + "/"),
		option.WithHTTPClient(f.Server.Client()),
	}
}

// AddPlaylist registers pl. A zero Declared reports len(Items); use -1 for the same explicitly.
func (f *FakeYouTube) AddPlaylist(pl FakePlaylist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pl.Declared == 0 {
		pl.Declared = -1
	}
	f.playlists[pl.ID] = &pl
	f.order = append(f.order, pl.ID)
}

// AddVideos registers videos returned by videos.list.
func (f *FakeYouTube) AddVideos(videos ...FakeVideo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range videos {
		f.videos[v.ID] = v
	}
}

// SeedPlaylist registers a playlist of n items, each with a looked-up video, ids v1..vn.
func (f *FakeYouTube) SeedPlaylist(id string, n int) {
	items := make([]FakeItem, n)
	videos := make([]FakeVideo, n)
	for i := range n {
		vid := fmt.Sprintf("v%d", i+1)
		items[i] = FakeItem{
			VideoID:     vid,
			Title:       fmt.Sprintf("Video %03d", i+1),
			PublishedAt: fmt.Sprintf("2024-01-01T00:%02d:%02dZ", (i/60)%60, i%60),
			Channel:     "Channel",
		}
		videos[i] = FakeVideo{ID: vid, Thumbnail: "https://i.ytimg.com/vi/" + vid + "/default.jpg", Duration: "PT3M"}
	}
	f.AddPlaylist(FakePlaylist{ID: id, Title: "Playlist " + id, Items: items})
	f.AddVideos(videos...)
}

// FailCall makes the nth (1-based) request of op respond with status.
func (f *FakeYouTube) FailCall(op string, n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCalls[op] == nil {
		f.failCalls[op] = make(map[int]int)
	}
	f.failCalls[op][n] = status
}

// FailVideoInsert makes every playlistItems.insert of videoID respond with status.
func (f *FakeYouTube) FailVideoInsert(videoID string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failVideos[videoID] = status
}

// CursorOnEmptyPage makes the listing return a next page token alongside an empty last page.
func (f *FakeYouTube) CursorOnEmptyPage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursorOnEmpty = true
}

// Calls returns how many requests op received.
func (f *FakeYouTube) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of requests received.
func (f *FakeYouTube) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// VideoBatches returns the id list of every videos.list request in order.
func (f *FakeYouTube) VideoBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.videoBatches...)
}

// Inserted returns the video ids successfully inserted, in order.
func (f *FakeYouTube) Inserted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.insertedVideos...)
}

// Created returns every playlist created through playlists.insert.
func (f *FakeYouTube) Created() []CreatedPlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedPlaylist(nil), f.createdRequests...)
}

// Playlist returns a copy of the playlist with id.
func (f *FakeYouTube) Playlist(id string) (FakePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pl, ok := f.playlists[id]
	if !ok {
		return FakePlaylist{}, false
	}
	cp := *pl
	cp.Items = append([]FakeItem(nil), pl.Items...)
	return cp, true
}

func (f *FakeYouTube) serveHTTP(w http.ResponseWriter, r *http.Request) {
	resource := path.Base(r.URL.Path)

	var op string
	switch {
	case resource == "playlists" && r.Method == http.MethodGet:
		op = OpPlaylistsList
	case resource == "playlists" && r.Method == http.MethodPost:
		op = OpPlaylistsInsert
	case resource == "playlists" && r.Method == http.MethodDelete:
		op = OpPlaylistsDelete
	case resource == "playlistItems" && r.Method == http.MethodGet:
		op = OpPlaylistItemsList
	case resource == "playlistItems" && r.Method == http.MethodPost:
		op = OpItemsInsert
	case resource == "videos" && r.Method == http.MethodGet:
		op = OpVideosList
	default:
		writeAPIError(w, http.StatusNotFound, "unknown endpoint "+r.Method+" "+r.URL.Path)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	if status, ok := f.failCalls[op][f.calls[op]]; ok {
		writeAPIError(w, status, "injected failure")
		return
	}

	switch op {
	case OpPlaylistsList:
		f.listPlaylists(w, r)
	case OpPlaylistItemsList:
		f.listItems(w, r)
	case OpVideosList:
		f.listVideos(w, r)
	case OpPlaylistsInsert:
		f.insertPlaylist(w, r)
	case OpItemsInsert:
		f.insertItem(w, r)
	case OpPlaylistsDelete:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *FakeYouTube) listPlaylists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if id := q.Get("id"); id != "" {
		items := []map[string]any{}
		if pl, ok := f.playlists[id]; ok {
			items = append(items, playlistJSON(pl))
		}
		writeJSON(w, map[string]any{"kind": "youtube#playlistListResponse", "items": items})
		return
	}

	channel := q.Get("channelId")
	var all []*FakePlaylist
	for _, id := range f.order {
		pl := f.playlists[id]
		if channel == "" || pl.ChannelID == channel {
			all = append(all, pl)
		}
	}

	start, end, next := pageBounds(q, len(all))
	items := make([]map[string]any, 0, end-start)
	for _, pl := range all[start:end] {
		items = append(items, playlistJSON(pl))
	}
	writeJSON(w, listResponse("youtube#playlistListResponse", items, next))
}

func (f *FakeYouTube) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pl, ok := f.playlists[q.Get("playlistId")]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "playlistNotFound")
		return
	}

	start, end, next := pageBounds(q, len(pl.Items))
	if next == "" && f.cursorOnEmpty {
		next = "p" + strconv.Itoa(len(pl.Items))
	}

	items := make([]map[string]any, 0, end-start)
	for i, it := range pl.Items[start:end] {
		items = append(items, map[string]any{
			"kind": "youtube#playlistItem",
			"id":   fmt.Sprintf("%s-%d", pl.ID, start+i),
			"snippet": map[string]any{
				"playlistId":             pl.ID,
				"title":                  it.Title,
				"publishedAt":            it.PublishedAt,
				"videoOwnerChannelTitle": it.Channel,
				"position":               start + i,
				"resourceId":             map[string]any{"kind": "youtube#video", "videoId": it.VideoID},
			},
		})
	}
	writeJSON(w, listResponse("youtube#playlistItemListResponse", items, next))
}

func (f *FakeYouTube) listVideos(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["id"] {
		for id := range strings.SplitSeq(v, ",") {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	f.videoBatches = append(f.videoBatches, ids)

	items := []map[string]any{}
	for _, id := range ids {
		v, ok := f.videos[id]
		if !ok {
			continue
		}
		thumbs := map[string]any{}
		if v.Thumbnail != "" {
			thumbs["default"] = map[string]any{"url": v.Thumbnail, "width": 120, "height": 90}
		}
		items = append(items, map[string]any{
			"kind":           "youtube#video",
			"id":             id,
			"snippet":        map[string]any{"thumbnails": thumbs},
			"contentDetails": map[string]any{"duration": v.Duration},
		})
	}
	writeJSON(w, map[string]any{"kind": "youtube#videoListResponse", "items": items})
}

func (f *FakeYouTube) insertPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		Status struct {
			PrivacyStatus string `json:"privacyStatus"`
		} `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.nextID++
	id := fmt.Sprintf("PLnew%d", f.nextID)
	f.playlists[id] = &FakePlaylist{
		ID:          id,
		Title:       body.Snippet.Title,
		Description: body.Snippet.Description,
		Privacy:     body.Status.PrivacyStatus,
		Declared:    -1,
	}
	f.order = append(f.order, id)
	f.createdRequests = append(f.createdRequests, CreatedPlaylist{
		ID:          id,
		Title:       body.Snippet.Title,
		Description: body.Snippet.Description,
		Privacy:     body.Status.PrivacyStatus,
	})

	writeJSON(w, map[string]any{
		"kind":    "youtube#playlist",
		"id":      id,
		"snippet": map[string]any{"title": body.Snippet.Title, "description": body.Snippet.Description},
		"status":  map[string]any{"privacyStatus": body.Status.PrivacyStatus},
	})
}

func (f *FakeYouTube) insertItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Snippet struct {
			PlaylistID string `json:"playlistId"`
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	vid := body.Snippet.ResourceID.VideoID
	if status, ok := f.failVideos[vid]; ok {
		writeAPIError(w, status, "injected failure for "+vid)
		return
	}

	pl, ok := f.playlists[body.Snippet.PlaylistID]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "playlistNotFound")
		return
	}

	pl.Items = append(pl.Items, FakeItem{VideoID: vid})
	f.insertedVideos = append(f.insertedVideos, vid)

	writeJSON(w, map[string]any{
		"kind": "youtube#playlistItem",
		"id":   fmt.Sprintf("%s-%d", pl.ID, len(pl.Items)-1),
		"snippet": map[string]any{
			"playlistId": pl.ID,
			"position":   len(pl.Items) - 1,
			"resourceId": map[string]any{"kind": "youtube#video", "videoId": vid},
		},
	})
}

func playlistJSON(pl *FakePlaylist) map[string]any {
	count := pl.Declared
	if count < 0 {
		count = len(pl.Items)
	}
	return map[string]any{
		"kind": "youtube#playlist",
		"id":   pl.ID,
		"snippet": map[string]any{
			"title":       pl.Title,
			"description": pl.Description,
			"channelId":   pl.ChannelID,
		},
		"status":         map[string]any{"privacyStatus": pl.Privacy},
		"contentDetails": map[string]any{"itemCount": count},
	}
}

// pageBounds reads maxResults and the "p<offset>" page token.
func pageBounds(q map[string][]string, total int) (start, end int, next string) {
	size := 5
	if v := first(q["maxResults"]); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if tok := first(q["pageToken"]); strings.HasPrefix(tok, "p") {
		if n, err := strconv.Atoi(tok[1:]); err == nil {
			start = n
		}
	}

	start = min(start, total)
	end = min(start+size, total)
	if end < total {
		next = "p" + strconv.Itoa(end)
	}
	return start, end, next
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func listResponse(kind string, items []map[string]any, next string) map[string]any {
	resp := map[string]any{"kind": kind, "items": items}
	if next != "" {
		resp["nextPageToken"] = next
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}
