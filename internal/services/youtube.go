// YouTube Data API v3 implementation of [Lister] and [Writer]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// MaxPageSize is the largest maxResults the API accepts, and the most ids one videos.list call takes.
	MaxPageSize     int64 = 50
	defaultPrivacy        = "private"
	resourceKindVid       = "youtube#video"
)

// ResourceKind selects which paginated collection [YouTubeClient.FetchAllPages] walks.
type ResourceKind int

const (
	KindPlaylistItems ResourceKind = iota + 1
	KindPlaylists
)

func (k ResourceKind) String() string {
	switch k {
	case KindPlaylistItems:
		return "playlistItems.list"
	case KindPlaylists:
		return "playlists.list"
	default:
		return "unknown.list"
	}
}

// Page is one page of a listing. Items is set for [KindPlaylistItems], Playlists for [KindPlaylists].
type Page struct {
	Kind      ResourceKind
	Number    int
	Items     []models.PlaylistItemRecord
	Playlists []models.Playlist
}

// Len is the number of records in the page.
func (p Page) Len() int { return len(p.Items) + len(p.Playlists) }

// YouTubeClient is the YouTube Data API client used by the pipeline.
type YouTubeClient struct {
	svc      *youtube.Service
	pageSize int64
	timeout  time.Duration
	logger   *log.Logger
}

// ClientOpts configures a [YouTubeClient].
type ClientOpts struct {
	PageSize int64
	Timeout  time.Duration
	Logger   *log.Logger
}

// NewYouTubeClient creates a client from google api options (API key, token source, endpoint, ...).
func NewYouTubeClient(ctx context.Context, opts ClientOpts, clientOpts ...option.ClientOption) (*YouTubeClient, error) {
	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create youtube service: %v", shared.ErrServiceUnavailable, err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *youtube.Service, opts ClientOpts) *YouTubeClient {
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &YouTubeClient{
		svc:      svc,
		pageSize: opts.PageSize,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// callContext bounds a single remote round trip.
func (c *YouTubeClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// PlaylistItemCount returns contentDetails.itemCount for the playlist.
func (c *YouTubeClient) PlaylistItemCount(ctx context.Context, playlistID string) (int, error) {
	const op = "playlists.list"

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.svc.Playlists.List([]string{"contentDetails"}).Id(playlistID).Context(callCtx).Do()
	if err != nil {
		return 0, remoteFault(op, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return 0, shared.Faultf(shared.FaultRemoteCall, op, "%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	count := int(resp.Items[0].ContentDetails.ItemCount)
	c.logger.Debug("declared item count", "playlist", playlistID, "count", count)
	return count, nil
}

// Playlist returns the playlist's snippet, status and declared item count.
func (c *YouTubeClient) Playlist(ctx context.Context, playlistID string) (models.Playlist, error) {
	const op = "playlists.list"

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.svc.Playlists.List([]string{"snippet", "contentDetails", "status"}).Id(playlistID).Context(callCtx).Do()
	if err != nil {
		return models.Playlist{}, remoteFault(op, err)
	}
	if len(resp.Items) == 0 {
		return models.Playlist{}, shared.Faultf(shared.FaultRemoteCall, op, "%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return toPlaylist(resp.Items[0]), nil
}

// FetchAllPages walks a paginated collection from the first page until the next-page cursor is absent,
// calling visit once per page in order. Each invocation starts a fresh walk.
//
// query is the playlist id for [KindPlaylistItems] and the channel id (empty for the user's own) for
// [KindPlaylists].
func (c *YouTubeClient) FetchAllPages(ctx context.Context, kind ResourceKind, query string, visit func(Page) error) error {
	cursor := ""
	for number := 1; ; number++ {
		if err := ctx.Err(); err != nil {
			f := remoteFault(kind.String(), err)
			f.Page = number
			return f
		}

		page, next, err := c.fetchPage(ctx, kind, query, cursor)
		if err != nil {
			f := remoteFault(kind.String(), err)
			f.Page = number
			return f
		}
		page.Number = number

		if next != "" && page.Len() == 0 {
			return &shared.Fault{
				Kind: shared.FaultRemoteCall,
				Op:   kind.String(),
				Page: number,
				Err:  errors.New("next page cursor returned with an empty page"),
			}
		}

		c.logger.Debug("fetched page", "op", kind, "query", query, "page", number, "records", page.Len(), "more", next != "")

		if err := visit(page); err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

func (c *YouTubeClient) fetchPage(ctx context.Context, kind ResourceKind, query, cursor string) (Page, string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	switch kind {
	case KindPlaylistItems:
		call := c.svc.PlaylistItems.List([]string{"snippet"}).PlaylistId(query).MaxResults(c.pageSize)
		if cursor != "" {
			call = call.PageToken(cursor)
		}
		resp, err := call.Context(callCtx).Do()
		if err != nil {
			return Page{}, "", err
		}
		items := make([]models.PlaylistItemRecord, 0, len(resp.Items))
		for _, it := range resp.Items {
			items = append(items, toItemRecord(query, it))
		}
		return Page{Kind: kind, Items: items}, resp.NextPageToken, nil

	case KindPlaylists:
		call := c.svc.Playlists.List([]string{"snippet", "contentDetails", "status"}).MaxResults(c.pageSize)
		if query == "" {
			call = call.Mine(true)
		} else {
			call = call.ChannelId(query)
		}
		if cursor != "" {
			call = call.PageToken(cursor)
		}
		resp, err := call.Context(callCtx).Do()
		if err != nil {
			return Page{}, "", err
		}
		playlists := make([]models.Playlist, 0, len(resp.Items))
		for _, pl := range resp.Items {
			playlists = append(playlists, toPlaylist(pl))
		}
		return Page{Kind: kind, Playlists: playlists}, resp.NextPageToken, nil
	}

	return Page{}, "", fmt.Errorf("%w: unknown resource kind %d", shared.ErrInvalidArgument, kind)
}

// ListPlaylistItems walks every item page of the playlist and performs one batched video lookup per page.
func (c *YouTubeClient) ListPlaylistItems(ctx context.Context, playlistID string) ([]ItemPage, error) {
	var pages []ItemPage

	err := c.FetchAllPages(ctx, KindPlaylistItems, playlistID, func(p Page) error {
		videos, err := c.LookupVideos(ctx, videoIDs(p.Items))
		if err != nil {
			if f, ok := shared.AsFault(err); ok {
				f.Page = p.Number
			}
			return err
		}
		pages = append(pages, ItemPage{Number: p.Number, Items: p.Items, Videos: videos})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// LookupVideos fetches thumbnails and durations for ids with one videos.list call per 50 ids.
//
// Videos that are deleted or private are simply missing from the result.
func (c *YouTubeClient) LookupVideos(ctx context.Context, ids []string) (map[string]models.VideoRecord, error) {
	const op = "videos.list"
	videos := make(map[string]models.VideoRecord, len(ids))

	for start := 0; start < len(ids); start += int(MaxPageSize) {
		end := min(start+int(MaxPageSize), len(ids))

		callCtx, cancel := c.callContext(ctx)
		resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails"}).
			Id(strings.Join(ids[start:end], ",")).
			MaxResults(MaxPageSize).
			Context(callCtx).
			Do()
		cancel()
		if err != nil {
			return nil, remoteFault(op, err)
		}

		for _, v := range resp.Items {
			videos[v.Id] = c.toVideoRecord(v)
		}
	}

	return videos, nil
}

// ListPlaylists returns every playlist of channelID, or of the authorized user when channelID is empty.
func (c *YouTubeClient) ListPlaylists(ctx context.Context, channelID string) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := c.FetchAllPages(ctx, KindPlaylists, channelID, func(p Page) error {
		playlists = append(playlists, p.Playlists...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return playlists, nil
}

// CreatePlaylist creates an empty playlist. Privacy defaults to private.
func (c *YouTubeClient) CreatePlaylist(ctx context.Context, req models.NewPlaylistRequest) (string, error) {
	const op = "playlists.insert"

	if strings.TrimSpace(req.Title) == "" {
		return "", shared.Faultf(shared.FaultValidation, op, "%w: playlist title", shared.ErrMissingArgument)
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	created, err := c.svc.Playlists.Insert([]string{"snippet", "status"}, &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: req.Title, Description: req.Description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: privacy},
	}).Context(callCtx).Do()
	if err != nil {
		return "", remoteFault(op, err)
	}

	c.logger.Info("created playlist", "id", created.Id, "title", req.Title, "privacy", privacy)
	return created.Id, nil
}

// InsertItem appends videoID to the end of playlistID.
func (c *YouTubeClient) InsertItem(ctx context.Context, playlistID, videoID string) error {
	const op = "playlistItems.insert"

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.svc.PlaylistItems.Insert([]string{"snippet"}, &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: resourceKindVid, VideoId: videoID},
		},
	}).Context(callCtx).Do()
	if err != nil {
		return remoteFault(op, err)
	}
	return nil
}

// IsRetryable reports whether a failed call may succeed when repeated: rate limiting, server errors,
// per-call timeouts and transport failures. Authorization and client errors are final.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if shared.KindOf(err) == shared.FaultAuthorization || shared.KindOf(err) == shared.FaultValidation {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	return true
}

// remoteFault converts a client error into a Fault. 401 responses are authorization faults.
func remoteFault(op string, err error) *shared.Fault {
	if f, ok := shared.AsFault(err); ok {
		return f
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return shared.NewFault(shared.FaultAuthorization, op, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.NewFault(shared.FaultRemoteCall, op, fmt.Errorf("%w: %w", shared.ErrTimeout, err))
	}
	return shared.NewFault(shared.FaultRemoteCall, op, err)
}

func toItemRecord(playlistID string, it *youtube.PlaylistItem) models.PlaylistItemRecord {
	rec := models.PlaylistItemRecord{PlaylistID: playlistID}
	if it == nil || it.Snippet == nil {
		return rec
	}

	s := it.Snippet
	rec.Title = s.Title
	rec.PublishedAt = s.PublishedAt
	rec.ChannelTitle = s.VideoOwnerChannelTitle
	rec.Position = int(s.Position)
	if s.PlaylistId != "" {
		rec.PlaylistID = s.PlaylistId
	}
	if s.ResourceId != nil {
		rec.VideoID = s.ResourceId.VideoId
	}
	return rec
}

func (c *YouTubeClient) toVideoRecord(v *youtube.Video) models.VideoRecord {
	rec := models.VideoRecord{ID: v.Id, Thumbnails: models.Thumbnails{}}
	if v.Snippet != nil {
		rec.Thumbnails = toThumbnails(v.Snippet.Thumbnails)
	}
	if v.ContentDetails != nil {
		secs, err := shared.ParseISODuration(v.ContentDetails.Duration)
		if err != nil {
			c.logger.Warn("unparseable video duration", "video", v.Id, "error", err)
		}
		rec.DurationSeconds = secs
	}
	return rec
}

func toPlaylist(pl *youtube.Playlist) models.Playlist {
	out := models.Playlist{ID: pl.Id, Thumbnails: models.Thumbnails{}}
	if pl.Snippet != nil {
		out.Title = pl.Snippet.Title
		out.Description = pl.Snippet.Description
		out.ChannelID = pl.Snippet.ChannelId
		out.ChannelTitle = pl.Snippet.ChannelTitle
		out.Thumbnails = toThumbnails(pl.Snippet.Thumbnails)
	}
	if pl.ContentDetails != nil {
		out.ItemCount = int(pl.ContentDetails.ItemCount)
	}
	if pl.Status != nil {
		out.Privacy = pl.Status.PrivacyStatus
	}
	return out
}

// toThumbnails converts the API's fixed rendition fields into a set. The result is never nil.
func toThumbnails(td *youtube.ThumbnailDetails) models.Thumbnails {
	set := models.Thumbnails{}
	if td == nil {
		return set
	}

	for name, th := range map[string]*youtube.Thumbnail{
		"default":  td.Default,
		"medium":   td.Medium,
		"high":     td.High,
		"standard": td.Standard,
		"maxres":   td.Maxres,
	} {
		if th != nil && th.Url != "" {
			set[name] = models.Thumbnail{URL: th.Url, Width: int(th.Width), Height: int(th.Height)}
		}
	}
	return set
}
