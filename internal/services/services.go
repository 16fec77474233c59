// package services wraps the YouTube Data API behind the listing, writing and credential
// contracts used by the playlist pipeline.
package services

import (
	"context"

	"github.com/desertthunder/ytsort/internal/models"
	"golang.org/x/oauth2"
)

// Lister reads playlists and their items.
type Lister interface {
	// PlaylistItemCount returns the playlist's declared item count with a single non-paged query.
	PlaylistItemCount(ctx context.Context, playlistID string) (int, error)

	// ListPlaylistItems walks every item page of the playlist. Each page carries the result of one
	// batched video lookup for that page's ids.
	ListPlaylistItems(ctx context.Context, playlistID string) ([]ItemPage, error)

	// ListPlaylists returns a channel's playlists, or the authorized user's own when channelID is empty.
	ListPlaylists(ctx context.Context, channelID string) ([]models.Playlist, error)

	// Playlist returns a single playlist's metadata.
	Playlist(ctx context.Context, playlistID string) (models.Playlist, error)
}

// Writer creates playlists and appends items to them.
type Writer interface {
	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, req models.NewPlaylistRequest) (string, error)

	// InsertItem appends a single video to the end of the playlist.
	InsertItem(ctx context.Context, playlistID, videoID string) error
}

// ClientFactory builds remote clients for a single pipeline invocation.
//
// The credential is passed explicitly on every call; a nil token means "no user credential".
type ClientFactory interface {
	Reader(ctx context.Context, tok *oauth2.Token) (Lister, error)
	Writer(ctx context.Context, tok *oauth2.Token) (Writer, error)
}

// CredentialProvider supplies the current user credential, refreshing it when needed.
type CredentialProvider interface {
	Current(ctx context.Context) (*oauth2.Token, error)
}

// ItemPage is one page of playlist items with the videos looked up for it.
type ItemPage struct {
	Number int
	Items  []models.PlaylistItemRecord
	Videos map[string]models.VideoRecord
}

// VideoIDs returns the page's non-empty video ids in page order.
func (p ItemPage) VideoIDs() []string {
	return videoIDs(p.Items)
}

func videoIDs(items []models.PlaylistItemRecord) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.VideoID != "" {
			ids = append(ids, it.VideoID)
		}
	}
	return ids
}
