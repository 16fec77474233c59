package models

import (
	"time"
)

// Playlist is playlist metadata as listed by the remote service.
type Playlist struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	ChannelID    string     `json:"channelId,omitempty"`
	ChannelTitle string     `json:"channelTitle,omitempty"`
	Privacy      string     `json:"privacy,omitempty"`
	ItemCount    int        `json:"itemCount"`
	Thumbnails   Thumbnails `json:"thumbnails"`
}

// Thumbnail is a single image rendition.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Thumbnails maps a rendition name (default, medium, high, standard, maxres) to its image.
//
// A nil set means "not looked up yet"; an empty non-nil set means "looked up, nothing found".
type Thumbnails map[string]Thumbnail

var thumbnailPreference = []string{"maxres", "standard", "high", "medium", "default"}

// Best returns the highest resolution rendition available.
func (t Thumbnails) Best() (Thumbnail, bool) {
	for _, name := range thumbnailPreference {
		if th, ok := t[name]; ok && th.URL != "" {
			return th, true
		}
	}
	for _, th := range t {
		if th.URL != "" {
			return th, true
		}
	}
	return Thumbnail{}, false
}

// PlaylistItemRecord is one entry of a playlist-items page.
//
// Thumbnails stays nil until the aggregator attaches the matching video's set.
type PlaylistItemRecord struct {
	PlaylistID   string
	VideoID      string
	Title        string
	PublishedAt  string
	ChannelTitle string
	Position     int
	Thumbnails   Thumbnails
}

// VideoRecord is the subset of video metadata used to enrich playlist items.
type VideoRecord struct {
	ID              string
	Thumbnails      Thumbnails
	DurationSeconds int
}

// EnrichedItem is a playlist item with its video's thumbnails attached.
//
// Thumbnails is never nil.
type EnrichedItem struct {
	VideoID         string     `json:"videoId"`
	Title           string     `json:"title"`
	PublishedAt     string     `json:"publishedAt"`
	Thumbnails      Thumbnails `json:"thumbnails"`
	ChannelTitle    string     `json:"channelTitle,omitempty"`
	PlaylistID      string     `json:"playlistId,omitempty"`
	Position        int        `json:"position"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
}

// PublishedTime parses PublishedAt as RFC 3339 and normalizes it to UTC.
func (e EnrichedItem) PublishedTime() (time.Time, bool) {
	ts, err := time.Parse(time.RFC3339Nano, e.PublishedAt)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// NewPlaylistRequest describes a playlist to create and the video ids to insert, in order.
type NewPlaylistRequest struct {
	Title       string
	Description string
	Privacy     string
	VideoIDs    []string
}

// NewPlaylistRequestFrom builds a request whose VideoIDs follow items' order.
func NewPlaylistRequestFrom(title, description, privacy string, items []EnrichedItem) NewPlaylistRequest {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.VideoID
	}
	return NewPlaylistRequest{Title: title, Description: description, Privacy: privacy, VideoIDs: ids}
}
