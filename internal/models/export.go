package models

import "time"

// SortedPlaylist is a playlist with its items in sorted order, the unit written by the exporters.
type SortedPlaylist struct {
	Playlist Playlist       `json:"playlist"`
	Spec     SortSpec       `json:"sort"`
	Items    []EnrichedItem `json:"items"`
}

// ExportResult is the outcome of exporting one playlist.
type ExportResult struct {
	PlaylistID string   `json:"playlist_id"`
	Title      string   `json:"title"`
	Success    bool     `json:"success"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ExportManifest summarizes a bulk export.
type ExportManifest struct {
	CreatedAt       time.Time      `json:"created_at"`
	Format          string         `json:"format"`
	Spec            SortSpec       `json:"sort"`
	OutputDirectory string         `json:"output_directory"`
	TotalPlaylists  int            `json:"total_playlists"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	Results         []ExportResult `json:"results"`
}
