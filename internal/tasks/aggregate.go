package tasks

import (
	"maps"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

// Aggregate merges item pages with the videos looked up for each page, in page order.
//
// Items whose video was not returned by the lookup get an empty, non-nil thumbnail set.
// The merged length must equal declared, otherwise a completeness fault is returned.
func Aggregate(pages []services.ItemPage, declared int) ([]models.EnrichedItem, error) {
	items := make([]models.EnrichedItem, 0, declared)

	for _, page := range pages {
		for _, rec := range page.Items {
			thumbs := models.Thumbnails{}
			var duration int
			if video, ok := page.Videos[rec.VideoID]; ok && rec.VideoID != "" {
				maps.Copy(thumbs, video.Thumbnails)
				duration = video.DurationSeconds
			}
			rec.Thumbnails = thumbs

			items = append(items, models.EnrichedItem{
				VideoID:         rec.VideoID,
				Title:           rec.Title,
				PublishedAt:     rec.PublishedAt,
				Thumbnails:      rec.Thumbnails,
				ChannelTitle:    rec.ChannelTitle,
				PlaylistID:      rec.PlaylistID,
				Position:        rec.Position,
				DurationSeconds: duration,
			})
		}
	}

	if len(items) != declared {
		return nil, shared.Faultf(shared.FaultCompleteness, "aggregate",
			"%w: got %d items, playlist declares %d", shared.ErrIncomplete, len(items), declared)
	}
	return items, nil
}
