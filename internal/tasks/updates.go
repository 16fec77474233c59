package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsort/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchCount Phase = iota
	FetchItems
	AggregateItems
	Sorting
	CreatePlaylist
	InsertItems
	Complete
	FetchPlaylists
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchCount:
		return "fetch_count"
	case FetchItems:
		return "fetch_items"
	case AggregateItems:
		return "aggregate"
	case Sorting:
		return "sort"
	case CreatePlaylist:
		return "create_playlist"
	case InsertItems:
		return "insert_items"
	case Complete:
		return "complete"
	case FetchPlaylists:
		return "fetch_playlists"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchCountUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCount,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching item count for %s...", playlistID),
	}
}

func fetchItemsUpdate(declared int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    0,
		Total:   declared,
		Message: fmt.Sprintf("Fetching %d items...", declared),
	}
}

func aggregatedUpdate(items []models.EnrichedItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AggregateItems,
		Step:    len(items),
		Total:   len(items),
		Message: fmt.Sprintf("Merged %d items with video details", len(items)),
	}
}

func sortedUpdate(spec models.SortSpec, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Sorting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sorted %d items by %s (%s)", n, spec.Key, spec.Direction),
	}
}

func fetchPlaylistsUpdate(channelID string) ProgressUpdate {
	who := "your channel"
	if channelID != "" {
		who = channelID
	}
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlists of %s...", who),
	}
}

// materializeUpdate translates a materializer checkpoint into a progress event.
func materializeUpdate(res MaterializeResult) ProgressUpdate {
	switch res.State {
	case models.StateNotStarted:
		return ProgressUpdate{Phase: CreatePlaylist, Step: 0, Total: 1, Message: "Creating private playlist...", Data: res}
	case models.StatePlaylistCreated:
		return ProgressUpdate{
			Phase:   CreatePlaylist,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Playlist created (ID: %s)", res.PlaylistID),
			Data:    res,
		}
	case models.StateInsertingItem:
		return ProgressUpdate{
			Phase:   InsertItems,
			Step:    res.Current,
			Total:   res.Total,
			Message: fmt.Sprintf("[%d/%d] Inserting item...", res.Current, res.Total),
			Data:    res,
		}
	case models.StateCompleted:
		return ProgressUpdate{
			Phase:   Complete,
			Step:    res.Total,
			Total:   res.Total,
			Message: fmt.Sprintf("✓ Inserted %d items into %s", res.LastSuccessful, res.PlaylistID),
			Data:    res,
		}
	default:
		return ProgressUpdate{
			Phase:   Complete,
			Step:    res.LastSuccessful,
			Total:   res.Total,
			Message: fmt.Sprintf("✗ Stopped after %d of %d items", res.LastSuccessful, res.Total),
			Data:    res,
		}
	}
}

func exportingPlaylistUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, id),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
