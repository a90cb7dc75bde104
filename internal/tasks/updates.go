package tasks

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running export.
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
	FetchPlaylists Phase = iota
	ExportTracks
	Assemble
	ExportComplete
	ExportFailed
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case ExportTracks:
		return "export_tracks"
	case Assemble:
		return "assemble"
	case ExportComplete:
		return "export_complete"
	case ExportFailed:
		return "export_failed"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: "Fetching playlists from Spotify...",
	}
}

func foundPlaylistsUpdate(playlists []models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", len(playlists)),
		Data:    playlists,
	}
}

func exportTracksUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportSkippedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func assembleUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Assemble,
		Step:    total,
		Total:   total,
		Message: "Assembling CSV artifact...",
	}
}

func completeUpdate(artifact *models.Artifact) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Export complete: %s", artifact.Filename),
		Data:    artifact,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFailed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Export failed: %v", err),
	}
}
