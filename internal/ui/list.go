package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
)

// playlistItem wraps a playlist for the bubbles list component.
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) Title() string {
	return i.playlist.Name
}

func (i playlistItem) Description() string {
	owner := i.playlist.Owner
	if owner == "" {
		owner = i.playlist.ID
	}
	return fmt.Sprintf("%d tracks · %s", i.playlist.TrackCount, owner)
}

func (i playlistItem) FilterValue() string {
	return i.playlist.Name
}

// trackItem wraps a playlist entry for the track preview list.
type trackItem struct {
	item models.PlaylistItem
}

func (i trackItem) Title() string {
	return i.item.Track.Name
}

func (i trackItem) Description() string {
	names := make([]string, 0, len(i.item.Track.Artists))
	for _, a := range i.item.Track.Artists {
		names = append(names, a.Name)
	}
	return fmt.Sprintf("%s · %s · %s",
		strings.Join(names, ", "),
		i.item.Track.AlbumName,
		formatter.FormatDurationMS(i.item.Track.DurationMS),
	)
}

func (i trackItem) FilterValue() string {
	return i.item.Track.Name
}
