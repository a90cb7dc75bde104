// package formatter renders playlist track listings as CSV exports and builds
// the artifact filenames for them.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
)

// maxNameLen caps the sanitized playlist-name portion of a filename.
const maxNameLen = 50

// PlaylistSection pairs a playlist's metadata with its full track listing for
// the combined all-playlists export.
type PlaylistSection struct {
	Playlist models.Playlist
	Items    []models.PlaylistItem
}

var trackHeaders = []string{
	"Position",
	"Track Name",
	"Artists",
	"Album",
	"Release Date",
	"Duration (ms)",
	"Duration (mm:ss)",
	"Popularity",
	"Track ID",
	"Album ID",
	"Artist IDs",
	"Added At",
	"Added By",
	"Is Local",
	"Preview URL",
	"External URLs",
}

var playlistHeaders = []string{
	"Playlist Name",
	"Playlist ID",
	"Playlist Description",
	"Owner",
	"Public",
	"Collaborative",
	"Total Tracks",
}

// PlaylistCSV renders a single playlist's tracks as CSV. Position is 1-based
// and follows the provider's playlist order.
func PlaylistCSV(items []models.PlaylistItem) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(trackHeaders); err != nil {
		return "", fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range items {
		if err := writer.Write(trackRecord(i+1, &item)); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.String(), nil
}

// AllPlaylistsCSV renders every section into one combined CSV, each row
// prefixed with its playlist's metadata. Position restarts at 1 per playlist.
func AllPlaylistsCSV(sections []PlaylistSection) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := append(append([]string{}, playlistHeaders...), trackHeaders...)
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, section := range sections {
		prefix := playlistRecord(&section.Playlist)
		for i, item := range section.Items {
			record := append(append([]string{}, prefix...), trackRecord(i+1, &item)...)
			if err := writer.Write(record); err != nil {
				return "", fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.String(), nil
}

func trackRecord(position int, item *models.PlaylistItem) []string {
	t := item.Track

	names := make([]string, 0, len(t.Artists))
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
		ids = append(ids, a.ID)
	}

	return []string{
		strconv.Itoa(position),
		t.Name,
		strings.Join(names, "; "),
		t.AlbumName,
		t.ReleaseDate,
		strconv.Itoa(t.DurationMS),
		FormatDurationMS(t.DurationMS),
		strconv.Itoa(t.Popularity),
		t.ID,
		t.AlbumID,
		strings.Join(ids, "; "),
		item.AddedAt,
		item.AddedBy,
		strconv.FormatBool(item.IsLocal),
		t.PreviewURL,
		t.ExternalURL,
	}
}

func playlistRecord(p *models.Playlist) []string {
	return []string{
		p.Name,
		p.ID,
		p.Description,
		p.Owner,
		strconv.FormatBool(p.Public),
		strconv.FormatBool(p.Collaborative),
		strconv.Itoa(p.TrackCount),
	}
}

// FormatDurationMS renders milliseconds as minutes and zero-padded seconds,
// e.g. 185000 -> "3:05". Milliseconds truncate toward zero.
func FormatDurationMS(ms int) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// PlaylistFilename builds the artifact filename for a single-playlist export:
// {spotifyID}_{sanitizedName}_{timestamp}.csv
func PlaylistFilename(spotifyID, playlistName string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", spotifyID, SanitizeName(playlistName), exportTimestamp(now))
}

// AllPlaylistsFilename builds the artifact filename for a combined export:
// {spotifyID}_all_playlists_{timestamp}.csv
func AllPlaylistsFilename(spotifyID string, now time.Time) string {
	return fmt.Sprintf("%s_all_playlists_%s.csv", spotifyID, exportTimestamp(now))
}

// SanitizeName reduces a playlist name to filename-safe characters: anything
// outside [A-Za-z0-9 _-] is dropped, spaces become underscores, and the result
// is capped at 50 characters.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		case r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}

// exportTimestamp renders a UTC timestamp compact enough for filenames:
// ISO-8601 to seconds with '-' and ':' removed and 'T' replaced by '_',
// e.g. 2026-03-01T12:04:05Z -> "20260301_120405".
func exportTimestamp(now time.Time) string {
	s := now.UTC().Format("2006-01-02T15:04:05")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ":", "")
	return strings.ReplaceAll(s, "T", "_")
}
