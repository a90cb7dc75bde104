package tasks

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/desertthunder/spx/internal/models"
)

// dedupeSampleLimit caps how many duplicate groups a dedupe report carries.
const dedupeSampleLimit = 20

// ContentsEntry is one row of a playlist contents projection.
type ContentsEntry struct {
	Position   int      `json:"position"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	Popularity int      `json:"popularity"`
	DurationMS int      `json:"duration_ms"`
	AddedAt    string   `json:"added_at"`
}

// ContentsResult is a compact track listing for display surfaces.
type ContentsResult struct {
	PlaylistID   string          `json:"playlist_id"`
	PlaylistName string          `json:"playlist_name"`
	TotalTracks  int             `json:"total_tracks"`
	Tracks       []ContentsEntry `json:"tracks"`
}

// ArtistCount pairs an artist with their track frequency in a playlist.
type ArtistCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DateRange is the span of release dates across a playlist.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// StatsResult aggregates playlist-level statistics.
type StatsResult struct {
	PlaylistID      string        `json:"playlist_id"`
	PlaylistName    string        `json:"playlist_name"`
	TotalTracks     int           `json:"total_tracks"`
	UniqueTracks    int           `json:"unique_tracks"`
	UniqueArtists   int           `json:"unique_artists"`
	TotalDurationMS int           `json:"total_duration_ms"`
	AvgPopularity   float64       `json:"avg_popularity"`
	TopArtists      []ArtistCount `json:"top_artists"`
	ReleaseDates    *DateRange    `json:"release_dates,omitempty"`
}

// DuplicateGroup lists every playlist position holding the same track.
type DuplicateGroup struct {
	TrackID   string `json:"track_id"`
	Name      string `json:"name"`
	Positions []int  `json:"positions"`
}

// DedupeResult reports what removing duplicates would do, without mutating
// the playlist.
type DedupeResult struct {
	PlaylistID     string           `json:"playlist_id"`
	TotalTracks    int              `json:"total_tracks"`
	DuplicateCount int              `json:"duplicate_count"`
	WouldRemain    int              `json:"would_remain"`
	Sample         []DuplicateGroup `json:"sample"`
}

// MergeResult reports how two playlists would combine, without mutating
// either one.
type MergeResult struct {
	SourceID     string `json:"source_id"`
	SourceName   string `json:"source_name"`
	TargetID     string `json:"target_id"`
	TargetName   string `json:"target_name"`
	Union        int    `json:"union"`
	Intersection int    `json:"intersection"`
	WouldAdd     int    `json:"would_add"`
}

// PlaylistContents returns a compact track listing for the playlist.
func (e *ExportEngine) PlaylistContents(ctx context.Context, userID, playlistID string) (*ContentsResult, error) {
	playlist, items, err := e.fetchPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}

	entries := make([]ContentsEntry, 0, len(items))
	for i, item := range items {
		names := make([]string, 0, len(item.Track.Artists))
		for _, a := range item.Track.Artists {
			names = append(names, a.Name)
		}
		entries = append(entries, ContentsEntry{
			Position:   i + 1,
			ID:         item.Track.ID,
			Name:       item.Track.Name,
			Artists:    names,
			Album:      item.Track.AlbumName,
			Popularity: item.Track.Popularity,
			DurationMS: item.Track.DurationMS,
			AddedAt:    item.AddedAt,
		})
	}

	return &ContentsResult{
		PlaylistID:   playlist.ID,
		PlaylistName: playlist.Name,
		TotalTracks:  len(entries),
		Tracks:       entries,
	}, nil
}

// PlaylistStats computes aggregate statistics for the playlist.
func (e *ExportEngine) PlaylistStats(ctx context.Context, userID, playlistID string) (*StatsResult, error) {
	playlist, items, err := e.fetchPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}

	stats := computeStats(items)
	stats.PlaylistID = playlist.ID
	stats.PlaylistName = playlist.Name
	return stats, nil
}

// SimulateDedupe reports which tracks appear more than once in the playlist.
func (e *ExportEngine) SimulateDedupe(ctx context.Context, userID, playlistID string) (*DedupeResult, error) {
	playlist, items, err := e.fetchPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}

	type group struct {
		name      string
		positions []int
	}
	groups := map[string]*group{}
	order := []string{}
	for i, item := range items {
		id := item.Track.ID
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &group{name: item.Track.Name}
			groups[id] = g
			order = append(order, id)
		}
		g.positions = append(g.positions, i+1)
	}

	result := &DedupeResult{
		PlaylistID:  playlist.ID,
		TotalTracks: len(items),
		WouldRemain: len(items),
	}
	for _, id := range order {
		g := groups[id]
		if len(g.positions) < 2 {
			continue
		}
		result.DuplicateCount += len(g.positions) - 1
		if len(result.Sample) < dedupeSampleLimit {
			result.Sample = append(result.Sample, DuplicateGroup{
				TrackID:   id,
				Name:      g.name,
				Positions: g.positions,
			})
		}
	}
	result.WouldRemain = len(items) - result.DuplicateCount

	return result, nil
}

// SimulateMerge reports how the source playlist's tracks would fold into the
// target: union and intersection sizes plus the count that merging would add.
func (e *ExportEngine) SimulateMerge(ctx context.Context, userID, sourceID, targetID string) (*MergeResult, error) {
	source, sourceItems, err := e.fetchPlaylist(ctx, userID, sourceID)
	if err != nil {
		return nil, err
	}
	target, targetItems, err := e.fetchPlaylist(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}

	sourceSet := trackSet(sourceItems)
	targetSet := trackSet(targetItems)

	intersection := 0
	wouldAdd := 0
	for id := range sourceSet {
		if targetSet[id] {
			intersection++
		} else {
			wouldAdd++
		}
	}

	return &MergeResult{
		SourceID:     source.ID,
		SourceName:   source.Name,
		TargetID:     target.ID,
		TargetName:   target.Name,
		Union:        len(targetSet) + wouldAdd,
		Intersection: intersection,
		WouldAdd:     wouldAdd,
	}, nil
}

// fetchPlaylist resolves the user's access token and retrieves a playlist's
// metadata and full track listing.
func (e *ExportEngine) fetchPlaylist(ctx context.Context, userID, playlistID string) (*models.Playlist, []models.PlaylistItem, error) {
	token, err := e.access.EnsureAccess(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	playlist, err := e.spotify.GetPlaylist(ctx, token, playlistID)
	if err != nil {
		return nil, nil, err
	}

	items, err := e.spotify.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return nil, nil, err
	}

	return playlist, items, nil
}

func computeStats(items []models.PlaylistItem) *StatsResult {
	stats := &StatsResult{TotalTracks: len(items)}

	trackIDs := map[string]bool{}
	artistCounts := map[string]int{}
	popularitySum := 0
	var earliest, latest string

	for _, item := range items {
		t := item.Track
		if t.ID != "" {
			trackIDs[t.ID] = true
		}
		for _, a := range t.Artists {
			artistCounts[a.Name]++
		}
		stats.TotalDurationMS += t.DurationMS
		popularitySum += t.Popularity

		if d := normalizeReleaseDate(t.ReleaseDate); d != "" {
			if earliest == "" || d < earliest {
				earliest = d
			}
			if latest == "" || d > latest {
				latest = d
			}
		}
	}

	stats.UniqueTracks = len(trackIDs)
	stats.UniqueArtists = len(artistCounts)
	if len(items) > 0 {
		avg := float64(popularitySum) / float64(len(items))
		stats.AvgPopularity = math.Round(avg*10) / 10
	}
	if earliest != "" {
		stats.ReleaseDates = &DateRange{Earliest: earliest, Latest: latest}
	}

	top := make([]ArtistCount, 0, len(artistCounts))
	for name, count := range artistCounts {
		top = append(top, ArtistCount{Name: name, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > 10 {
		top = top[:10]
	}
	stats.TopArtists = top

	return stats
}

// normalizeReleaseDate pads partial provider dates (year or year-month) to a
// full date so lexical comparison orders them correctly.
func normalizeReleaseDate(d string) string {
	switch len(d) {
	case 0:
		return ""
	case 4:
		return fmt.Sprintf("%s-01-01", d)
	case 7:
		return fmt.Sprintf("%s-01", d)
	default:
		return d
	}
}

func trackSet(items []models.PlaylistItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Track.ID != "" {
			set[item.Track.ID] = true
		}
	}
	return set
}
