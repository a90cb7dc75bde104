package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Provider defines the read surface of a music service consumed by the export pipeline.
type Provider interface {
	// CollectAll drains a cursor-paginated resource into one ordered slice of raw items.
	CollectAll(ctx context.Context, path, accessToken string) ([]json.RawMessage, error)

	// ListPlaylists retrieves all of the user's playlists in provider order.
	ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error)

	// GetPlaylist retrieves a single playlist's metadata.
	GetPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error)

	// PlaylistTracks retrieves a playlist's complete track listing in provider order.
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]models.PlaylistItem, error)

	// UserProfile retrieves the authenticated user's identity, used for export filenames.
	UserProfile(ctx context.Context, accessToken string) (*models.UserProfile, error)

	// Name returns the provider name (e.g. "Spotify")
	Name() string
}

// RateLimitError reports a provider rate-limit response (HTTP 429).
//
// RetryAfter is the provider's hint in seconds. The collector never sleeps
// and retries on its own; callers decide whether to surface or skip.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return shared.ErrRateLimited }

// UpstreamError reports any other non-success provider response.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider request failed: status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return shared.ErrUpstream }
