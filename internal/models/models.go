package models

import (
	"fmt"
	"time"
)

// Credential holds one user's Spotify OAuth credential.
//
// RefreshTokenEnc is AES-256-GCM ciphertext (base64) and is only ever
// decrypted transiently during a refresh. The plaintext refresh token is
// never stored or logged.
type Credential struct {
	UserID          string
	AccessToken     string
	RefreshTokenEnc string
	Scope           string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the credential's required fields.
func (c *Credential) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("credential missing user id")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("credential missing access token")
	}
	if c.RefreshTokenEnc == "" {
		return fmt.Errorf("credential missing encrypted refresh token")
	}
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("credential missing expiry")
	}
	return nil
}

// JobStatus enumerates export job states in forward order.
type JobStatus int

const (
	JobStarting JobStatus = iota
	JobFetchingPlaylists
	JobProcessing
	JobCompleted
	JobError
)

func (s JobStatus) String() string {
	switch s {
	case JobStarting:
		return "starting"
	case JobFetchingPlaylists:
		return "fetching_playlists"
	case JobProcessing:
		return "processing"
	case JobCompleted:
		return "completed"
	case JobError:
		return "error"
	default:
		return ""
	}
}

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// Artifact is the materialized result of a completed export.
type Artifact struct {
	Filename string
	CSV      string
}

// ExportJob tracks the progress of a background all-playlists export.
//
// Current and Total are playlist-level counters; Total is set once the
// playlist listing is known and is never decremented, even when individual
// playlists are skipped.
type ExportJob struct {
	ID              string
	UserID          string
	Status          JobStatus
	Current         int
	Total           int
	CurrentPlaylist string
	Artifact        *Artifact
	ErrorMessage    string
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// Snapshot returns a copy safe to hand to readers while the background
// writer keeps mutating the stored record.
func (j *ExportJob) Snapshot() ExportJob {
	cp := *j
	if j.Artifact != nil {
		a := *j.Artifact
		cp.Artifact = &a
	}
	return cp
}

// Playlist represents a playlist's metadata as returned by the provider.
type Playlist struct {
	ID            string
	Name          string
	Description   string
	Owner         string
	Public        bool
	Collaborative bool
	TrackCount    int
}

// PlaylistItem is one entry in a playlist: a track plus its playlist context.
type PlaylistItem struct {
	AddedAt string
	AddedBy string
	IsLocal bool
	Track   Track
}

// Track represents a single track's metadata.
type Track struct {
	ID          string
	Name        string
	Artists     []ArtistRef
	AlbumID     string
	AlbumName   string
	ReleaseDate string
	DurationMS  int
	Popularity  int
	PreviewURL  string
	ExternalURL string
}

// ArtistRef is a track's reference to one of its artists.
type ArtistRef struct {
	ID   string
	Name string
}

// UserProfile is the provider identity used for export filenames.
type UserProfile struct {
	ID          string
	Email       string
	DisplayName string
}
