// Spotify API implementation of [Provider]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Page size for cursor-paginated resources.
	collectPageLimit = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// SpotifyArtist represents an artist reference on a track.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	IsLocal      bool            `json:"is_local"`
	PreviewURL   string          `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type addedBy struct {
	ID string `json:"id"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	AddedBy addedBy       `json:"added_by"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object (full or simplified).
type SpotifyPlaylist struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Owner         owner             `json:"owner"`
	Public        bool              `json:"public"`
	Collaborative bool              `json:"collaborative"`
	Tracks        playlistTracksRef `json:"tracks"`
}

// page is the provider's pagination envelope: items plus the next-page URL.
type page struct {
	Items []json.RawMessage `json:"items"`
	Next  *string           `json:"next"`
}

// SpotifyService implements [Provider] for the Spotify Web API.
//
// The service is stateless with respect to users: every call takes the
// bearer token to use, so one instance serves all users.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-read-email",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:  config,
		baseURL: spotifyBaseURL,
		// Bounded per-request timeout so a stalled page fetch cannot stall
		// a whole export job.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetBaseURL overrides the API base URL. Primarily for tests.
func (s *SpotifyService) SetBaseURL(url string) {
	if url != "" {
		s.baseURL = url
	}
}

// SetHTTPClient replaces the underlying HTTP client. Primarily for tests.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token set.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a fresh access token.
//
// The returned token may omit RefreshToken; Spotify frequently reuses the
// prior grant, and callers must preserve the stored one in that case.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh rejected: %w", err)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the given absolute URL and decodes the JSON body.
func (s *SpotifyService) doRequest(ctx context.Context, url, accessToken string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &RateLimitError{RetryAfter: retryAfter}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CollectAll drains a cursor-paginated resource into one ordered slice.
//
// Requests start at path with a fixed page size and follow each response's
// next-page URL until none is returned. Provider order is preserved, items
// are not transformed, and zero pages yields an empty slice. Rate-limit and
// failure conditions surface immediately; retry is a caller concern.
func (s *SpotifyService) CollectAll(ctx context.Context, path, accessToken string) ([]json.RawMessage, error) {
	url := s.baseURL + path
	if strings.Contains(path, "?") {
		url += "&limit=" + strconv.Itoa(collectPageLimit)
	} else {
		url += "?limit=" + strconv.Itoa(collectPageLimit)
	}

	items := []json.RawMessage{}
	for url != "" {
		var pg page
		if err := s.doRequest(ctx, url, accessToken, &pg); err != nil {
			return nil, err
		}

		items = append(items, pg.Items...)

		if pg.Next == nil {
			break
		}
		url = *pg.Next
	}

	return items, nil
}

// ListPlaylists retrieves all of the current user's playlists in provider order.
func (s *SpotifyService) ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	raw, err := s.CollectAll(ctx, "/me/playlists", accessToken)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(raw))
	for _, item := range raw {
		var sp SpotifyPlaylist
		if err := json.Unmarshal(item, &sp); err != nil {
			return nil, fmt.Errorf("failed to decode playlist: %w", err)
		}
		playlists = append(playlists, toPlaylist(&sp))
	}

	return playlists, nil
}

// GetPlaylist retrieves a single playlist's metadata.
func (s *SpotifyService) GetPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	var sp SpotifyPlaylist
	url := fmt.Sprintf("%s/playlists/%s", s.baseURL, playlistID)
	if err := s.doRequest(ctx, url, accessToken, &sp); err != nil {
		return nil, err
	}

	pl := toPlaylist(&sp)
	return &pl, nil
}

// PlaylistTracks retrieves a playlist's complete track listing in provider order.
//
// Entries whose track object is absent (removed or region-blocked content)
// are dropped, matching the provider's own export behavior.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]models.PlaylistItem, error) {
	raw, err := s.CollectAll(ctx, fmt.Sprintf("/playlists/%s/tracks", playlistID), accessToken)
	if err != nil {
		return nil, err
	}

	items := make([]models.PlaylistItem, 0, len(raw))
	for _, entry := range raw {
		var pt SpotifyPlaylistTrack
		if err := json.Unmarshal(entry, &pt); err != nil {
			return nil, fmt.Errorf("failed to decode playlist track: %w", err)
		}
		if pt.Track == nil {
			continue
		}
		items = append(items, toPlaylistItem(&pt))
	}

	return items, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, s.baseURL+"/me", accessToken, &user); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func toPlaylist(sp *SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:            sp.ID,
		Name:          sp.Name,
		Description:   sp.Description,
		Owner:         sp.Owner.DisplayName,
		Public:        sp.Public,
		Collaborative: sp.Collaborative,
		TrackCount:    sp.Tracks.Total,
	}
}

func toPlaylistItem(pt *SpotifyPlaylistTrack) models.PlaylistItem {
	t := pt.Track

	artists := make([]models.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.ArtistRef{ID: a.ID, Name: a.Name})
	}

	return models.PlaylistItem{
		AddedAt: pt.AddedAt,
		AddedBy: pt.AddedBy.ID,
		IsLocal: pt.IsLocal || t.IsLocal,
		Track: models.Track{
			ID:          t.ID,
			Name:        t.Name,
			Artists:     artists,
			AlbumID:     t.Album.ID,
			AlbumName:   t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			DurationMS:  t.DurationMS,
			Popularity:  t.Popularity,
			PreviewURL:  t.PreviewURL,
			ExternalURL: t.ExternalURLs.Spotify,
		},
	}
}
