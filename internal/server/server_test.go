package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"golang.org/x/oauth2"
)

type fakeAuth struct {
	exchangeErr error
}

func (f *fakeAuth) AuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{
		AccessToken:  "access_" + code,
		RefreshToken: "refresh_" + code,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

type fakeAccess struct {
	token     string
	ensureErr error
	grants    map[string]*oauth2.Token
}

func (f *fakeAccess) EnsureAccess(ctx context.Context, userID string) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	return f.token, nil
}

func (f *fakeAccess) StoreGrant(ctx context.Context, userID string, token *oauth2.Token) error {
	if f.grants == nil {
		f.grants = map[string]*oauth2.Token{}
	}
	f.grants[userID] = token
	return nil
}

type fakeProvider struct {
	playlists []models.Playlist
	tracks    map[string][]models.PlaylistItem
	listErr   error
}

func (f *fakeProvider) CollectAll(ctx context.Context, path, accessToken string) ([]json.RawMessage, error) {
	return nil, nil
}

func (f *fakeProvider) ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.playlists, nil
}

func (f *fakeProvider) GetPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	for _, pl := range f.playlists {
		if pl.ID == playlistID {
			copied := pl
			return &copied, nil
		}
	}
	return nil, &services.UpstreamError{Status: 404}
}

func (f *fakeProvider) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]models.PlaylistItem, error) {
	return f.tracks[playlistID], nil
}

func (f *fakeProvider) UserProfile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	return &models.UserProfile{ID: "u1", Email: "u1@example.com", DisplayName: "User One"}, nil
}

func (f *fakeProvider) Name() string { return "Spotify" }

func defaultProvider() *fakeProvider {
	return &fakeProvider{
		playlists: []models.Playlist{
			{ID: "pl1", Name: "First", Owner: "User One", TrackCount: 1},
		},
		tracks: map[string][]models.PlaylistItem{
			"pl1": {{
				AddedAt: "2024-01-01T00:00:00Z",
				Track: models.Track{
					ID: "t1", Name: "One",
					Artists:    []models.ArtistRef{{ID: "a1", Name: "A"}},
					DurationMS: 180000,
				},
			}},
		},
	}
}

func newTestServer(t *testing.T, auth *fakeAuth, access *fakeAccess, provider *fakeProvider) *httptest.Server {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	engine := tasks.NewExportEngine(access, provider, nil, logger, shared.ExportConfig{RateLimit: 10000})
	api := NewAPI(auth, access, provider, engine, logger)

	router := NewBasicRouter()
	router.Use(SessionMiddleware())
	api.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionFor(userID string) *http.Cookie {
	return &http.Cookie{Name: sessionCookie, Value: userID}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestLogin(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(server.URL + "/auth/login")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "https://accounts.example/authorize?state=") {
		t.Errorf("Location = %q", location)
	}

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("state cookie not set")
	}
	if !strings.HasSuffix(location, state) {
		t.Error("redirect state should match the cookie")
	}
}

func TestCallback(t *testing.T) {
	t.Run("success stores grant and session", func(t *testing.T) {
		access := &fakeAccess{token: "tok"}
		server := newTestServer(t, &fakeAuth{}, access, defaultProvider())

		url := server.URL + "/callback?state=st1&code=c0de"
		resp := get(t, url, &http.Cookie{Name: stateCookie, Value: "st1"})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if access.grants["u1"] == nil {
			t.Fatal("grant was not stored for the profile's user id")
		}
		if access.grants["u1"].RefreshToken != "refresh_c0de" {
			t.Errorf("stored refresh token = %q", access.grants["u1"].RefreshToken)
		}

		var gotSession bool
		for _, c := range resp.Cookies() {
			if c.Name == sessionCookie && c.Value == "u1" {
				gotSession = true
			}
		}
		if !gotSession {
			t.Error("session cookie not set to user id")
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		server := newTestServer(t, &fakeAuth{}, &fakeAccess{}, defaultProvider())

		resp := get(t, server.URL+"/callback?state=evil&code=c0de",
			&http.Cookie{Name: stateCookie, Value: "st1"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		server := newTestServer(t, &fakeAuth{}, &fakeAccess{}, defaultProvider())

		resp := get(t, server.URL+"/callback?state=st1",
			&http.Cookie{Name: stateCookie, Value: "st1"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("exchange rejection", func(t *testing.T) {
		server := newTestServer(t, &fakeAuth{exchangeErr: errors.New("denied")}, &fakeAccess{}, defaultProvider())

		resp := get(t, server.URL+"/callback?state=st1&code=bad",
			&http.Cookie{Name: stateCookie, Value: "st1"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestAuthentication(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	t.Run("no session", func(t *testing.T) {
		for _, path := range []string{"/me", "/me/playlists", "/playlists/pl1/stats", "/playlists/download/x"} {
			resp := get(t, server.URL+path)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("%s status = %d, want 401", path, resp.StatusCode)
			}
		}
	})

	t.Run("expired credential maps to 401", func(t *testing.T) {
		failing := newTestServer(t, &fakeAuth{}, &fakeAccess{ensureErr: shared.ErrRefreshFailed}, defaultProvider())
		resp := get(t, failing.URL+"/me", sessionFor("u1"))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("unknown user maps to 401", func(t *testing.T) {
		failing := newTestServer(t, &fakeAuth{}, &fakeAccess{ensureErr: shared.ErrNoCredential}, defaultProvider())
		resp := get(t, failing.URL+"/me", sessionFor("ghost"))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestMe(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	resp := get(t, server.URL+"/me", sessionFor("u1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	decode(t, resp, &body)
	if body["id"] != "u1" || body["display_name"] != "User One" {
		t.Errorf("body = %v", body)
	}
}

func TestMyPlaylists(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	resp := get(t, server.URL+"/me/playlists", sessionFor("u1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Total     int              `json:"total"`
		Playlists []map[string]any `json:"playlists"`
	}
	decode(t, resp, &body)
	if body.Total != 1 || body.Playlists[0]["name"] != "First" {
		t.Errorf("body = %+v", body)
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	t.Run("contents", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/pl1/contents", sessionFor("u1"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body tasks.ContentsResult
		decode(t, resp, &body)
		if body.PlaylistName != "First" || len(body.Tracks) != 1 {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("stats", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/pl1/stats", sessionFor("u1"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body tasks.StatsResult
		decode(t, resp, &body)
		if body.TotalTracks != 1 || body.UniqueArtists != 1 {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("dedupe", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/pl1/simulate-dedupe", sessionFor("u1"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("merge requires both ids", func(t *testing.T) {
		resp := get(t, server.URL+"/simulate-merge?a=pl1", sessionFor("u1"))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("merge", func(t *testing.T) {
		resp := get(t, server.URL+"/simulate-merge?a=pl1&b=pl1", sessionFor("u1"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("unknown playlist maps to 502", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/nope/stats", sessionFor("u1"))
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
	})
}

func TestRateLimitMapping(t *testing.T) {
	provider := defaultProvider()
	provider.listErr = &services.RateLimitError{RetryAfter: 21}
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, provider)

	resp := get(t, server.URL+"/me/playlists", sessionFor("u1"))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "21" {
		t.Errorf("Retry-After = %q, want 21", resp.Header.Get("Retry-After"))
	}
}

func TestExportEndpoints(t *testing.T) {
	server := newTestServer(t, &fakeAuth{}, &fakeAccess{token: "tok"}, defaultProvider())

	t.Run("single playlist export", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/pl1/export", sessionFor("u1"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
			t.Errorf("Content-Disposition = %q", cd)
		}
	})

	t.Run("unknown playlist export is 404", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/nope/export", sessionFor("u1"))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("background job lifecycle", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/playlists/export-all", nil)
		req.AddCookie(sessionFor("u1"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", resp.StatusCode)
		}
		var started map[string]string
		decode(t, resp, &started)
		jobID := started["job_id"]
		if jobID == "" {
			t.Fatal("no job_id in response")
		}

		deadline := time.Now().Add(5 * time.Second)
		var status string
		for time.Now().Before(deadline) {
			poll := get(t, server.URL+"/playlists/export-progress/"+jobID, sessionFor("u1"))
			var body jobResponse
			decode(t, poll, &body)
			status = body.Status
			if status == "completed" || status == "error" {
				break
			}
			time.Sleep(2 * time.Millisecond)
		}
		if status != "completed" {
			t.Fatalf("job status = %q, want completed", status)
		}

		download := get(t, server.URL+"/playlists/download/"+jobID, sessionFor("u1"))
		if download.StatusCode != http.StatusOK {
			t.Fatalf("download status = %d, want 200", download.StatusCode)
		}
	})

	t.Run("another user's job is invisible", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/playlists/export-all", nil)
		req.AddCookie(sessionFor("u1"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		var started map[string]string
		decode(t, resp, &started)

		poll := get(t, server.URL+"/playlists/export-progress/"+started["job_id"], sessionFor("u2"))
		if poll.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", poll.StatusCode)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/export-progress/nope", sessionFor("u1"))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
		resp = get(t, server.URL+"/playlists/download/nope", sessionFor("u1"))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("download status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("method filtering", func(t *testing.T) {
		resp := get(t, server.URL+"/playlists/export-all", sessionFor("u1"))
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})
}

func TestCallbackHandler(t *testing.T) {
	t.Run("exchanges code once", func(t *testing.T) {
		handler := NewCallbackHandler(&fakeAuth{}, "st1")
		server := httptest.NewServer(handler)
		defer server.Close()

		resp, err := http.Get(fmt.Sprintf("%s/callback?state=st1&code=c0de", server.URL))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "access_c0de" {
			t.Errorf("token = %q", result.Token.AccessToken)
		}

		// second callback is rejected
		resp, err = http.Get(fmt.Sprintf("%s/callback?state=st1&code=again", server.URL))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("replayed callback status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("rejects bad state", func(t *testing.T) {
		handler := NewCallbackHandler(&fakeAuth{}, "st1")
		server := httptest.NewServer(handler)
		defer server.Close()

		resp, err := http.Get(fmt.Sprintf("%s/callback?state=evil&code=c0de", server.URL))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error for bad state")
		}
	})
}
