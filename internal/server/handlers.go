package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"golang.org/x/oauth2"
)

// stateCookie names the short-lived cookie holding the OAuth state parameter.
const stateCookie = "spx_oauth_state"

// AuthFlow is the slice of the Spotify service the login endpoints need.
type AuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// SessionAccess resolves and persists user credentials.
// Implemented by services.AccessManager.
type SessionAccess interface {
	EnsureAccess(ctx context.Context, userID string) (string, error)
	StoreGrant(ctx context.Context, userID string, token *oauth2.Token) error
}

// API serves the playlist export HTTP surface.
type API struct {
	auth     AuthFlow
	access   SessionAccess
	provider services.Provider
	engine   *tasks.ExportEngine
	logger   *log.Logger
}

// NewAPI creates the API handler set.
func NewAPI(auth AuthFlow, access SessionAccess, provider services.Provider, engine *tasks.ExportEngine, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		auth:     auth,
		access:   access,
		provider: provider,
		engine:   engine,
		logger:   logger,
	}
}

// Register mounts every API route on the router.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(a.handleLogin))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.handleCallback))
	r.Handle(http.MethodGet, "/me", http.HandlerFunc(a.handleMe))
	r.Handle(http.MethodGet, "/me/playlists", http.HandlerFunc(a.handleMyPlaylists))
	r.Handle(http.MethodGet, "/playlists/{id}/contents", http.HandlerFunc(a.handleContents))
	r.Handle(http.MethodGet, "/playlists/{id}/stats", http.HandlerFunc(a.handleStats))
	r.Handle(http.MethodGet, "/playlists/{id}/simulate-dedupe", http.HandlerFunc(a.handleDedupe))
	r.Handle(http.MethodGet, "/playlists/{id}/export", http.HandlerFunc(a.handleExport))
	r.Handle(http.MethodGet, "/simulate-merge", http.HandlerFunc(a.handleMerge))
	r.Handle(http.MethodPost, "/playlists/export-all", http.HandlerFunc(a.handleExportAll))
	r.Handle(http.MethodGet, "/playlists/export-progress/{id}", http.HandlerFunc(a.handleProgress))
	r.Handle(http.MethodGet, "/playlists/download/{id}", http.HandlerFunc(a.handleDownload))
}

// NewServer assembles the router with middleware and wraps it in an http.Server.
func NewServer(cfg shared.ServerConfig, api *API, logger *log.Logger) *http.Server {
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger), SessionMiddleware())
	api.Register(router)

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.auth.AuthURL(state), http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid state parameter"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing authorization code"))
		return
	}

	token, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("code exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, errorBody("authorization failed"))
		return
	}

	profile, err := a.provider.UserProfile(r.Context(), token.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.access.StoreGrant(r.Context(), profile.ID, token); err != nil {
		writeError(w, err)
		return
	}

	setSession(w, profile.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":      profile.ID,
		"display_name": profile.DisplayName,
	})
}

// requireUser resolves the session user, writing 401 when there is none.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return "", false
	}
	return userID, true
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	token, err := a.access.EnsureAccess(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := a.provider.UserProfile(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":           profile.ID,
		"email":        profile.Email,
		"display_name": profile.DisplayName,
	})
}

func (a *API) handleMyPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	token, err := a.access.EnsureAccess(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	playlists, err := a.provider.ListPlaylists(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(playlists),
		"playlists": playlistItems(playlists),
	})
}

func (a *API) handleContents(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	result, err := a.engine.PlaylistContents(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	result, err := a.engine.PlaylistStats(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleDedupe(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	result, err := a.engine.SimulateDedupe(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	source := r.URL.Query().Get("a")
	target := r.URL.Query().Get("b")
	if source == "" || target == "" {
		writeError(w, fmt.Errorf("%w: both a and b playlist ids are required", shared.ErrInvalidInput))
		return
	}

	result, err := a.engine.SimulateMerge(r.Context(), userID, source, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	artifact, err := a.engine.ExportPlaylist(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCSV(w, artifact)
}

func (a *API) handleExportAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	jobID, err := a.engine.StartExport(r.Context(), userID, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// jobResponse is the poll endpoint's view of a job.
type jobResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Current         int    `json:"current"`
	Total           int    `json:"total"`
	CurrentPlaylist string `json:"current_playlist,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (a *API) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	job, err := a.engine.Poll(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobResponse{
		JobID:           job.ID,
		Status:          job.Status.String(),
		Current:         job.Current,
		Total:           job.Total,
		CurrentPlaylist: job.CurrentPlaylist,
		Error:           job.ErrorMessage,
	})
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	artifact, err := a.engine.Download(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCSV(w, artifact)
}

func writeCSV(w http.ResponseWriter, artifact *models.Artifact) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, artifact.CSV)
}

// playlistItems projects playlists into the API's JSON shape.
func playlistItems(playlists []models.Playlist) []map[string]any {
	out := make([]map[string]any, 0, len(playlists))
	for _, pl := range playlists {
		out = append(out, map[string]any{
			"id":            pl.ID,
			"name":          pl.Name,
			"description":   pl.Description,
			"owner":         pl.Owner,
			"public":        pl.Public,
			"collaborative": pl.Collaborative,
			"total_tracks":  pl.TrackCount,
		})
	}
	return out
}
