package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses:
// missing/failed credentials 401, provider rate limits 429 with a Retry-After
// header, other provider failures 502, unknown or unfinished jobs 404.
func writeError(w http.ResponseWriter, err error) {
	var rl *services.RateLimitError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		}
		writeJSON(w, http.StatusTooManyRequests, errorBody("rate limited by provider"))
		return
	}

	switch {
	case errors.Is(err, shared.ErrNoCredential),
		errors.Is(err, shared.ErrRefreshFailed),
		errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrAuthenticationFailure):
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
	case errors.Is(err, shared.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody("rate limited by provider"))
	case errors.Is(err, shared.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, errorBody("provider request failed"))
	case errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrJobNotFound),
		errors.Is(err, shared.ErrJobNotReady):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, shared.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
