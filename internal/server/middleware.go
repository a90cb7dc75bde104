package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// sessionCookie names the cookie carrying the authenticated Spotify user id.
const sessionCookie = "spx_session"

type contextKey string

const userIDKey contextKey = "user_id"

// UserID extracts the authenticated user id from the request context.
// Empty when the request did not carry a valid session.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// withUserID returns a request whose context carries the user id.
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// LoggingMiddleware logs each request's method, path, status, and duration.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// SessionMiddleware resolves the session cookie into a user id on the request
// context. Requests without a session proceed unauthenticated; handlers that
// need an identity reject them.
func SessionMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
				r = withUserID(r, cookie.Value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setSession writes the session cookie for the user.
func setSession(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
