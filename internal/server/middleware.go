package server

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const sessionKey contextKey = "session"

// withSession authenticates the request's session, taken from the
// X-session-ID header or the session_id query parameter. Unknown or missing
// sessions get 401; the session id is stashed in the request context.
func (s *Server) withSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-session-ID")
		if id == "" {
			id = r.URL.Query().Get("session_id")
		}
		if id == "" || !s.engine.HasSession(id) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "session not found"})
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, id)
		next(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
