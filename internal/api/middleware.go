package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pokeclass/pokeclass/internal/security"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

type contextKey string

const sessionKey contextKey = "session"

// requireAuth validates the bearer token and stores the session on the
// request context. Unauthenticated requests never reach a handler.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "missing bearer token"))
			return
		}
		session, err := security.ValidateToken(strings.TrimPrefix(raw, "Bearer "), h.jwtSecret)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireTeacher allows teacher and admin sessions through.
func (h *Handler) requireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil || !session.IsTeacher() {
			writeError(w, errors.New(errors.ErrCodeForbidden, "teacher access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil || !session.IsAdmin() {
			writeError(w, errors.New(errors.ErrCodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(ctx context.Context) *security.Session {
	session, _ := ctx.Value(sessionKey).(*security.Session)
	return session
}

// canActFor reports whether the session may read or act on the given
// student account. Students are limited to their own account.
func canActFor(session *security.Session, studentID uint) bool {
	if session == nil {
		return false
	}
	if session.IsTeacher() {
		return true
	}
	return session.UserID == studentID
}

// requestLogger logs one line per request through the shared zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
