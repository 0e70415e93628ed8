package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/saint0x/pullmate/pkg/session"
)

type ctxKey struct{}

// PublicPaths are reachable without a session
var PublicPaths = []string{"/", "/login", "/health", "/api/webhooks/github"}

// FromContext returns the session attached by Require
func FromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*session.Session)
	return s, ok
}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func isPublic(path string) bool {
	if strings.HasPrefix(path, "/auth/") {
		return true
	}
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// Require lets public paths through and demands a session everywhere else.
// API callers get 401, browsers are sent to /login with a callbackUrl.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.Session(r)
		switch {
		case err == nil:
			r = r.WithContext(WithSession(r.Context(), sess))
		case errors.Is(err, session.ErrNotFound):
			if c, cerr := r.Cookie(SessionCookie); cerr == nil && c.Value != "" {
				a.expired(w, c.Value)
			}
		}

		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			target := "/login?callbackUrl=" + url.QueryEscape(r.URL.Path)
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// expired drops a stale session cookie and tells listeners the session is gone
func (a *Authenticator) expired(w http.ResponseWriter, sessionID string) {
	a.logger.Debug("Session %s expired", sessionID)
	a.clearCookie(w, SessionCookie)
	for _, fn := range a.onExpire {
		fn(sessionID)
	}
}
