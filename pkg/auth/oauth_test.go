package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func setupAuth(t *testing.T, lookup UserLookup) (*Authenticator, session.Store) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad_verification_code"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"gho_test","token_type":"bearer","scope":"repo"}`)
	}))
	t.Cleanup(tokenSrv.Close)

	store := session.NewMemoryStore(time.Hour)
	if lookup == nil {
		lookup = func(_ context.Context, token string) (string, error) {
			assert.Equal(t, "gho_test", token)
			return "octocat", nil
		}
	}

	a := New(log.Discard(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Endpoint: &oauth2.Endpoint{
			AuthURL:  "https://github.example/login/oauth/authorize",
			TokenURL: tokenSrv.URL,
		},
	}, store, lookup)
	return a, store
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirect(t *testing.T) {
	a, _ := setupAuth(t, nil)

	w := httptest.NewRecorder()
	a.HandleLogin(w, httptest.NewRequest(http.MethodGet, "/login?callbackUrl=/api/repos", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "github.example", loc.Host)
	assert.Equal(t, "repo", loc.Query().Get("scope"))
	assert.Equal(t, "id", loc.Query().Get("client_id"))

	state := cookieNamed(w.Result().Cookies(), stateCookie)
	require.NotNil(t, state)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
	assert.NotNil(t, cookieNamed(w.Result().Cookies(), callbackCookie))
}

func TestLoginIgnoresForeignCallback(t *testing.T) {
	a, _ := setupAuth(t, nil)

	w := httptest.NewRecorder()
	a.HandleLogin(w, httptest.NewRequest(http.MethodGet, "/login?callbackUrl=https://evil.example/", nil))
	assert.Nil(t, cookieNamed(w.Result().Cookies(), callbackCookie))
}

func TestCallbackCreatesSession(t *testing.T) {
	a, store := setupAuth(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=good-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	req.AddCookie(&http.Cookie{Name: callbackCookie, Value: "/api/repos"})
	w := httptest.NewRecorder()

	a.HandleCallback(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/repos", w.Header().Get("Location"))

	c := cookieNamed(w.Result().Cookies(), SessionCookie)
	require.NotNil(t, c)
	sess, err := store.Get(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "octocat", sess.Login)
	assert.Equal(t, "gho_test", sess.AccessToken)
}

func TestCallbackFailures(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		state      string
		lookupErr  error
		wantStatus int
	}{
		{"state mismatch", "state=abc&code=good-code", "xyz", nil, http.StatusBadRequest},
		{"no state cookie", "state=abc&code=good-code", "", nil, http.StatusBadRequest},
		{"bad code", "state=abc&code=bad", "abc", nil, http.StatusBadGateway},
		{"missing code", "state=abc", "abc", nil, http.StatusBadGateway},
		{"user lookup fails", "state=abc&code=good-code", "abc", errors.New("401"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(context.Context, string) (string, error) {
				return "octocat", tt.lookupErr
			}
			a, _ := setupAuth(t, lookup)

			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+tt.query, nil)
			if tt.state != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.state})
			}
			w := httptest.NewRecorder()
			a.HandleCallback(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Nil(t, cookieNamed(w.Result().Cookies(), SessionCookie))
		})
	}
}

func TestLogout(t *testing.T) {
	a, store := setupAuth(t, nil)
	sess := session.New("octocat", "gho_test")
	require.NoError(t, store.Save(context.Background(), sess))

	var loggedOut string
	a.OnLogout(func(s *session.Session) { loggedOut = s.Login })

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	w := httptest.NewRecorder()
	a.HandleLogout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "octocat", loggedOut)
	_, err := store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRequire(t *testing.T) {
	a, store := setupAuth(t, nil)
	sess := session.New("octocat", "gho_test")
	require.NoError(t, store.Save(context.Background(), sess))

	var seen *session.Session
	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		path       string
		withCookie bool
		wantStatus int
		wantLoc    string
	}{
		{"public root", "/", false, http.StatusOK, ""},
		{"health", "/health", false, http.StatusOK, ""},
		{"oauth callback", "/auth/callback", false, http.StatusOK, ""},
		{"webhook receiver", "/api/webhooks/github", false, http.StatusOK, ""},
		{"api without session", "/api/repos", false, http.StatusUnauthorized, ""},
		{"page without session", "/repositories/app", false, http.StatusFound, "/login?callbackUrl=%2Frepositories%2Fapp"},
		{"api with session", "/api/repos", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.withCookie {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
			if tt.withCookie {
				require.NotNil(t, seen)
				assert.Equal(t, "octocat", seen.Login)
			}
		})
	}
}

func TestRequireExpiredSession(t *testing.T) {
	a, store := setupAuth(t, nil)
	sess := session.New("octocat", "gho_test")
	require.NoError(t, store.Save(context.Background(), sess))
	require.NoError(t, store.Delete(context.Background(), sess.ID))

	var expired []string
	a.OnExpire(func(id string) { expired = append(expired, id) })

	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/repos", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []string{sess.ID}, expired)
	c := cookieNamed(w.Result().Cookies(), SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)

	// no cookie, nothing expired
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/repos", nil))
	assert.Len(t, expired, 1)
}

func TestIsLocalPath(t *testing.T) {
	assert.True(t, isLocalPath("/dashboard"))
	assert.False(t, isLocalPath(""))
	assert.False(t, isLocalPath("//evil.example"))
	assert.False(t, isLocalPath("/\\evil.example"))
	assert.False(t, isLocalPath("/\\/evil.example"))
	assert.False(t, isLocalPath("/repos\\x"))
	assert.False(t, isLocalPath("https://evil.example"))
	assert.False(t, isLocalPath("relative"))
}
