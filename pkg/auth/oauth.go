// Package auth signs users in with GitHub OAuth and guards routes that need
// a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/session"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// Cookie names
const (
	SessionCookie  = "pullmate_session"
	stateCookie    = "pullmate_oauth_state"
	callbackCookie = "pullmate_callback"
)

// Scope requested from GitHub
const Scope = "repo"

const stateTTL = 10 * time.Minute

// ErrStateMismatch is returned when the OAuth state does not round-trip
var ErrStateMismatch = errors.New("oauth state mismatch")

// UserLookup resolves the GitHub login that owns an access token
type UserLookup func(ctx context.Context, token string) (string, error)

// Config holds the OAuth app credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides GitHub's OAuth endpoints (tests, GitHub Enterprise)
	Endpoint *oauth2.Endpoint
}

// Authenticator runs the login flow and resolves sessions
type Authenticator struct {
	logger   *log.Logger
	oauth    *oauth2.Config
	store    session.Store
	lookup   UserLookup
	secure   bool
	onLogout []func(*session.Session)
	onExpire []func(sessionID string)
}

// New creates an Authenticator
func New(logger *log.Logger, cfg Config, store session.Store, lookup UserLookup) *Authenticator {
	endpoint := githuboauth.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}

	return &Authenticator{
		logger: logger,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint:     endpoint,
		},
		store:  store,
		lookup: lookup,
		secure: strings.HasPrefix(cfg.RedirectURL, "https://"),
	}
}

// OnLogout registers fn to run after a session is deleted
func (a *Authenticator) OnLogout(fn func(*session.Session)) {
	a.onLogout = append(a.onLogout, fn)
}

// OnExpire registers fn to run when a request carries a session cookie the
// store no longer knows
func (a *Authenticator) OnExpire(fn func(sessionID string)) {
	a.onExpire = append(a.onExpire, fn)
}

// HandleLogin redirects to GitHub's consent screen
func (a *Authenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	a.setCookie(w, stateCookie, state, stateTTL)

	if cb := r.URL.Query().Get("callbackUrl"); isLocalPath(cb) {
		a.setCookie(w, callbackCookie, cb, stateTTL)
	}

	a.logger.Auth("Redirecting to GitHub for sign-in")
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the flow and creates the session
func (a *Authenticator) HandleCallback(w http.ResponseWriter, r *http.Request) {
	sess, err := a.complete(r)
	if err != nil {
		a.logger.Error("Sign-in failed: %v", err)
		status := http.StatusBadGateway
		if errors.Is(err, ErrStateMismatch) {
			status = http.StatusBadRequest
		}
		http.Error(w, "sign-in failed", status)
		return
	}

	a.clearCookie(w, stateCookie)
	a.setCookie(w, SessionCookie, sess.ID, 0)

	target := "/"
	if c, err := r.Cookie(callbackCookie); err == nil && isLocalPath(c.Value) {
		target = c.Value
	}
	a.clearCookie(w, callbackCookie)

	a.logger.Auth("Signed in as %s", sess.Login)
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *Authenticator) complete(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		return nil, ErrStateMismatch
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	tok, err := a.oauth.Exchange(r.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	login, err := a.lookup(r.Context(), tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	sess := session.New(login, tok.AccessToken)
	if err := a.store.Save(r.Context(), sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// HandleLogout deletes the session and clears the cookie
func (a *Authenticator) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := a.Session(r); err == nil {
		if err := a.store.Delete(r.Context(), sess.ID); err != nil {
			a.logger.Error("Failed to delete session: %v", err)
		}
		for _, fn := range a.onLogout {
			fn(sess)
		}
		a.logger.Auth("Signed out %s", sess.Login)
	}

	a.clearCookie(w, SessionCookie)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Session resolves the request's session cookie
func (a *Authenticator) Session(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, session.ErrNotFound
	}
	return a.store.Get(r.Context(), c.Value)
}

func (a *Authenticator) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

func (a *Authenticator) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		MaxAge:   -1,
	})
}

// isLocalPath accepts only same-origin absolute paths. Browsers read a
// backslash as a slash, so any backslash is rejected.
func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsRune(p, '\\') {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Host == "" && u.Scheme == ""
}
