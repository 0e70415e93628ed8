// Package hooks subscribes repositories to pull request webhooks and keeps a
// short feed of the deliveries that come back.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"github.com/saint0x/pullmate/pkg/log"
)

// DefaultFeedSize is how many deliveries the activity feed keeps
const DefaultFeedSize = 100

// Events requested when subscribing
var Events = []string{"pull_request"}

// ErrNoTarget is returned by Subscribe when no public webhook URL is configured
var ErrNoTarget = errors.New("webhook URL not configured")

// Subscriber creates repository webhooks
type Subscriber interface {
	CreateWebhook(ctx context.Context, owner, repo, targetURL, secret string, events []string) (int64, int, error)
}

// Activity is one received pull request event
type Activity struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Action     string    `json:"action"`
	Repository string    `json:"repository"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Sender     string    `json:"sender"`
	URL        string    `json:"url"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Manager handles webhook subscription and delivery
type Manager struct {
	logger    *log.Logger
	targetURL string
	secret    []byte
	size      int
	now       func() time.Time

	mu   sync.RWMutex
	feed []Activity // oldest first
}

// New creates a hooks manager. size <= 0 means DefaultFeedSize.
func New(logger *log.Logger, targetURL, secret string, size int) *Manager {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Manager{
		logger:    logger,
		targetURL: targetURL,
		secret:    []byte(secret),
		size:      size,
		now:       time.Now,
	}
}

// Subscribe creates a pull_request webhook on owner/repo pointing at this
// server. The upstream status code is returned alongside any error.
func (m *Manager) Subscribe(ctx context.Context, sub Subscriber, owner, repo string) (int64, int, error) {
	if m.targetURL == "" {
		return 0, 0, ErrNoTarget
	}

	m.logger.Hook("Subscribing %s/%s to %v", owner, repo, Events)
	id, status, err := sub.CreateWebhook(ctx, owner, repo, m.targetURL, string(m.secret), Events)
	if err != nil {
		m.logger.Error("Failed to subscribe %s/%s: %v", owner, repo, err)
		return 0, status, err
	}

	m.logger.Success("Webhook %d created for %s/%s", id, owner, repo)
	return id, status, nil
}

// HandleDelivery receives a GitHub webhook delivery. The signature is
// checked when a secret is configured.
func (m *Manager) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := github.ValidatePayload(r, m.secret)
	if err != nil {
		m.logger.Warning("Rejected webhook delivery from %s: %v", r.RemoteAddr, err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	switch eventType {
	case "pull_request", "ping":
	default:
		m.logger.Debug("Ignoring %q delivery", eventType)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		m.logger.Error("Failed to parse %s payload: %v", eventType, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PingEvent:
		m.logger.Hook("Ping received for hook %d", e.GetHookID())
		w.WriteHeader(http.StatusNoContent)
	case *github.PullRequestEvent:
		a := m.Record(Activity{
			Event:      eventType,
			Action:     e.GetAction(),
			Repository: e.GetRepo().GetFullName(),
			Number:     e.GetNumber(),
			Title:      e.GetPullRequest().GetTitle(),
			Sender:     e.GetSender().GetLogin(),
			URL:        e.GetPullRequest().GetHTMLURL(),
		})
		m.logger.PR("%s #%d %s (%s)", a.Repository, a.Number, a.Action, a.Sender)
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Record appends a to the feed, dropping the oldest entry when full
func (m *Manager) Record(a Activity) Activity {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ReceivedAt.IsZero() {
		a.ReceivedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.feed = append(m.feed, a)
	if over := len(m.feed) - m.size; over > 0 {
		m.feed = append([]Activity(nil), m.feed[over:]...)
	}
	return a
}

// Activity returns up to limit entries, newest first. limit <= 0 returns all.
func (m *Manager) Activity(limit int) []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.feed)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Activity, 0, n)
	for i := len(m.feed) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.feed[i])
	}
	return out
}

// String describes the manager for startup logs
func (m *Manager) String() string {
	return fmt.Sprintf("hooks(target=%q, signed=%t, feed=%d)", m.targetURL, len(m.secret) > 0, m.size)
}
