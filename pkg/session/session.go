// Package session keeps signed-in users between requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Session is a signed-in GitHub user
type Session struct {
	ID          string    `json:"id"`
	Login       string    `json:"login"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates a session with a fresh ID
func New(login, token string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Login:       login,
		AccessToken: token,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store persists sessions
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
