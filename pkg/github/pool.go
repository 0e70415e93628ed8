package github

import (
	"errors"
	"sync"

	"github.com/saint0x/pullmate/pkg/log"
)

// ErrPoolClosed is returned once the pool has been shut down
var ErrPoolClosed = errors.New("github client pool closed")

// Pool hands out one Client per access token. It is created at process start,
// shared by every request, and closed at shutdown.
type Pool struct {
	logger *log.Logger
	opts   []Option

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// NewPool creates an empty pool; opts are applied to every client it builds
func NewPool(logger *log.Logger, opts ...Option) *Pool {
	return &Pool{
		logger:  logger,
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// For returns the client for token, building it on first use
func (p *Pool) For(token string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if c, ok := p.clients[token]; ok {
		return c, nil
	}

	c, err := New(p.logger, token, p.opts...)
	if err != nil {
		return nil, err
	}
	p.clients[token] = c
	p.logger.Debug("GitHub client created (%d cached)", len(p.clients))
	return c, nil
}

// Forget drops the client for token, e.g. on logout
func (p *Pool) Forget(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, token)
}

// Len reports how many clients are cached
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close releases every client. Further calls to For fail.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[string]*Client)
	p.closed = true
}
