package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v57/github"
	"github.com/saint0x/pullmate/pkg/ai"
	"github.com/saint0x/pullmate/pkg/auth"
	"github.com/saint0x/pullmate/pkg/github"
	"github.com/saint0x/pullmate/pkg/hooks"
	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/session"
	"github.com/saint0x/pullmate/pkg/templates"
)

// GitHubClient interface for GitHub operations
type GitHubClient interface {
	ListRepos(ctx context.Context, limit int) ([]github.Repo, error)
	GetRepo(ctx context.Context, owner, repo string) (*github.Repo, error)
	GetBranches(ctx context.Context, owner, repo string) ([]string, error)
	CompareCommits(ctx context.Context, owner, repo, base, head string) ([]github.CommitRecord, error)
	CommitFileCount(ctx context.Context, owner, repo, sha string) (int, error)
	CreatePR(ctx context.Context, owner, repo, title, body, head, base string) (*gogithub.PullRequest, error)
	CreateWebhook(ctx context.Context, owner, repo, targetURL, secret string, events []string) (int64, int, error)
}

// ClientProvider hands out a GitHubClient per access token
type ClientProvider interface {
	For(token string) (GitHubClient, error)
	Forget(token string)
}

// Drafter generates PR content
type Drafter interface {
	Draft(ctx context.Context, in ai.DraftInput) (*ai.PRContent, error)
}

// Config holds server settings
type Config struct {
	Port          string
	DebounceDelay time.Duration
}

// Server serves the Pull-Mate API
type Server struct {
	logger    *log.Logger
	cfg       Config
	auth      *auth.Authenticator
	clients   ClientProvider
	drafter   Drafter
	templates *templates.Set
	hooks     *hooks.Manager
	views     *viewRegistry
	now       func() time.Time

	srv  *http.Server
	addr net.Addr
	mu   sync.RWMutex
}

// New creates a new server instance
func New(logger *log.Logger, cfg Config, authn *auth.Authenticator, clients ClientProvider, drafter Drafter, tpls *templates.Set, hks *hooks.Manager) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if authn == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if clients == nil {
		return nil, fmt.Errorf("github client provider is required")
	}
	if drafter == nil {
		return nil, fmt.Errorf("drafter is required")
	}
	if tpls == nil {
		return nil, fmt.Errorf("templates are required")
	}
	if hks == nil {
		return nil, fmt.Errorf("hooks manager is required")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if logger.IsDebug() {
		logger.Info("Initializing server with components:")
		logger.Info("- Authenticator: ✓")
		logger.Info("- GitHub clients: ✓")
		logger.Info("- Drafter: ✓")
		logger.Info("- Templates: %d", len(tpls.List()))
		logger.Info("- Hooks: %s", hks)
	}

	s := &Server{
		logger:    logger,
		cfg:       cfg,
		auth:      authn,
		clients:   clients,
		drafter:   drafter,
		templates: tpls,
		hooks:     hks,
		views:     newViewRegistry(),
		now:       time.Now,
	}

	authn.OnLogout(func(sess *session.Session) {
		s.views.closeSession(sess.ID)
		clients.Forget(sess.AccessToken)
	})
	authn.OnExpire(s.views.closeSession)

	return s, nil
}

// Handler returns the routed, session-guarded handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", s.auth.HandleLogin)
	mux.HandleFunc("GET /auth/callback", s.auth.HandleCallback)
	mux.HandleFunc("/logout", s.auth.HandleLogout)

	mux.HandleFunc("GET /api/repos", s.handleListRepos)
	mux.HandleFunc("GET /api/repos/{owner}/{repo}", s.handleRepo)
	mux.HandleFunc("GET /api/repos/{owner}/{repo}/compare", s.handleGetCompare)
	mux.HandleFunc("POST /api/repos/{owner}/{repo}/compare", s.handleSetCompare)
	mux.HandleFunc("POST /api/pr/draft", s.handleDraft)
	mux.HandleFunc("POST /api/pr", s.handleCreatePR)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/webhooks/subscribe", s.handleSubscribe)
	mux.HandleFunc("/api/webhooks/github", s.hooks.HandleDelivery)
	mux.HandleFunc("GET /api/activity", s.handleActivity)

	return s.auth.Require(mux)
}

// Start starts the server and blocks until ctx is done
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.logger.IsDebug() {
		s.logger.Info("Starting server initialization...")
		s.logger.Info("Using port: %s", s.cfg.Port)
	}

	listener, err := s.findAvailablePort(s.cfg.Port)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to find available port: %w", err)
	}
	s.addr = listener.Addr()

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	// Start server using the existing listener
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error: %v", err)
		}
	}()

	actualPort := listener.Addr().(*net.TCPAddr).Port
	s.logger.Success("Server is running on port %d", actualPort)
	if s.logger.IsDebug() {
		s.logger.Info("Webhook URL: http://localhost:%d/api/webhooks/github", actualPort)
		s.logger.Info("Press Ctrl+C to stop")
	}

	// Wait for context cancellation
	<-ctx.Done()
	return s.Stop()
}

// Addr returns the listening address once Start has bound it
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// findAvailablePort tries to find an available port starting from the given port
func (s *Server) findAvailablePort(startPort string) (net.Listener, error) {
	// Try the specified port first
	listener, err := net.Listen("tcp", ":"+startPort)
	if err == nil {
		return listener, nil
	}

	if s.logger.IsDebug() {
		s.logger.Info("Port %s is in use, searching for available port...", startPort)
	}

	// Try to find a random available port
	listener, err = net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	return listener, nil
}

// Stop stops the server and every open comparison
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views.closeAll()

	if s.srv != nil {
		// Create a timeout context for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop server: %v", err)
			return fmt.Errorf("failed to stop server: %w", err)
		}
		s.srv = nil
		s.logger.Success("Server stopped")
	}

	return nil
}
