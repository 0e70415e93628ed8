package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saint0x/pullmate/pkg/ai"
	"github.com/saint0x/pullmate/pkg/auth"
	"github.com/saint0x/pullmate/pkg/config"
	"github.com/saint0x/pullmate/pkg/github"
	"github.com/saint0x/pullmate/pkg/hooks"
	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/openai"
	"github.com/saint0x/pullmate/pkg/server"
	"github.com/saint0x/pullmate/pkg/session"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pullmate server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "port to listen on (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := loggerFor(cmd)

	logger.Step("Starting pullmate server...")
	logger.Debug("Debug mode: %v", logger.IsDebug())

	// Validate environment
	logger.Step("Validating environment...")
	env, err := config.Validate(logger)
	if err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		env.Port = port
	}
	logger.Success("Environment validated")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Initialize components
	logger.Step("Initializing components...")

	tpls, err := loadTemplates(env.TemplatesPath)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	logger.Success("%d PR templates ready", len(tpls.List()))

	store, err := openSessionStore(ctx, logger, env)
	if err != nil {
		return err
	}
	defer store.Close()

	pool := github.NewPool(logger, github.WithRateLimit(env.GitHubRPS))
	defer pool.Close()
	logger.Success("GitHub client pool ready (%.0f req/s per user)", env.GitHubRPS)

	var chat ai.ChatCompleter
	if env.OpenAIKey != "" {
		chat = openai.New(env.OpenAIKey)
	}
	gen := ai.New(logger, chat)
	if gen.Enabled() {
		logger.Success("AI generator ready")
	}

	hooksMgr := hooks.New(logger, env.WebhookURL, env.WebhookSecret, hooks.DefaultFeedSize)
	logger.Success("Webhooks ready")

	lookup := func(ctx context.Context, token string) (string, error) {
		gh, err := pool.For(token)
		if err != nil {
			return "", err
		}
		return gh.GetAuthenticatedUser(ctx)
	}
	authn := auth.New(logger, auth.Config{
		ClientID:     env.GitHubClientID,
		ClientSecret: env.GitHubClientSecret,
		RedirectURL:  env.OAuthCallbackURL,
	}, store, lookup)

	// Create and start server
	srv, err := server.New(logger, server.Config{
		Port:          env.Port,
		DebounceDelay: env.DebounceDelay,
	}, authn, server.PoolClients(pool), gen, tpls, hooksMgr)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	logger.Success("Server initialized")

	handleSignals(logger, cancel)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Success("Server shutdown complete")
	return nil
}

func openSessionStore(ctx context.Context, logger *log.Logger, env *config.Environment) (session.Store, error) {
	if env.RedisURL == "" {
		return session.NewMemoryStore(env.SessionTTL), nil
	}
	store, err := session.NewRedisStoreFromURL(ctx, env.RedisURL, env.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Success("Sessions stored in Redis")
	return store, nil
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits on the second
func handleSignals(logger *log.Logger, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Create a channel to track if we're already shutting down
	shuttingDown := make(chan struct{}, 1)

	go func() {
		for sig := range sigCh {
			select {
			case <-shuttingDown:
				// Second signal, force exit
				logger.Error("Force stopping...")
				os.Exit(1)
			default:
				logger.Info("Received signal: %v", sig)
				logger.Info("Press Ctrl+C again to force stop")
				shuttingDown <- struct{}{}
				cancel()
			}
		}
	}()
}
