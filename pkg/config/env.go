package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/saint0x/pullmate/pkg/log"
)

// ErrMissing marks a required variable that is not set
var ErrMissing = errors.New("not configured")

// Defaults
const (
	DefaultPort          = "8080"
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultGitHubRPS     = 10.0
	DefaultSessionTTL    = 24 * time.Hour
)

// Environment holds validated environment configuration
type Environment struct {
	GitHubClientID     string
	GitHubClientSecret string
	OAuthCallbackURL   string
	OpenAIKey          string
	Port               string
	Debug              bool
	RedisURL           string
	WebhookURL         string
	WebhookSecret      string
	DebounceDelay      time.Duration
	GitHubRPS          float64
	TemplatesPath      string
	SessionTTL         time.Duration
}

// Validate checks and validates all environment variables the server needs
func Validate(logger *log.Logger) (*Environment, error) {
	env := &Environment{
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		OAuthCallbackURL:   os.Getenv("OAUTH_CALLBACK_URL"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		Port:               os.Getenv("PORT"),
		Debug:              os.Getenv("DEBUG") == "true",
		RedisURL:           os.Getenv("REDIS_URL"),
		WebhookURL:         os.Getenv("WEBHOOK_URL"),
		WebhookSecret:      os.Getenv("GITHUB_WEBHOOK_SECRET"),
		TemplatesPath:      os.Getenv("TEMPLATES_PATH"),
		DebounceDelay:      DefaultDebounceDelay,
		GitHubRPS:          DefaultGitHubRPS,
		SessionTTL:         DefaultSessionTTL,
	}

	if env.GitHubClientID == "" {
		return nil, fmt.Errorf("GITHUB_CLIENT_ID %w", ErrMissing)
	}
	if env.GitHubClientSecret == "" {
		return nil, fmt.Errorf("GITHUB_CLIENT_SECRET %w", ErrMissing)
	}

	if env.Port == "" {
		env.Port = DefaultPort
	}
	if env.OAuthCallbackURL == "" {
		env.OAuthCallbackURL = fmt.Sprintf("http://localhost:%s/auth/callback", env.Port)
	}

	var err error
	if env.DebounceDelay, err = durationVar("DEBOUNCE_DELAY", DefaultDebounceDelay); err != nil {
		return nil, err
	}
	if env.SessionTTL, err = durationVar("SESSION_TTL", DefaultSessionTTL); err != nil {
		return nil, err
	}
	if raw := os.Getenv("GITHUB_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("invalid GITHUB_RPS %q", raw)
		}
		env.GitHubRPS = rps
	}

	if env.OpenAIKey == "" {
		logger.Warning("OPENAI_API_KEY not configured, drafts will use templates only")
	}
	if env.WebhookURL != "" && env.WebhookSecret == "" {
		logger.Warning("WEBHOOK_URL set without GITHUB_WEBHOOK_SECRET, deliveries will not be verified")
	}
	if env.RedisURL == "" {
		logger.Debug("REDIS_URL not set, sessions kept in memory")
	}

	return env, nil
}

func durationVar(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return d, nil
}
