package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/saint0x/pullmate/pkg/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultRPS is the per-client request budget when none is configured
const DefaultRPS = 10

// Client handles GitHub operations for a single access token
type Client struct {
	client  *github.Client
	logger  *log.Logger
	limiter *rate.Limiter
}

// Option customizes a Client
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	rps        float64
}

// WithHTTPClient overrides the transport used to reach GitHub. The client is
// still wrapped with the token source.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithBaseURL points the client at a different API root (GitHub Enterprise or tests)
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(o *options) { o.rps = rps }
}

// New creates a GitHub client authenticated with token
func New(logger *log.Logger, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("github access token is required")
	}

	o := options{rps: DefaultRPS}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	gh := github.NewClient(oauth2.NewClient(ctx, ts))

	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		gh.BaseURL = base
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if o.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.rps), int(o.rps)+1)
	}

	return &Client{
		client:  gh,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// wait blocks until the limiter admits another request
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetAuthenticatedUser returns the login of the token owner
func (c *Client) GetAuthenticatedUser(ctx context.Context) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}

	return user.GetLogin(), nil
}

// ListRepos lists the authenticated user's repositories, most recently updated first
func (c *Client) ListRepos(ctx context.Context, limit int) ([]Repo, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	repos, _, err := c.client.Repositories.List(ctx, "", &github.RepositoryListOptions{
		Sort: "updated",
		ListOptions: github.ListOptions{
			PerPage: limit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	out := make([]Repo, 0, len(repos))
	for _, r := range repos {
		out = append(out, repoFromGitHub(r))
	}
	return out, nil
}

// GetRepo gets a single repository
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	repository, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	r := repoFromGitHub(repository)
	return &r, nil
}

// GetDefaultBranch gets the default branch for a repository
func (c *Client) GetDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, err := c.GetRepo(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return r.DefaultBranch, nil
}

// GetBranches gets all branch names for a repository, in API order
func (c *Client) GetBranches(ctx context.Context, owner, repo string) ([]string, error) {
	var names []string
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		branches, resp, err := c.client.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}

		for _, b := range branches {
			names = append(names, b.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// CompareCommits returns the commits on head that are not on base, oldest first
func (c *Client) CompareCommits(ctx context.Context, owner, repo, base, head string) ([]CommitRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	comp, _, err := c.client.Repositories.CompareCommits(ctx, owner, repo, base, head, &github.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s...%s: %w", base, head, err)
	}

	records := make([]CommitRecord, 0, len(comp.Commits))
	for _, rc := range comp.Commits {
		records = append(records, commitFromGitHub(rc))
	}
	return records, nil
}

// CommitFileCount returns how many files a single commit touched
func (c *Client) CommitFileCount(ctx context.Context, owner, repo, sha string) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha, &github.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}

	return len(commit.Files), nil
}

// CreatePR creates a new pull request
func (c *Client) CreatePR(ctx context.Context, owner, repo, title, body, head, base string) (*github.PullRequest, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title:               github.String(title),
		Body:                github.String(body),
		Head:                github.String(head),
		Base:                github.String(base),
		MaintainerCanModify: github.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PR: %w", err)
	}

	return pr, nil
}

// ParseRepoURL parses a GitHub URL into owner and repo
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimSuffix(repoURL, ".git")

	// git@github.com:owner/repo
	if strings.HasPrefix(repoURL, "git@github.com:") {
		parts := strings.Split(strings.TrimPrefix(repoURL, "git@github.com:"), "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid SSH repository URL format")
		}
		return parts[0], parts[1], nil
	}

	// owner/repo shorthand
	if !strings.Contains(repoURL, "://") {
		parts := strings.Split(repoURL, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid repository reference %q", repoURL)
		}
		return parts[0], parts[1], nil
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository URL format")
	}

	return parts[0], parts[1], nil
}
