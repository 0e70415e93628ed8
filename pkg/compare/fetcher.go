package compare

import (
	"context"

	"github.com/saint0x/pullmate/pkg/github"
	"github.com/saint0x/pullmate/pkg/log"
)

// CommitSource is the part of the GitHub client a comparison needs
type CommitSource interface {
	CompareCommits(ctx context.Context, owner, repo, base, head string) ([]github.CommitRecord, error)
	CommitFileCount(ctx context.Context, owner, repo, sha string) (int, error)
}

// Fetcher resolves a BranchPair into a Result. Implementations never fail;
// problems yield an empty Result.
type Fetcher interface {
	Fetch(ctx context.Context, pair BranchPair) Result
}

// RepoFetcher compares branches of one repository on behalf of one user
type RepoFetcher struct {
	source      CommitSource
	transformer *Transformer
	logger      *log.Logger
	owner       string
	repo        string
	user        string
}

// NewRepoFetcher binds a CommitSource to owner/repo. user is the author shown
// for commits without an author name.
func NewRepoFetcher(logger *log.Logger, source CommitSource, owner, repo, user string) *RepoFetcher {
	return &RepoFetcher{
		source:      source,
		transformer: NewTransformer(logger),
		logger:      logger,
		owner:       owner,
		repo:        repo,
		user:        user,
	}
}

// Fetch compares pair.Base...pair.Head and shapes the commits
func (f *RepoFetcher) Fetch(ctx context.Context, pair BranchPair) Result {
	if !pair.Comparable() {
		return emptyResult()
	}

	f.logger.Compare("Comparing %s/%s %s...%s", f.owner, f.repo, pair.Base, pair.Head)
	records, err := f.source.CompareCommits(ctx, f.owner, f.repo, pair.Base, pair.Head)
	if err != nil {
		f.logger.Error("Comparison %s...%s failed: %v", pair.Base, pair.Head, err)
		return emptyResult()
	}

	count := func(ctx context.Context, sha string) (int, error) {
		return f.source.CommitFileCount(ctx, f.owner, f.repo, sha)
	}
	views := f.transformer.Transform(ctx, records, pair.Head, f.user, count)

	f.logger.Commit("%d commits between %s and %s (showing %d)", len(records), pair.Base, pair.Head, len(views))
	return Result{Commits: views, TotalCommits: len(records)}
}
