package github

import (
	"time"

	"github.com/google/go-github/v57/github"
)

// Repo is the subset of repository metadata Pull-Mate shows
type Repo struct {
	ID            int64
	Name          string
	FullName      string
	Description   string
	Private       bool
	Stars         int
	Forks         int
	Language      string
	UpdatedAt     time.Time
	URL           string
	Owner         string
	DefaultBranch string
}

// CommitRecord is a commit as returned by the compare endpoint. Read-only.
type CommitRecord struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorLogin string
	AuthoredAt  time.Time
	URL         string
}

func repoFromGitHub(r *github.Repository) Repo {
	return Repo{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Private:       r.GetPrivate(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		Language:      r.GetLanguage(),
		UpdatedAt:     r.GetUpdatedAt().Time,
		URL:           r.GetHTMLURL(),
		Owner:         r.GetOwner().GetLogin(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}

func commitFromGitHub(rc *github.RepositoryCommit) CommitRecord {
	author := rc.GetCommit().GetAuthor()
	return CommitRecord{
		SHA:         rc.GetSHA(),
		Message:     rc.GetCommit().GetMessage(),
		AuthorName:  author.GetName(),
		AuthorLogin: rc.GetAuthor().GetLogin(),
		AuthoredAt:  author.GetDate().Time,
		URL:         rc.GetHTMLURL(),
	}
}
