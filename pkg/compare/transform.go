package compare

import (
	"context"
	"time"

	"github.com/saint0x/pullmate/pkg/github"
	"github.com/saint0x/pullmate/pkg/log"
	"github.com/saint0x/pullmate/pkg/timefmt"
	"golang.org/x/sync/errgroup"
)

// FileCounter returns the number of files a commit touched
type FileCounter func(ctx context.Context, sha string) (int, error)

// Transformer turns raw compare records into CommitViews
type Transformer struct {
	logger *log.Logger
	now    func() time.Time
}

// NewTransformer creates a Transformer using the wall clock
func NewTransformer(logger *log.Logger) *Transformer {
	return &Transformer{logger: logger, now: time.Now}
}

// Transform keeps the newest MaxCommits of records (which arrive oldest
// first), reverses them and resolves each commit's file count concurrently.
// A failed file count leaves that commit at zero.
func (t *Transformer) Transform(ctx context.Context, records []github.CommitRecord, branch, fallbackAuthor string, count FileCounter) []CommitView {
	if len(records) > MaxCommits {
		records = records[len(records)-MaxCommits:]
	}

	now := t.now()
	views := make([]CommitView, len(records))
	for i := range records {
		rec := records[len(records)-1-i]

		author := rec.AuthorName
		if author == "" {
			author = fallbackAuthor
		}

		views[i] = CommitView{
			SequenceIndex: i + 1,
			ShortHash:     shortHash(rec.SHA),
			Message:       rec.Message,
			Branch:        branch,
			Author:        author,
			Timestamp:     timefmt.Since(rec.AuthoredAt, now),
			URL:           rec.URL,
		}
	}

	if count == nil {
		return views
	}

	// Each goroutine writes only its own slot.
	var g errgroup.Group
	for i := range views {
		i := i
		sha := records[len(records)-1-i].SHA
		g.Go(func() error {
			n, err := count(ctx, sha)
			if err != nil {
				t.logger.Warning("Could not load files for commit %s: %v", shortHash(sha), err)
				return nil
			}
			views[i].FilesChanged = n
			return nil
		})
	}
	_ = g.Wait()

	return views
}

func shortHash(sha string) string {
	if len(sha) <= ShortHashLen {
		return sha
	}
	return sha[:ShortHashLen]
}
