// Package compare drives the branch comparison view: which base and head are
// selected, when a comparison request goes out, and how the returned commits
// are shaped for display.
package compare

// MaxCommits is how many commits a comparison keeps, newest first
const MaxCommits = 10

// ShortHashLen is the length of an abbreviated commit hash
const ShortHashLen = 7

// BranchPair is a base/head selection. An empty name means unset.
type BranchPair struct {
	Base string `json:"base"`
	Head string `json:"head"`
}

// Comparable reports whether the pair warrants a comparison request
func (p BranchPair) Comparable() bool {
	return p.Base != "" && p.Head != "" && p.Base != p.Head
}

// State describes why a snapshot looks the way it does
type State string

const (
	StateUnselected State = "unselected"
	StateSameBranch State = "same-branch"
	StateReady      State = "ready"
)

// State classifies the pair
func (p BranchPair) State() State {
	switch {
	case p.Base == "" || p.Head == "":
		return StateUnselected
	case p.Base == p.Head:
		return StateSameBranch
	default:
		return StateReady
	}
}

// CommitView is a commit shaped for display
type CommitView struct {
	SequenceIndex int    `json:"id"`
	ShortHash     string `json:"hash"`
	Message       string `json:"message"`
	Branch        string `json:"branch"`
	Author        string `json:"author"`
	Timestamp     string `json:"timestamp"`
	FilesChanged  int    `json:"filesChanged"`
	URL           string `json:"url"`
}

// Result is the outcome of one comparison: the displayed commits and how many
// the upstream returned before truncation.
type Result struct {
	Commits      []CommitView `json:"commits"`
	TotalCommits int          `json:"totalCommits"`
}

// Truncated reports whether older commits were dropped
func (r Result) Truncated() bool {
	return r.TotalCommits > len(r.Commits)
}

// FilesChanged sums FilesChanged across the displayed commits
func (r Result) FilesChanged() int {
	total := 0
	for _, c := range r.Commits {
		total += c.FilesChanged
	}
	return total
}

func emptyResult() Result {
	return Result{Commits: []CommitView{}}
}
