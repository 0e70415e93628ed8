package compare

import (
	"context"
	"time"

	"github.com/saint0x/pullmate/pkg/log"
)

// View wires a Selector to a Comparator for one repository
type View struct {
	*Selector
	comparator *Comparator
}

// ViewOptions configures a View
type ViewOptions struct {
	Branches []string
	Base     string
	Head     string
	Delay    time.Duration
}

// NewView creates the comparison state for a repository. Selection changes
// flow straight into the comparator.
func NewView(logger *log.Logger, fetcher Fetcher, opts ViewOptions) *View {
	v := &View{
		comparator: NewComparator(logger, fetcher, opts.Delay),
	}
	v.Selector = NewSelector(opts.Branches, opts.Base, opts.Head, v.comparator.Request)
	return v
}

// Snapshot returns the comparator state
func (v *View) Snapshot() Snapshot {
	return v.comparator.Snapshot()
}

// Settled waits for the current selection to be resolved
func (v *View) Settled(ctx context.Context) (Snapshot, error) {
	return v.comparator.Settled(ctx)
}

// Close stops the comparator
func (v *View) Close() {
	v.comparator.Close()
}
