package compare

import (
	"context"
	"sync"
	"time"

	"github.com/saint0x/pullmate/pkg/log"
)

// DefaultDelay is how long a selection must stay put before it is compared
const DefaultDelay = 300 * time.Millisecond

// DefaultFetchTimeout bounds a single comparison including commit details
const DefaultFetchTimeout = 30 * time.Second

// Snapshot is the comparator's state at one instant
type Snapshot struct {
	Pair       BranchPair
	Result     Result
	Loading    bool
	Pending    bool
	Generation uint64
}

// Comparator debounces BranchPair changes and keeps the latest Result.
//
// Every Request bumps the generation. A fetch is tagged with the generation
// it was started for, and its Result is dropped if the generation has moved
// on by the time it returns. Dispatched fetches are never cancelled.
type Comparator struct {
	fetcher Fetcher
	logger  *log.Logger
	delay   time.Duration
	timeout time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pair       BranchPair
	result     Result
	pending    bool
	loading    bool
	closed     bool
	changed    chan struct{}
}

// NewComparator creates a comparator. delay <= 0 means DefaultDelay.
func NewComparator(logger *log.Logger, fetcher Fetcher, delay time.Duration) *Comparator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Comparator{
		fetcher: fetcher,
		logger:  logger,
		delay:   delay,
		timeout: DefaultFetchTimeout,
		result:  emptyResult(),
		changed: make(chan struct{}),
	}
}

// Request records a new selection and restarts the delay window. Degenerate
// pairs clear the result immediately without a fetch.
func (c *Comparator) Request(pair BranchPair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.generation++
	gen := c.generation
	c.pair = pair

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if !pair.Comparable() {
		c.logger.Debug("Selection %q...%q is not comparable, clearing commits", pair.Base, pair.Head)
		c.result = emptyResult()
		c.pending = false
		c.loading = false
		c.notifyLocked()
		return
	}

	c.pending = true
	c.loading = false
	c.timer = time.AfterFunc(c.delay, func() { c.dispatch(gen, pair) })
	c.notifyLocked()
}

// dispatch runs when a delay window elapses uncancelled
func (c *Comparator) dispatch(gen uint64, pair BranchPair) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.pending = false
	c.loading = true
	c.notifyLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	result := c.fetcher.Fetch(ctx, pair)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if gen != c.generation {
		c.logger.Debug("Discarding stale comparison %s...%s (generation %d, now %d)", pair.Base, pair.Head, gen, c.generation)
		return
	}
	if result.Commits == nil {
		result.Commits = []CommitView{}
	}
	c.result = result
	c.loading = false
	c.notifyLocked()
}

// notifyLocked wakes everyone waiting for a state change. Caller holds mu.
func (c *Comparator) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Snapshot returns the current state
func (c *Comparator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Comparator) snapshotLocked() Snapshot {
	commits := make([]CommitView, len(c.result.Commits))
	copy(commits, c.result.Commits)
	return Snapshot{
		Pair:       c.pair,
		Result:     Result{Commits: commits, TotalCommits: c.result.TotalCommits},
		Loading:    c.loading,
		Pending:    c.pending,
		Generation: c.generation,
	}
}

// Settled waits until no delay window is open and no fetch is in flight,
// then returns the state
func (c *Comparator) Settled(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		if c.closed || (!c.pending && !c.loading) {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// Close stops any pending window. Results of in-flight fetches are dropped.
func (c *Comparator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = true
	c.pending = false
	c.loading = false
	c.notifyLocked()
}
