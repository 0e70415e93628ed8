package compare

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownBranch is returned when selecting a branch the repository does not have
var ErrUnknownBranch = errors.New("unknown branch")

// Selector holds the base/head choice for a repository's branch list
type Selector struct {
	mu       sync.Mutex
	branches []string
	known    map[string]struct{}
	pair     BranchPair
	onChange func(BranchPair)
}

// NewSelector creates a selector over branches. Initial names that are not in
// the list are treated as unset. onChange is called with the new pair after
// every effective change, and once with the initial pair.
func NewSelector(branches []string, base, head string, onChange func(BranchPair)) *Selector {
	known := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		known[b] = struct{}{}
	}

	s := &Selector{
		branches: append([]string(nil), branches...),
		known:    known,
		onChange: onChange,
	}
	if _, ok := known[base]; ok {
		s.pair.Base = base
	}
	if _, ok := known[head]; ok {
		s.pair.Head = head
	}

	if onChange != nil {
		onChange(s.pair)
	}
	return s
}

// SetBase selects the base branch. An empty name clears it.
func (s *Selector) SetBase(name string) error {
	return s.set(name, func(p *BranchPair) *string { return &p.Base })
}

// SetHead selects the head branch. An empty name clears it.
func (s *Selector) SetHead(name string) error {
	return s.set(name, func(p *BranchPair) *string { return &p.Head })
}

// Set updates both sides at once, producing a single change
func (s *Selector) Set(pair BranchPair) error {
	s.mu.Lock()
	if err := s.checkLocked(pair.Base); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkLocked(pair.Head); err != nil {
		s.mu.Unlock()
		return err
	}
	if pair == s.pair {
		s.mu.Unlock()
		return nil
	}
	s.pair = pair
	s.emitLocked()
	s.mu.Unlock()
	return nil
}

func (s *Selector) set(name string, field func(*BranchPair) *string) error {
	s.mu.Lock()
	if err := s.checkLocked(name); err != nil {
		s.mu.Unlock()
		return err
	}
	target := field(&s.pair)
	if *target == name {
		s.mu.Unlock()
		return nil
	}
	*target = name
	s.emitLocked()
	s.mu.Unlock()
	return nil
}

func (s *Selector) checkLocked(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := s.known[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, name)
	}
	return nil
}

// emitLocked runs onChange under mu so changes reach it in order
func (s *Selector) emitLocked() {
	if s.onChange != nil {
		s.onChange(s.pair)
	}
}

// Pair returns the current selection
func (s *Selector) Pair() BranchPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// Branches returns the selectable branch names
func (s *Selector) Branches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.branches...)
}

// SetBranches replaces the selectable branches. A selected side that is no
// longer in the list is cleared.
func (s *Selector) SetBranches(branches []string) {
	known := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		known[b] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches = append([]string(nil), branches...)
	s.known = known

	pair := s.pair
	if _, ok := known[pair.Base]; !ok {
		pair.Base = ""
	}
	if _, ok := known[pair.Head]; !ok {
		pair.Head = ""
	}
	if pair != s.pair {
		s.pair = pair
		s.emitLocked()
	}
}
