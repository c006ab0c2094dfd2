package crdt

import (
	"fmt"

	"github.com/google/uuid"
)

// GSet is an insertion-only set: once an element is added it can never be
// removed, which makes Merge a plain set union — commutative, associative,
// and idempotent for free.
type GSet[T comparable] struct {
	elements map[T]struct{}
}

// NewGSet returns an empty grow-only set.
func NewGSet[T comparable]() *GSet[T] {
	return &GSet[T]{elements: make(map[T]struct{})}
}

// Add inserts an element. Adding an already-present element is a no-op.
func (s *GSet[T]) Add(v T) {
	s.elements[v] = struct{}{}
}

// Contains reports whether v has been added.
func (s *GSet[T]) Contains(v T) bool {
	_, ok := s.elements[v]
	return ok
}

// Members returns a snapshot slice of all elements, in unspecified order.
func (s *GSet[T]) Members() []T {
	out := make([]T, 0, len(s.elements))
	for v := range s.elements {
		out = append(out, v)
	}
	return out
}

// Merge unions other's elements into s and returns the receiver.
func (s *GSet[T]) Merge(other *GSet[T]) *GSet[T] {
	for v := range other.elements {
		s.elements[v] = struct{}{}
	}
	return s
}

// VerifyInvariants checks the set was constructed through NewGSet.
func (s *GSet[T]) VerifyInvariants() error {
	if s.elements == nil {
		return fmt.Errorf("crdt: GSet used without NewGSet")
	}
	return nil
}

// UniqueTag disambiguates concurrent adds of the same logical value in an
// ORSet, so a remove of one add does not retract a concurrent second add of
// the same value.
type UniqueTag = uuid.UUID

// ORSet is an observed-remove set: add wins over a concurrent remove
// because a remove only retracts the specific add-tags it observed, never
// tags added concurrently elsewhere. Add mints a fresh random UUID tag on
// every call; seq only counts local Add calls and is not used to build tags.
type ORSet[T comparable] struct {
	elements map[T]map[UniqueTag]struct{}
	tombs    map[T]map[UniqueTag]struct{}
	seq      uint64
}

// NewORSet returns an empty observed-remove set.
func NewORSet[T comparable]() *ORSet[T] {
	return &ORSet[T]{
		elements: make(map[T]map[UniqueTag]struct{}),
		tombs:    make(map[T]map[UniqueTag]struct{}),
	}
}

// Add inserts v under a freshly minted unique tag, so concurrent adds of
// the same value at different replicas never collide.
func (s *ORSet[T]) Add(v T) {
	s.seq++
	tag := uuid.New()
	if s.elements[v] == nil {
		s.elements[v] = make(map[UniqueTag]struct{})
	}
	s.elements[v][tag] = struct{}{}
}

// AddWithTag inserts v under an explicit tag. Used by the replication
// engine and by tests that need deterministic tags.
func (s *ORSet[T]) AddWithTag(v T, tag UniqueTag) {
	if s.elements[v] == nil {
		s.elements[v] = make(map[UniqueTag]struct{})
	}
	s.elements[v][tag] = struct{}{}
}

// Remove tombstones every add-tag currently observed for v. Adds of v that
// arrive later (from a concurrent replica) are not retracted, since their
// tags were never observed here.
func (s *ORSet[T]) Remove(v T) {
	tags, ok := s.elements[v]
	if !ok {
		return
	}
	if s.tombs[v] == nil {
		s.tombs[v] = make(map[UniqueTag]struct{})
	}
	for tag := range tags {
		s.tombs[v][tag] = struct{}{}
	}
	delete(s.elements, v)
}

// Contains reports whether v has at least one live (non-tombstoned)
// add-tag.
func (s *ORSet[T]) Contains(v T) bool {
	tags, ok := s.elements[v]
	return ok && len(tags) > 0
}

// Members returns every value with at least one live add-tag.
func (s *ORSet[T]) Members() []T {
	out := make([]T, 0, len(s.elements))
	for v, tags := range s.elements {
		if len(tags) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Merge unions element tags and tombstone tags from other into s, then
// re-applies every tombstone so any tag now known to be removed is
// retracted regardless of which side observed the remove first. This is
// the standard two-phase-set style merge that makes add-wins ORSet merge
// commutative, associative, and idempotent.
func (s *ORSet[T]) Merge(other *ORSet[T]) *ORSet[T] {
	for v, tags := range other.elements {
		if s.elements[v] == nil {
			s.elements[v] = make(map[UniqueTag]struct{})
		}
		for tag := range tags {
			s.elements[v][tag] = struct{}{}
		}
	}
	for v, tags := range other.tombs {
		if s.tombs[v] == nil {
			s.tombs[v] = make(map[UniqueTag]struct{})
		}
		for tag := range tags {
			s.tombs[v][tag] = struct{}{}
		}
	}
	for v, tombTags := range s.tombs {
		live, ok := s.elements[v]
		if !ok {
			continue
		}
		for tag := range tombTags {
			delete(live, tag)
		}
		if len(live) == 0 {
			delete(s.elements, v)
		}
	}
	return s
}

// VerifyInvariants checks the set was constructed through NewORSet and that
// no value is left holding an empty live tag set.
func (s *ORSet[T]) VerifyInvariants() error {
	if s.elements == nil || s.tombs == nil {
		return errInvariantORSetNilMap
	}
	for v, tags := range s.elements {
		if len(tags) == 0 {
			return fmt.Errorf("crdt: ORSet has dangling empty tag set for value %v", v)
		}
	}
	return nil
}
