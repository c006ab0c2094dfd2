package replication

import (
	"sync"
	"time"
)

// PeerState is a peer's position in the convergence state machine:
// Healthy ↔ Divergent → Syncing → Healthy. A root-digest mismatch moves a
// peer to Divergent; starting a pull-deltas pass moves it to Syncing;
// finishing that pass returns it to Healthy. A failed root-digest request
// (OnPartition) also forces a peer to Divergent so it re-syncs instead of
// being trusted on stale state.
type PeerState int

const (
	Healthy PeerState = iota
	Divergent
	Syncing
)

func (s PeerState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Divergent:
		return "divergent"
	case Syncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// PeerStatus is one peer's current state plus the last time it changed,
// for surfacing staleness in /info or metrics.
type PeerStatus struct {
	State     PeerState
	UpdatedAt time.Time
}

// PeerTracker owns the state machine for every known peer. It has no
// goroutine of its own — callers (the anti-entropy scheduler, membership
// event handlers) drive transitions explicitly.
type PeerTracker struct {
	mu    sync.Mutex
	peers map[string]*PeerStatus
	now   func() time.Time
}

// NewPeerTracker returns an empty tracker. now is injectable for tests;
// production callers pass time.Now.
func NewPeerTracker(now func() time.Time) *PeerTracker {
	if now == nil {
		now = time.Now
	}
	return &PeerTracker{peers: make(map[string]*PeerStatus), now: now}
}

func (t *PeerTracker) set(peer string, s PeerState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peer] = &PeerStatus{State: s, UpdatedAt: t.now()}
}

// State returns a peer's current state, defaulting a never-seen peer to
// Divergent so it gets synced before being trusted.
func (t *PeerTracker) State(peer string) PeerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.peers[peer]; ok {
		return st.State
	}
	return Divergent
}

// OnDigestMismatch transitions a peer to Divergent, the entry point for
// the anti-entropy loop noticing a root digest disagreement.
func (t *PeerTracker) OnDigestMismatch(peer string) { t.set(peer, Divergent) }

// OnDigestMatch transitions a peer straight to Healthy: nothing to sync.
func (t *PeerTracker) OnDigestMatch(peer string) { t.set(peer, Healthy) }

// OnSyncStarted transitions a Divergent peer into Syncing once a
// pull-deltas pass begins.
func (t *PeerTracker) OnSyncStarted(peer string) { t.set(peer, Syncing) }

// OnSyncCompleted transitions a Syncing peer back to Healthy.
func (t *PeerTracker) OnSyncCompleted(peer string) { t.set(peer, Healthy) }

// OnPartition forces a peer to Divergent regardless of its prior state,
// so that rejoining after a network partition always triggers a fresh
// digest comparison instead of trusting stale Healthy state.
func (t *PeerTracker) OnPartition(peer string) { t.set(peer, Divergent) }

// Snapshot returns every tracked peer's current state, for /info and
// metrics surfaces.
func (t *PeerTracker) Snapshot() map[string]PeerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]PeerState, len(t.peers))
	for k, v := range t.peers {
		out[k] = v.State
	}
	return out
}
