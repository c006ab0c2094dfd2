package replication

import (
	"fmt"
	"time"

	"github.com/hashicorp/memberlist"
	"golang.org/x/time/rate"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dreamware/ridgekv/internal/config"
	"github.com/dreamware/ridgekv/internal/delta"
)

// Dispatcher fans out deltas to peers over hashicorp/memberlist's gossip
// transport, in one of two modes selected at startup: Broadcast sends
// every delta to every peer through memberlist's own retransmission queue,
// Selective sends a delta only to the peers a Ring says are responsible
// for its key. Either way delivery is best-effort and unordered: Send
// drops a delta outright once the outbound rate limit is exceeded, and a
// selective send to a peer that is not a current member, or whose
// SendReliable fails, is not retried. Inbound duplicates are filtered by a
// bounded cache of recently seen delta IDs.
type Dispatcher struct {
	ml    *memberlist.Memberlist
	mode  config.ReplicationMode
	rf    int
	ring  *Ring
	queue *memberlist.TransmitLimitedQueue
	limit *rate.Limiter

	onDelta func(*delta.Delta)
	seen    *lru.Cache[delta.ID, struct{}]
}

// DispatcherConfig bundles the gossip dispatcher's startup knobs.
type DispatcherConfig struct {
	BindAddr string
	BindPort int
	NodeName string
	Peers    []string
	Mode     config.ReplicationMode
	RF       int
	// OnDelta is invoked for every inbound delta, after dedup, before
	// merge — Engine wires this to its own merge path.
	OnDelta func(*delta.Delta)
}

// NewDispatcher starts a memberlist instance bound to cfg.BindAddr:BindPort
// and joins cfg.Peers, following memberlist's DefaultLocalConfig profile
// (the teacher pack carries no memberlist usage of its own to imitate, so
// this follows the library's own documented defaults-plus-delegate
// pattern).
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	seen, err := lru.New[delta.ID, struct{}](4096)
	if err != nil {
		return nil, fmt.Errorf("replication: new dedup cache: %w", err)
	}

	d := &Dispatcher{
		mode:    cfg.Mode,
		rf:      cfg.RF,
		ring:    NewRing(cfg.Peers),
		limit:   rate.NewLimiter(rate.Limit(1000), 1000),
		onDelta: cfg.OnDelta,
		seen:    seen,
	}

	mlConfig := memberlist.DefaultLocalConfig()
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	if cfg.NodeName != "" {
		mlConfig.Name = cfg.NodeName
	}
	mlConfig.Delegate = d

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("replication: create memberlist: %w", err)
	}
	d.ml = ml
	d.queue = &memberlist.TransmitLimitedQueue{
		NumNodes:       func() int { return ml.NumMembers() },
		RetransmitMult: 3,
	}

	if len(cfg.Peers) > 0 {
		if _, err := ml.Join(cfg.Peers); err != nil {
			return nil, fmt.Errorf("replication: join %v: %w", cfg.Peers, err)
		}
	}
	return d, nil
}

// Close leaves the memberlist cluster gracefully.
func (d *Dispatcher) Close() error {
	if err := d.ml.Leave(5 * time.Second); err != nil {
		return err
	}
	return d.ml.Shutdown()
}

// Peers returns the current member addresses, for the anti-entropy
// scheduler and the per-peer state machine to iterate over.
func (d *Dispatcher) Peers() []string {
	members := d.ml.Members()
	addrs := make([]string, 0, len(members))
	self := d.ml.LocalNode()
	for _, m := range members {
		if self != nil && m.Name == self.Name {
			continue
		}
		addrs = append(addrs, fmt.Sprintf("%s:%d", m.Addr, m.Port))
	}
	return addrs
}

// Send dispatches one delta according to the configured mode, marking it
// seen locally first so our own gossip never boomerangs back through
// onDelta.
func (d *Dispatcher) Send(dl *delta.Delta) {
	d.seen.Add(dl.ID, struct{}{})
	if !d.limit.Allow() {
		return
	}
	payload := delta.Encode(dl)

	switch d.mode {
	case config.ReplicationBroadcast:
		d.queue.QueueBroadcast(broadcastMsg(payload))
	default: // Selective
		targets := d.ring.Responsible(dl.Key, d.rf)
		for _, addr := range targets {
			node := d.findNode(addr)
			if node == nil {
				continue
			}
			_ = d.ml.SendReliable(node, payload)
		}
	}
}

func (d *Dispatcher) findNode(addr string) *memberlist.Node {
	for _, m := range d.ml.Members() {
		if fmt.Sprintf("%s:%d", m.Addr, m.Port) == addr {
			return m
		}
	}
	return nil
}

// NodeMeta, GetBroadcasts, LocalState, and MergeRemoteState implement
// memberlist.Delegate; ridgekv carries no node metadata or bulk
// push/pull state beyond the gossiped deltas themselves.
func (d *Dispatcher) NodeMeta(limit int) []byte { return nil }

func (d *Dispatcher) GetBroadcasts(overhead, limit int) [][]byte {
	if d.queue == nil {
		return nil
	}
	return d.queue.GetBroadcasts(overhead, limit)
}

func (d *Dispatcher) LocalState(join bool) []byte { return nil }

func (d *Dispatcher) MergeRemoteState(buf []byte, join bool) {}

// NotifyMsg is memberlist.Delegate's inbound hook: every gossiped delta,
// from either Broadcast's retransmission or Selective's direct send,
// arrives here.
func (d *Dispatcher) NotifyMsg(msg []byte) {
	dl, err := delta.Decode(msg)
	if err != nil {
		return
	}
	if _, ok := d.seen.Get(dl.ID); ok {
		return
	}
	d.seen.Add(dl.ID, struct{}{})
	if d.onDelta != nil {
		d.onDelta(dl)
	}
}

type broadcastMsg []byte

func (b broadcastMsg) Invalidates(other memberlist.Broadcast) bool { return false }
func (b broadcastMsg) Message() []byte                             { return b }
func (b broadcastMsg) Finished()                                   {}
