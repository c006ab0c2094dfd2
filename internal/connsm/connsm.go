// Package connsm implements the per-connection state machine: it owns one
// client's transaction queue, WATCH snapshots, and authenticated identity,
// translating RESP-parsed commands into dispatches against a Router while
// enforcing MULTI/EXEC/WATCH semantics the shard executor deliberately
// knows nothing about. Structured after the teacher's Node struct in
// cmd/node/main.go: mutable state behind a mutex, an explicit phase field.
package connsm

import (
	"sync"

	"github.com/dreamware/ridgekv/internal/acl"
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/router"
)

// Phase is the connection's transaction state.
type Phase int

const (
	// Idle accepts any command and dispatches it immediately.
	Idle Phase = iota
	// Queuing accepts MULTI-opened commands onto the tx queue instead of
	// executing them, until EXEC, DISCARD, or a queue-time error.
	Queuing
)

// watchedKey pairs a key with the RespValue snapshot taken when it was
// watched; EXEC re-reads each key and compares structurally, per spec.md's
// documented value-snapshot divergence from per-key dirty tracking.
type watchedKey struct {
	key      string
	snapshot command.RespValue
}

// Connection owns one client's transactional and authentication state. It
// is not safe for concurrent use from more than one goroutine at a time —
// a connection is inherently single-threaded (one client, one command
// pipeline), so the mutex here only guards against the rare case of a
// background AUTH/ACL admin call touching AuthUser concurrently with the
// read loop.
type Connection struct {
	mu        sync.Mutex
	phase     Phase
	txQueue   []command.Command
	txErrored bool
	watched   []watchedKey
	AuthUser  *acl.User

	router *router.Router
	users  *acl.Registry
}

// NewConnection returns a fresh, unauthenticated, Idle connection bound to
// r for dispatch and registry for AUTH/ACL lookups.
func NewConnection(r *router.Router, registry *acl.Registry) *Connection {
	return &Connection{router: r, users: registry}
}

// Handle is the single entry point the RESP server calls per parsed
// command; it returns the reply to write back and any replication deltas
// produced (for EXEC, one per queued command that produced a delta, in
// queue order).
func (c *Connection) Handle(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// MULTI/WATCH/DISCARD/EXEC are the only commands with dedicated
	// Queuing-phase transitions — every other command, including
	// connection/auth commands, is queued like any other while Queuing.
	switch cmd.Kind {
	case command.KindMulti:
		return c.multi(), nil
	case command.KindWatch:
		return c.watch(cmd, now), nil
	case command.KindDiscard:
		return c.discard(), nil
	case command.KindExec:
		return c.exec(now)
	}

	if c.phase == Queuing {
		return c.queue(cmd), nil
	}
	return c.dispatchOne(cmd, now)
}

// dispatchOne runs a single command once transaction-queuing decisions are
// already settled: used directly from Idle, and from exec's queue drain so
// queued AUTH/ACL/PING commands behave identically to unqueued ones instead
// of falling straight through to the router.
func (c *Connection) dispatchOne(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta) {
	if reply, handled := c.handleConnectionLevel(cmd); handled {
		return reply, nil
	}
	if reply, handled := c.authGate(cmd); handled {
		return reply, nil
	}
	if cmd.Kind == command.KindUnwatch {
		return c.unwatch(), nil
	}
	reply, deltas, _ := c.router.Dispatch(cmd, now)
	return reply, deltas
}

func (c *Connection) multi() command.RespValue {
	if c.phase == Queuing {
		return (&command.RedisError{Prefix: "ERR", Message: "MULTI calls can not be nested"}).Resp()
	}
	c.phase = Queuing
	c.txQueue = nil
	c.txErrored = false
	return command.OK
}

func (c *Connection) watch(cmd command.Command, now dst.VirtualTime) command.RespValue {
	if c.phase == Queuing {
		return (&command.RedisError{Prefix: "ERR", Message: "WATCH inside MULTI is not allowed"}).Resp()
	}
	if len(cmd.Args) == 0 {
		return command.ErrWrongNumArgs("watch").Resp()
	}
	for _, k := range cmd.Args {
		key := string(k)
		snapshot, _, _ := c.router.Dispatch(command.Parse("GET", [][]byte{k}), now)
		c.watched = append(c.watched, watchedKey{key: key, snapshot: snapshot})
	}
	return command.OK
}

func (c *Connection) unwatch() command.RespValue {
	c.watched = nil
	return command.OK
}

func (c *Connection) discard() command.RespValue {
	if c.phase != Queuing {
		return (&command.RedisError{Prefix: "ERR", Message: "DISCARD without MULTI"}).Resp()
	}
	c.phase = Idle
	c.txQueue = nil
	c.txErrored = false
	c.watched = nil
	return command.OK
}

// queue appends cmd to the transaction queue; it never runs the command,
// so arity/type errors aren't known until EXEC processes it — but an
// unrecognized command name is caught here and marks the transaction
// errored, matching real Redis's queue-time syntax check.
func (c *Connection) queue(cmd command.Command) command.RespValue {
	if cmd.Kind == command.KindUnknown {
		c.txErrored = true
		return command.ErrUnknownCommand(cmd.Name).Resp()
	}
	c.txQueue = append(c.txQueue, cmd)
	return command.SimpleString("QUEUED")
}

func (c *Connection) exec(now dst.VirtualTime) (command.RespValue, []*delta.Delta) {
	if c.phase != Queuing {
		return (&command.RedisError{Prefix: "ERR", Message: "EXEC without MULTI"}).Resp(), nil
	}
	if c.txErrored {
		c.resetTx()
		return command.ErrExecAbort.Resp(), nil
	}

	for _, w := range c.watched {
		current, _, _ := c.router.Dispatch(command.Parse("GET", [][]byte{[]byte(w.key)}), now)
		if !current.Equal(w.snapshot) {
			c.resetTx()
			return command.NilArray(), nil
		}
	}

	queue := c.txQueue
	c.resetTx()

	results := make([]command.RespValue, len(queue))
	var allDeltas []*delta.Delta
	for i, queued := range queue {
		reply, deltas := c.dispatchOne(queued, now)
		results[i] = reply
		allDeltas = append(allDeltas, deltas...)
	}
	return command.Array(results), allDeltas
}

func (c *Connection) resetTx() {
	c.phase = Idle
	c.txQueue = nil
	c.txErrored = false
	c.watched = nil
}
