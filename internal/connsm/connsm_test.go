package connsm

import (
	"testing"

	"github.com/dreamware/ridgekv/internal/acl"
	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/router"
)

func newTestConn() *Connection {
	r := router.NewRouter(4, clock.ReplicaID(1), 64)
	return NewConnection(r, acl.NewRegistry())
}

func cmd(name string, args ...string) command.Command {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return command.Parse(name, raw)
}

func TestPingWithoutAuth(t *testing.T) {
	c := newTestConn()
	reply, _ := c.Handle(cmd("PING"), 0)
	if reply.Str != "PONG" {
		t.Fatalf("PING = %+v", reply)
	}
}

func TestSetGetOutsideTransaction(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("SET", "k", "v"), 0)
	reply, _ := c.Handle(cmd("GET", "k"), 0)
	if string(reply.Bulk) != "v" {
		t.Fatalf("GET = %+v", reply)
	}
}

func TestMultiNestedRejected(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("MULTI"), 0)
	reply, _ := c.Handle(cmd("MULTI"), 0)
	if reply.Kind != command.RespError || reply.Str != "ERR MULTI calls can not be nested" {
		t.Fatalf("nested MULTI = %+v", reply)
	}
}

func TestQueuedCommandsRunOnExec(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("MULTI"), 0)
	r1, _ := c.Handle(cmd("SET", "a", "1"), 0)
	if r1.Str != "QUEUED" {
		t.Fatalf("queued SET = %+v", r1)
	}
	r2, _ := c.Handle(cmd("INCR", "ctr"), 0)
	if r2.Str != "QUEUED" {
		t.Fatalf("queued INCR = %+v", r2)
	}
	reply, deltas := c.Handle(cmd("EXEC"), 0)
	if reply.Kind != command.RespArray || len(reply.Array) != 2 {
		t.Fatalf("EXEC reply = %+v", reply)
	}
	if len(deltas) != 2 {
		t.Fatalf("EXEC deltas = %d, want 2", len(deltas))
	}
	if c.phase != Idle {
		t.Fatalf("phase after EXEC = %v, want Idle", c.phase)
	}

	got, _ := c.Handle(cmd("GET", "a"), 0)
	if string(got.Bulk) != "1" {
		t.Fatalf("GET a after EXEC = %+v", got)
	}
}

func TestExecWithoutMultiErrors(t *testing.T) {
	c := newTestConn()
	reply, _ := c.Handle(cmd("EXEC"), 0)
	if reply.Str != "ERR EXEC without MULTI" {
		t.Fatalf("EXEC without MULTI = %+v", reply)
	}
}

func TestDiscardWithoutMultiErrors(t *testing.T) {
	c := newTestConn()
	reply, _ := c.Handle(cmd("DISCARD"), 0)
	if reply.Str != "ERR DISCARD without MULTI" {
		t.Fatalf("DISCARD without MULTI = %+v", reply)
	}
}

func TestDiscardClearsQueue(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("MULTI"), 0)
	c.Handle(cmd("SET", "a", "1"), 0)
	reply, _ := c.Handle(cmd("DISCARD"), 0)
	if reply.Str != "OK" {
		t.Fatalf("DISCARD = %+v", reply)
	}
	if c.phase != Idle || len(c.txQueue) != 0 {
		t.Fatalf("state not reset after DISCARD: phase=%v queue=%v", c.phase, c.txQueue)
	}
}

func TestUnknownCommandInQueueAbortsTransaction(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("MULTI"), 0)
	queued, _ := c.Handle(cmd("BOGUSCMD"), 0)
	if queued.Kind != command.RespError {
		t.Fatalf("queueing unknown command should error immediately, got %+v", queued)
	}
	reply, _ := c.Handle(cmd("EXEC"), 0)
	if reply.Str != "EXECABORT Transaction discarded because of previous errors." {
		t.Fatalf("EXEC after bad queue = %+v", reply)
	}
}

func TestWatchInsideMultiRejected(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("MULTI"), 0)
	reply, _ := c.Handle(cmd("WATCH", "k"), 0)
	if reply.Str != "ERR WATCH inside MULTI is not allowed" {
		t.Fatalf("WATCH inside MULTI = %+v", reply)
	}
}

func TestWatchConflictAbortsExec(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("SET", "k", "1"), 0)
	c.Handle(cmd("WATCH", "k"), 0)

	c.Handle(cmd("MULTI"), 0)
	c.Handle(cmd("SET", "k", "2"), 0)

	// Simulate another connection mutating the watched key between WATCH
	// and EXEC by going through the same router directly.
	c.router.Dispatch(cmd("SET", "k", "interloper"), 0)

	reply, deltas := c.Handle(cmd("EXEC"), 0)
	if reply.Kind != command.RespArray || reply.Array != nil {
		t.Fatalf("EXEC after WATCH conflict should be nil array, got %+v", reply)
	}
	if deltas != nil {
		t.Fatalf("expected no deltas on aborted EXEC, got %v", deltas)
	}
	if c.phase != Idle || c.watched != nil {
		t.Fatalf("state not reset after WATCH conflict")
	}
}

func TestWatchNoConflictExecutes(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("SET", "k", "1"), 0)
	c.Handle(cmd("WATCH", "k"), 0)
	c.Handle(cmd("MULTI"), 0)
	c.Handle(cmd("SET", "k", "2"), 0)
	reply, _ := c.Handle(cmd("EXEC"), 0)
	if reply.Array == nil {
		t.Fatalf("EXEC should have executed, got nil array")
	}
	got, _ := c.Handle(cmd("GET", "k"), 0)
	if string(got.Bulk) != "2" {
		t.Fatalf("GET k after EXEC = %+v", got)
	}
}

func TestUnwatchClearsWatchSet(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("SET", "k", "1"), 0)
	c.Handle(cmd("WATCH", "k"), 0)
	c.Handle(cmd("UNWATCH"), 0)
	c.router.Dispatch(cmd("SET", "k", "interloper"), 0)
	c.Handle(cmd("MULTI"), 0)
	c.Handle(cmd("SET", "k", "2"), 0)
	reply, _ := c.Handle(cmd("EXEC"), 0)
	if reply.Array == nil {
		t.Fatalf("EXEC should succeed after UNWATCH, got nil array")
	}
}

func TestAuthGateBlocksUntilAuthenticatedWhenPasswordSet(t *testing.T) {
	r := router.NewRouter(4, clock.ReplicaID(1), 64)
	registry := acl.NewRegistry()
	registry.SetUser(&acl.User{
		Name: "default", Enabled: true, Password: "secret",
		Categories:  map[acl.Category]bool{acl.CategoryRead: true, acl.CategoryWrite: true},
		KeyPatterns: []string{"*"},
	})
	c := NewConnection(r, registry)

	reply, _ := c.Handle(cmd("GET", "k"), 0)
	if reply.Str != "NOAUTH Authentication required." {
		t.Fatalf("GET before AUTH = %+v", reply)
	}

	authReply, _ := c.Handle(cmd("AUTH", "secret"), 0)
	if authReply.Str != "OK" {
		t.Fatalf("AUTH = %+v", authReply)
	}
	reply2, _ := c.Handle(cmd("GET", "k"), 0)
	if reply2.Kind != command.RespBulkString {
		t.Fatalf("GET after AUTH = %+v", reply2)
	}
}

func TestAclSetUserRestrictsKeyPattern(t *testing.T) {
	c := newTestConn()
	c.Handle(cmd("ACL", "SETUSER", "limited", "on", ">pw", "~allowed:*", "+@read", "+@write"), 0)
	c.Handle(cmd("AUTH", "limited", "pw"), 0)

	ok, _ := c.Handle(cmd("SET", "allowed:1", "v"), 0)
	if ok.Str != "OK" {
		t.Fatalf("SET on allowed key = %+v", ok)
	}
	denied, _ := c.Handle(cmd("SET", "other:1", "v"), 0)
	if denied.Kind != command.RespError {
		t.Fatalf("SET on disallowed key should be denied, got %+v", denied)
	}
}

func TestAclWhoAmI(t *testing.T) {
	c := newTestConn()
	reply, _ := c.Handle(cmd("ACL", "WHOAMI"), 0)
	if string(reply.Bulk) != "default" {
		t.Fatalf("ACL WHOAMI = %+v", reply)
	}
}
