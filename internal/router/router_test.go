package router

import (
	"testing"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/command"
)

func newTestRouter(numShards int) *Router {
	return NewRouter(numShards, clock.ReplicaID(1), 64)
}

func cmd(name string, args ...string) command.Command {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return command.Parse(name, raw)
}

func TestRouteIsStableForSameKey(t *testing.T) {
	r := newTestRouter(8)
	first := r.ShardIndex("user:42")
	for i := 0; i < 10; i++ {
		if got := r.ShardIndex("user:42"); got != first {
			t.Fatalf("ShardIndex not stable: got %d, want %d", got, first)
		}
	}
}

func TestDispatchSetGetSingleKey(t *testing.T) {
	r := newTestRouter(4)
	_, deltas, err := r.Dispatch(cmd("SET", "k", "v"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(deltas) != 1 {
		t.Fatalf("expected one delta from SET, got %d", len(deltas))
	}
	reply, _, _ := r.Dispatch(cmd("GET", "k"), 0)
	if string(reply.Bulk) != "v" {
		t.Fatalf("GET = %q, want %q", reply.Bulk, "v")
	}
}

func TestMGetPreservesRequestOrder(t *testing.T) {
	r := newTestRouter(4)
	r.Dispatch(cmd("SET", "a", "1"), 0)
	r.Dispatch(cmd("SET", "b", "2"), 0)
	r.Dispatch(cmd("SET", "c", "3"), 0)
	reply, _, _ := r.Dispatch(cmd("MGET", "c", "missing", "a", "b"), 0)
	want := []string{"3", "", "1", "2"}
	if len(reply.Array) != len(want) {
		t.Fatalf("MGET len = %d, want %d", len(reply.Array), len(want))
	}
	for i, w := range want {
		if i == 1 {
			if reply.Array[i].Bulk != nil {
				t.Fatalf("index 1 should be nil bulk, got %q", reply.Array[i].Bulk)
			}
			continue
		}
		if string(reply.Array[i].Bulk) != w {
			t.Fatalf("index %d = %q, want %q", i, reply.Array[i].Bulk, w)
		}
	}
}

func TestMSetSpansMultipleShards(t *testing.T) {
	r := newTestRouter(4)
	reply, _, _ := r.Dispatch(cmd("MSET", "a", "1", "b", "2", "c", "3"), 0)
	if reply.Kind != command.RespSimpleString || reply.Str != "OK" {
		t.Fatalf("MSET reply = %+v", reply)
	}
	for _, pair := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		got, _, _ := r.Dispatch(cmd("GET", pair[0]), 0)
		if string(got.Bulk) != pair[1] {
			t.Fatalf("GET %s = %q, want %q", pair[0], got.Bulk, pair[1])
		}
	}
}

func TestDelAggregatesAcrossShards(t *testing.T) {
	r := newTestRouter(4)
	r.Dispatch(cmd("MSET", "a", "1", "b", "2", "c", "3"), 0)
	reply, _, _ := r.Dispatch(cmd("DEL", "a", "b", "c", "missing"), 0)
	if reply.Int != 3 {
		t.Fatalf("DEL count = %d, want 3", reply.Int)
	}
}

func TestDBSizeSumsAcrossShards(t *testing.T) {
	r := newTestRouter(4)
	r.Dispatch(cmd("MSET", "a", "1", "b", "2", "c", "3", "d", "4"), 0)
	reply, _, _ := r.Dispatch(cmd("DBSIZE"), 0)
	if reply.Int != 4 {
		t.Fatalf("DBSIZE = %d, want 4", reply.Int)
	}
}

func TestScanVisitsEveryKeyExactlyOnceAcrossShards(t *testing.T) {
	r := newTestRouter(4)
	const n = 40
	for i := 0; i < n; i++ {
		r.Dispatch(cmd("SET", "k"+itoa(i), "v"), 0)
	}
	seen := make(map[string]bool)
	c := "0"
	for {
		reply, _, _ := r.Dispatch(cmd("SCAN", c), 0)
		c = string(reply.Array[0].Bulk)
		for _, item := range reply.Array[1].Array {
			k := string(item.Bulk)
			if seen[k] {
				t.Fatalf("key %s visited twice", k)
			}
			seen[k] = true
		}
		if c == "0" {
			break
		}
	}
	if len(seen) != n {
		t.Fatalf("SCAN visited %d keys, want %d", len(seen), n)
	}
}

func TestSetOpsAcrossShards(t *testing.T) {
	r := newTestRouter(4)
	r.Dispatch(cmd("SADD", "sa", "x", "y"), 0)
	r.Dispatch(cmd("SADD", "sb", "y", "z"), 0)
	reply, _, _ := r.Dispatch(cmd("SINTER", "sa", "sb"), 0)
	if len(reply.Array) != 1 || string(reply.Array[0].Bulk) != "y" {
		t.Fatalf("SINTER = %+v, want [y]", reply.Array)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
