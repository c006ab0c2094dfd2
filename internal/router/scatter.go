package router

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
)

// scatterGatherOrdered handles MGET: each key's command.Kind is preserved,
// but it must be executed alone against its owning shard since a multi-key
// GET-family command isn't something the executor itself understands — it
// only ever sees single-key or whole-arg-list commands it was built for.
// Results come back in the caller's original key order regardless of which
// shard answered first.
func (r *Router) scatterGatherOrdered(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	out := make([]command.RespValue, len(cmd.Args))
	var wg sync.WaitGroup
	for i, k := range cmd.Args {
		i, key := i, string(k)
		wg.Add(1)
		go func() {
			defer wg.Done()
			single := command.Parse("GET", [][]byte{[]byte(key)})
			reply, _, _ := r.Route(single, key, now)
			out[i] = reply
		}()
	}
	wg.Wait()
	return command.Array(out), nil, nil
}

// scatterGatherAggregate handles commands whose reply is a single integer
// (or OK) aggregated across however many shards the key list touches:
// MSET/MSETNX split per-shard and apply the corresponding single-shard
// command; DEL/UNLINK/EXISTS sum each shard's count.
func (r *Router) scatterGatherAggregate(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	switch cmd.Kind {
	case command.KindDel, command.KindUnlink, command.KindExists:
		return r.aggregatePerKeyCount(cmd, now)
	case command.KindMSet:
		return r.scatterMSet(cmd, now, false)
	case command.KindMSetNX:
		return r.scatterMSet(cmd, now, true)
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

func (r *Router) aggregatePerKeyCount(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	byShard := make(map[int][][]byte)
	for _, k := range cmd.Args {
		idx := r.ShardIndex(string(k))
		byShard[idx] = append(byShard[idx], k)
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	var total int64
	var deltas []*delta.Delta
	for idx, keys := range byShard {
		idx, keys := idx, keys
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := command.Command{Name: cmd.Name, Kind: cmd.Kind, Args: keys}
			reply, d, _ := r.Shards[idx].Execute(sub, now)
			mu.Lock()
			defer mu.Unlock()
			total += reply.Int
			if d != nil {
				deltas = append(deltas, d)
			}
		}()
	}
	wg.Wait()
	return command.Integer(total), deltas, nil
}

// scatterMSet splits a flat key/value argument list by owning shard and
// applies MSET/MSETNX locally to each. MSETNX's all-or-nothing atomicity
// guarantee is necessarily per-shard once keys span more than one shard:
// spec.md documents cross-shard MSETNX as best-effort, matching how
// EVAL/EVALSHA is scoped to a single shard for the same reason.
func (r *Router) scatterMSet(cmd command.Command, now dst.VirtualTime, nx bool) (command.RespValue, []*delta.Delta, error) {
	byShard := make(map[int][][]byte)
	for i := 0; i+1 < len(cmd.Args); i += 2 {
		idx := r.ShardIndex(string(cmd.Args[i]))
		byShard[idx] = append(byShard[idx], cmd.Args[i], cmd.Args[i+1])
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	ok := int64(1)
	var deltas []*delta.Delta
	for idx, pairs := range byShard {
		idx, pairs := idx, pairs
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := command.Command{Name: cmd.Name, Kind: cmd.Kind, Args: pairs}
			reply, d, _ := r.Shards[idx].Execute(sub, now)
			mu.Lock()
			defer mu.Unlock()
			if nx && reply.Int == 0 {
				ok = 0
			}
			if d != nil {
				deltas = append(deltas, d)
			}
		}()
	}
	wg.Wait()
	if nx {
		return command.Integer(ok), deltas, nil
	}
	return command.OK, deltas, nil
}

// scatterGatherSetOp runs SINTER/SUNION/SDIFF locally against each key's
// owning shard (each as a single-key SMEMBERS), then recombines the member
// sets the way the single-shard executor's setOp would have.
func (r *Router) scatterGatherSetOp(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	sets := make([]map[string]struct{}, len(cmd.Args))
	var wg sync.WaitGroup
	for i, k := range cmd.Args {
		i, key := i, string(k)
		wg.Add(1)
		go func() {
			defer wg.Done()
			single := command.Parse("SMEMBERS", [][]byte{[]byte(key)})
			reply, _, _ := r.Route(single, key, now)
			m := make(map[string]struct{}, len(reply.Array))
			for _, item := range reply.Array {
				m[string(item.Bulk)] = struct{}{}
			}
			sets[i] = m
		}()
	}
	wg.Wait()

	var combined []string
	switch cmd.Kind {
	case command.KindSInter:
		combined = intersect(sets)
	case command.KindSUnion:
		combined = union(sets)
	case command.KindSDiff:
		combined = diff(sets)
	}
	out := make([]command.RespValue, len(combined))
	for i, m := range combined {
		out[i] = command.BulkString([]byte(m))
	}
	return command.Array(out), nil, nil
}

func intersect(sets []map[string]struct{}) []string {
	if len(sets) == 0 {
		return nil
	}
	var out []string
	for m := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if _, ok := other[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func union(sets []map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for _, m := range sets {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func diff(sets []map[string]struct{}) []string {
	if len(sets) == 0 {
		return nil
	}
	var out []string
	for m := range sets[0] {
		inOther := false
		for _, other := range sets[1:] {
			if _, ok := other[m]; ok {
				inOther = true
				break
			}
		}
		if !inOther {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// fanOutKeys runs KEYS against every shard and concatenates the matches.
func (r *Router) fanOutKeys(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	results := make([][]command.RespValue, len(r.Shards))
	var wg sync.WaitGroup
	for i := range r.Shards {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, _, _ := r.Shards[i].Execute(cmd, now)
			results[i] = reply.Array
		}()
	}
	wg.Wait()
	var out []command.RespValue
	for _, shardKeys := range results {
		out = append(out, shardKeys...)
	}
	return command.Array(out), nil, nil
}

// fanOutDBSize sums DBSIZE across every shard.
func (r *Router) fanOutDBSize(now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	var total int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range r.Shards {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, _, _ := r.Shards[i].Execute(command.Parse("DBSIZE", nil), now)
			mu.Lock()
			total += reply.Int
			mu.Unlock()
		}()
	}
	wg.Wait()
	return command.Integer(total), nil, nil
}

// fanOutFlush runs FLUSHDB/FLUSHALL against every shard.
func (r *Router) fanOutFlush(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	var wg sync.WaitGroup
	for i := range r.Shards {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Shards[i].Execute(cmd, now)
		}()
	}
	wg.Wait()
	return command.OK, nil, nil
}

// cursor is the opaque SCAN cursor this router hands to clients: a shard
// index plus that shard's own local cursor (a plain numeric offset, per
// internal/executor's scan), base64-encoded so clients can't depend on its
// internal shape.
type cursor struct {
	shardIndex int
	shardCur   string
}

func encodeCursor(c cursor) string {
	raw := strconv.Itoa(c.shardIndex) + ":" + c.shardCur
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, bool) {
	if s == "0" {
		return cursor{shardIndex: 0, shardCur: "0"}, true
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return cursor{}, false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return cursor{}, false
	}
	return cursor{shardIndex: idx, shardCur: parts[1]}, true
}

// scanAcrossShards advances SCAN's opaque cursor through shards in index
// order: it exhausts shard N's local cursor space before moving to shard
// N+1, so a full walk from "0" visits every key exactly once.
func (r *Router) scanAcrossShards(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	if len(cmd.Args) < 1 {
		return command.ErrWrongNumArgs("scan").Resp(), nil, nil
	}
	c, ok := decodeCursor(string(cmd.Args[0]))
	if !ok {
		return command.ErrSyntax.Resp(), nil, nil
	}
	if c.shardIndex >= len(r.Shards) {
		return command.Array([]command.RespValue{
			command.BulkString([]byte("0")),
			command.Array(nil),
		}), nil, nil
	}

	localArgs := append([][]byte{[]byte(c.shardCur)}, cmd.Args[1:]...)
	local := command.Command{Name: "SCAN", Kind: command.KindScan, Args: localArgs}
	reply, _, _ := r.Shards[c.shardIndex].Execute(local, now)

	nextShardCur := string(reply.Array[0].Bulk)
	var nextCursorStr string
	if nextShardCur != "0" {
		nextCursorStr = encodeCursor(cursor{shardIndex: c.shardIndex, shardCur: nextShardCur})
	} else if c.shardIndex+1 < len(r.Shards) {
		nextCursorStr = encodeCursor(cursor{shardIndex: c.shardIndex + 1, shardCur: "0"})
	} else {
		nextCursorStr = "0"
	}

	return command.Array([]command.RespValue{
		command.BulkString([]byte(nextCursorStr)),
		reply.Array[1],
	}), nil, nil
}
