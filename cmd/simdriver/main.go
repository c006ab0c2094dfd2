// Package main implements the DST (deterministic simulation testing)
// harness: it runs seeded two-replica convergence scenarios against the
// real router/executor/replication code, with no network or real time
// involved, and prints the failing seed so a run can be reproduced
// exactly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/router"
	"github.com/dreamware/ridgekv/internal/value"
)

func main() {
	seed := flag.Uint64("seed", 0, "run a single scenario at this seed instead of a sweep")
	runs := flag.Int("runs", 200, "number of seeded scenarios to run")
	ops := flag.Int("ops", 50, "operations per replica per scenario")
	flag.Parse()

	if *seed != 0 {
		if err := runScenario(*seed, *ops); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL seed=%d: %v\n", *seed, err)
			os.Exit(1)
		}
		fmt.Printf("OK seed=%d\n", *seed)
		return
	}

	for i := 0; i < *runs; i++ {
		s := uint64(i + 1)
		if err := runScenario(s, *ops); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL seed=%d: %v\n", s, err)
			os.Exit(1)
		}
	}
	fmt.Printf("OK: %d scenarios passed\n", *runs)
}

// runScenario drives two single-shard replicas (A and B) through a
// random interleaving of mutating commands, exchanging deltas with
// probabilistic drops along the way (simulating a lossy gossip network),
// then performs one final lossless exchange (standing in for anti-entropy
// catching up a partition) and asserts both replicas converge to the
// same keyspace. Any divergence is a bug in CRDT merge or in the
// executor's delta generation.
func runScenario(seed uint64, ops int) error {
	rng := dst.NewSeededRng(seed)
	buggify := dst.NewBuggify(0.1, dst.MultiplierModerate)

	a := router.NewRouter(1, clock.ReplicaID(1), 64)
	b := router.NewRouter(1, clock.ReplicaID(2), 64)

	var now dst.VirtualTime
	var aPending, bPending []*delta.Delta

	for i := 0; i < ops; i++ {
		now = now.Add(1)
		cmd := randomCommand(rng, i)

		_, deltasA, err := a.Dispatch(cmd, now)
		if err != nil {
			return fmt.Errorf("replica A dispatch %v: %w", cmd.Name, err)
		}
		_, deltasB, err := b.Dispatch(cmd, now)
		if err != nil {
			return fmt.Errorf("replica B dispatch %v: %w", cmd.Name, err)
		}
		aPending = append(aPending, deltasA...)
		bPending = append(bPending, deltasB...)

		if buggify.ShouldBuggify(rng, dst.FaultGossipDrop) {
			continue // simulate a dropped gossip round entirely
		}
		if err := exchange(a, aPending, buggify, rng); err != nil {
			return err
		}
		if err := exchange(b, bPending, buggify, rng); err != nil {
			return err
		}
		aPending, bPending = nil, nil
	}

	// Final lossless exchange: whatever never made it across gets
	// delivered now, standing in for anti-entropy repair after a
	// partition heals.
	if err := exchange(b, aPending, buggify, rng); err != nil {
		return err
	}
	if err := exchange(a, bPending, buggify, rng); err != nil {
		return err
	}

	return assertConverged(a, b)
}

// exchange applies each delta in pending to target's shard 0,
// independently dropping individual deltas per buggify to model
// unreliable delivery — CRDT merge guarantees convergence is still
// reached once the final lossless exchange runs.
func exchange(target *router.Router, pending []*delta.Delta, buggify *dst.Buggify, rng dst.Rng) error {
	for _, d := range pending {
		if buggify.ShouldBuggify(rng, dst.FaultGossipDrop) {
			continue
		}
		if err := target.ApplyDelta(d); err != nil {
			return fmt.Errorf("apply delta for %q: %w", d.Key, err)
		}
	}
	return nil
}

func assertConverged(a, b *router.Router) error {
	sa, sb := a.Shards[0].State, b.Shards[0].State
	if len(sa.Data) != len(sb.Data) {
		return fmt.Errorf("diverged: replica A has %d keys, replica B has %d", len(sa.Data), len(sb.Data))
	}
	for k, va := range sa.Data {
		vb, ok := sb.Data[k]
		if !ok {
			return fmt.Errorf("diverged: key %q present on A, missing on B", k)
		}
		if !valuesEqual(va, vb) {
			return fmt.Errorf("diverged: key %q has different values on A and B", k)
		}
	}
	return nil
}

// valuesEqual compares the two kinds of values the scenario's commands
// can produce (strings from SET/INCR, sets from SADD); it is not a
// general-purpose Value comparator.
func valuesEqual(a, b *value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.KindString:
		return string(a.Str) == string(b.Str)
	case value.KindSet:
		if len(a.Set) != len(b.Set) {
			return false
		}
		for m := range a.Set {
			if _, ok := b.Set[m]; !ok {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func randomCommand(rng dst.Rng, i int) command.Command {
	key := fmt.Sprintf("k%d", rng.IntN(8))
	switch rng.IntN(3) {
	case 0:
		return command.Parse("SET", [][]byte{[]byte(key), []byte(fmt.Sprintf("v%d", i))})
	case 1:
		return command.Parse("INCR", [][]byte{[]byte(key)})
	default:
		return command.Parse("SADD", [][]byte{[]byte(key), []byte(fmt.Sprintf("m%d", i))})
	}
}
