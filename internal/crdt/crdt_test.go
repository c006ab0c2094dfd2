package crdt

import (
	"testing"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/google/uuid"
)

func TestLwwRegisterMergeLaws(t *testing.T) {
	a := NewLwwRegister("a", clock.LamportClock{Time: 1, ReplicaID: 1})
	b := NewLwwRegister("b", clock.LamportClock{Time: 2, ReplicaID: 2})
	c := NewLwwRegister("c", clock.LamportClock{Time: 3, ReplicaID: 3})

	t.Run("commutative", func(t *testing.T) {
		if a.Merge(b) != b.Merge(a) {
			t.Fatalf("merge(a,b) != merge(b,a)")
		}
	})

	t.Run("associative", func(t *testing.T) {
		left := a.Merge(b).Merge(c)
		right := a.Merge(b.Merge(c))
		if left != right {
			t.Fatalf("merge(merge(a,b),c) != merge(a,merge(b,c)): %v vs %v", left, right)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		if a.Merge(a) != a {
			t.Fatalf("merge(a,a) != a")
		}
	})

	t.Run("higher timestamp wins", func(t *testing.T) {
		if a.Merge(c).Value != "c" {
			t.Fatalf("expected higher-timestamp value to win")
		}
	})
}

func TestGCounterMergeLaws(t *testing.T) {
	mk := func(r1, r2 uint64) *GCounter {
		c := NewGCounter()
		c.Increment(1, r1)
		c.Increment(2, r2)
		return c
	}

	t.Run("commutative", func(t *testing.T) {
		a, b := mk(3, 1), mk(1, 5)
		left := mk(3, 1).Merge(b).Value()
		right := mk(1, 5).Merge(a).Value()
		if left != right {
			t.Fatalf("merge not commutative: %d vs %d", left, right)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		a := mk(3, 1)
		before := a.Value()
		a.Merge(mk(3, 1))
		if a.Value() != before {
			t.Fatalf("merge with equal state changed value: %d -> %d", before, a.Value())
		}
	})

	t.Run("associative", func(t *testing.T) {
		a, b, c := mk(1, 0), mk(0, 2), mk(4, 4)
		left := mk(1, 0).Merge(b).Merge(c).Value()
		right := mk(1, 0).Merge(mk(0, 2).Merge(c)).Value()
		if left != right {
			t.Fatalf("merge not associative: %d vs %d", left, right)
		}
		_ = a
	})

	t.Run("value is sum of entries", func(t *testing.T) {
		c := mk(3, 4)
		if c.Value() != 7 {
			t.Fatalf("expected 7, got %d", c.Value())
		}
	})
}

func TestPNCounterIncrementDecrement(t *testing.T) {
	c := NewPNCounter()
	c.Increment(1, 10)
	c.Decrement(1, 3)
	if c.Value() != 7 {
		t.Fatalf("expected 7, got %d", c.Value())
	}

	other := NewPNCounter()
	other.Increment(2, 5)
	other.Decrement(2, 1)
	c.Merge(other)
	if c.Value() != 11 {
		t.Fatalf("expected 11 after merge, got %d", c.Value())
	}
}

func TestGSetMergeLaws(t *testing.T) {
	mk := func(vs ...int) *GSet[int] {
		s := NewGSet[int]()
		for _, v := range vs {
			s.Add(v)
		}
		return s
	}

	t.Run("commutative", func(t *testing.T) {
		a, b := mk(1, 2), mk(2, 3)
		left := mk(1, 2).Merge(b).Members()
		right := mk(2, 3).Merge(a).Members()
		if len(left) != len(right) {
			t.Fatalf("merge not commutative: %v vs %v", left, right)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		a := mk(1, 2, 3)
		a.Merge(mk(1, 2, 3))
		if len(a.Members()) != 3 {
			t.Fatalf("expected 3 members, got %d", len(a.Members()))
		}
	})
}

func TestORSetAddWinsOverConcurrentRemove(t *testing.T) {
	// Replica A adds "x", replica B concurrently (without observing A's
	// add) also adds "x" under a different tag, then replica A removes the
	// tag it knows about. After merge, "x" must still be present because
	// B's add-tag was never observed by A's remove.
	a := NewORSet[string]()
	tagA := uuid.New()
	a.AddWithTag("x", tagA)

	b := NewORSet[string]()
	tagB := uuid.New()
	b.AddWithTag("x", tagB)

	a.Remove("x")

	a.Merge(b)

	if !a.Contains("x") {
		t.Fatalf("add-wins: concurrent add must survive a remove that never observed it")
	}
}

func TestORSetRemoveWinsWhenTagObserved(t *testing.T) {
	a := NewORSet[string]()
	a.Add("x")
	b := NewORSet[string]()
	b.Merge(a)
	a.Remove("x")

	a.Merge(b)
	if a.Contains("x") {
		t.Fatalf("expected x removed once its only add-tag was tombstoned")
	}
}

func TestORSetMergeIsIdempotent(t *testing.T) {
	a := NewORSet[string]()
	a.Add("x")
	a.Add("y")
	before := len(a.Members())
	a.Merge(a)
	if len(a.Members()) != before {
		t.Fatalf("self-merge changed member count: %d -> %d", before, len(a.Members()))
	}
}
