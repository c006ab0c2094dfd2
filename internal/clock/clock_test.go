package clock

import "testing"

func TestLamportClock(t *testing.T) {
	t.Run("tick advances monotonically", func(t *testing.T) {
		c := NewLamportClock(1)
		c1 := c.Tick()
		c2 := c1.Tick()
		if c1.Time != 1 || c2.Time != 2 {
			t.Fatalf("expected 1,2 got %d,%d", c1.Time, c2.Time)
		}
	})

	t.Run("update takes max plus one", func(t *testing.T) {
		local := LamportClock{Time: 3, ReplicaID: 1}
		remote := LamportClock{Time: 10, ReplicaID: 2}
		got := local.Update(remote)
		if got.Time != 11 {
			t.Fatalf("expected time 11, got %d", got.Time)
		}
		if got.ReplicaID != 1 {
			t.Fatalf("update must not change owning replica id")
		}
	})

	t.Run("update when local is ahead still advances", func(t *testing.T) {
		local := LamportClock{Time: 10, ReplicaID: 1}
		remote := LamportClock{Time: 2, ReplicaID: 2}
		got := local.Update(remote)
		if got.Time != 11 {
			t.Fatalf("expected time 11, got %d", got.Time)
		}
	})

	t.Run("total order tiebreaks on replica id", func(t *testing.T) {
		a := LamportClock{Time: 5, ReplicaID: 1}
		b := LamportClock{Time: 5, ReplicaID: 2}
		if !a.Less(b) {
			t.Fatalf("expected a < b on replica id tiebreak")
		}
		if b.Less(a) {
			t.Fatalf("expected b not less than a")
		}
	})
}

func TestVectorClock(t *testing.T) {
	t.Run("merge is elementwise max", func(t *testing.T) {
		a := VectorClock{1: 3, 2: 1}
		b := VectorClock{1: 1, 2: 5, 3: 2}
		m := a.Merge(b)
		want := VectorClock{1: 3, 2: 5, 3: 2}
		if !m.Equal(want) {
			t.Fatalf("got %v want %v", m, want)
		}
	})

	t.Run("tick only advances own entry", func(t *testing.T) {
		a := VectorClock{1: 3, 2: 1}
		next := a.Tick(1)
		if next[1] != 4 || next[2] != 1 {
			t.Fatalf("unexpected tick result %v", next)
		}
		if a[1] != 3 {
			t.Fatalf("tick mutated receiver")
		}
	})

	t.Run("happens before", func(t *testing.T) {
		a := VectorClock{1: 1, 2: 1}
		b := VectorClock{1: 2, 2: 1}
		if !a.HappensBefore(b) {
			t.Fatalf("expected a happens-before b")
		}
		if b.HappensBefore(a) {
			t.Fatalf("b must not happen-before a")
		}
	})

	t.Run("concurrent clocks are neither before the other", func(t *testing.T) {
		a := VectorClock{1: 2, 2: 0}
		b := VectorClock{1: 0, 2: 2}
		if !a.Concurrent(b) {
			t.Fatalf("expected concurrent clocks")
		}
		if a.HappensBefore(b) || b.HappensBefore(a) {
			t.Fatalf("concurrent clocks must not happen-before each other")
		}
	})

	t.Run("equal clock is not concurrent with itself", func(t *testing.T) {
		a := VectorClock{1: 2, 2: 3}
		b := a.Clone()
		if a.Concurrent(b) {
			t.Fatalf("identical clocks must not be concurrent")
		}
	})
}
