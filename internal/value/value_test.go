package value

import "testing"

func TestSortedSetBasics(t *testing.T) {
	v := NewSortedSet()

	t.Run("zadd reports new vs updated", func(t *testing.T) {
		if !v.ZAdd("a", 1) {
			t.Fatalf("expected new member to report true")
		}
		if v.ZAdd("a", 2) {
			t.Fatalf("expected existing member update to report false")
		}
		score, ok := v.ZScore("a")
		if !ok || score != 2 {
			t.Fatalf("expected updated score 2, got %v ok=%v", score, ok)
		}
	})

	t.Run("range by index ascending", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		v.ZAdd("b", 2)
		v.ZAdd("c", 3)
		got := v.ZRangeByIndex(0, -1, false)
		if len(got) != 3 || got[0].Member != "a" || got[2].Member != "c" {
			t.Fatalf("unexpected order: %+v", got)
		}
	})

	t.Run("range by index reversed", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		v.ZAdd("b", 2)
		v.ZAdd("c", 3)
		got := v.ZRangeByIndex(0, 0, true)
		if len(got) != 1 || got[0].Member != "c" {
			t.Fatalf("expected top member c first, got %+v", got)
		}
	})

	t.Run("rank is ascending", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 5)
		v.ZAdd("b", 1)
		rank, ok := v.ZRank("b")
		if !ok || rank != 0 {
			t.Fatalf("expected rank 0 for lowest score, got %d ok=%v", rank, ok)
		}
	})

	t.Run("zrem deletes and reports membership", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		if !v.ZRem("a") {
			t.Fatalf("expected removal to report true")
		}
		if v.ZRem("a") {
			t.Fatalf("expected second removal to report false")
		}
		if !v.IsEmpty() {
			t.Fatalf("expected empty sorted set after removing only member")
		}
	})

	t.Run("member and score arrays stay equal length", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		v.ZAdd("b", 2)
		v.ZRem("a")
		if v.ZCard() != len(v.Score) {
			t.Fatalf("zset/score length mismatch: %d vs %d", v.ZCard(), len(v.Score))
		}
	})

	t.Run("zpopmin removes lowest scores", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 3)
		v.ZAdd("b", 1)
		v.ZAdd("c", 2)
		popped := v.ZPopMin(2)
		if len(popped) != 2 || popped[0].Member != "b" || popped[1].Member != "c" {
			t.Fatalf("unexpected pop order: %+v", popped)
		}
		if v.ZCard() != 1 {
			t.Fatalf("expected 1 member left, got %d", v.ZCard())
		}
	})

	t.Run("range by score is inclusive by default", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		v.ZAdd("b", 2)
		v.ZAdd("c", 3)
		got := v.ZRangeByScore(1, 2, false, false)
		if len(got) != 2 {
			t.Fatalf("expected 2 members in [1,2], got %d", len(got))
		}
	})

	t.Run("range by score excludes bounds when requested", func(t *testing.T) {
		v := NewSortedSet()
		v.ZAdd("a", 1)
		v.ZAdd("b", 2)
		v.ZAdd("c", 3)
		got := v.ZRangeByScore(1, 3, true, true)
		if len(got) != 1 || got[0].Member != "b" {
			t.Fatalf("expected only b, got %+v", got)
		}
	})
}

func TestListSetHashEmptiness(t *testing.T) {
	t.Run("new list is empty", func(t *testing.T) {
		v := NewList()
		if !v.IsEmpty() {
			t.Fatalf("expected new list to be empty")
		}
		v.List.PushBack("x")
		if v.IsEmpty() {
			t.Fatalf("expected non-empty list after push")
		}
	})

	t.Run("new set is empty", func(t *testing.T) {
		v := NewSet()
		if !v.IsEmpty() {
			t.Fatalf("expected new set to be empty")
		}
	})

	t.Run("empty string value is not considered empty", func(t *testing.T) {
		v := NewString([]byte(""))
		if v.IsEmpty() {
			t.Fatalf("an empty string is still a present value")
		}
	})
}
