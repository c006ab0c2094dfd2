package dst

import "testing"

func TestSeededRngDeterministic(t *testing.T) {
	a := NewSeededRng(42)
	b := NewSeededRng(42)
	for i := 0; i < 100; i++ {
		av, bv := a.Uint64(), b.Uint64()
		if av != bv {
			t.Fatalf("same seed diverged at draw %d: %d vs %d", i, av, bv)
		}
	}
}

func TestSeededRngDifferentSeedsDiverge(t *testing.T) {
	a := NewSeededRng(1)
	b := NewSeededRng(2)
	same := true
	for i := 0; i < 20; i++ {
		if a.Uint64() != b.Uint64() {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical streams")
	}
}

func TestSimulationClockOnlyMovesOnAdvance(t *testing.T) {
	c := NewSimulationClock()
	if c.Now() != 0 {
		t.Fatalf("expected clock to start at 0")
	}
	c.AdvanceBy(100)
	if c.Now() != 100 {
		t.Fatalf("expected 100, got %v", c.Now())
	}
	c.AdvanceTo(50)
	if c.Now() != 100 {
		t.Fatalf("AdvanceTo must not move clock backward, got %v", c.Now())
	}
	c.AdvanceTo(250)
	if c.Now() != 250 {
		t.Fatalf("expected 250, got %v", c.Now())
	}
}

func TestBuggifyDisabledNeverFires(t *testing.T) {
	b := NewBuggify(1.0, MultiplierDisabled)
	rng := NewSeededRng(7)
	for i := 0; i < 1000; i++ {
		if b.ShouldBuggify(rng, FaultPacketDrop) {
			t.Fatalf("disabled multiplier must never fire")
		}
	}
}

func TestBuggifySuppressPreventsFiring(t *testing.T) {
	b := NewBuggify(1.0, MultiplierChaos)
	restore := b.Suppress()
	rng := NewSeededRng(7)
	for i := 0; i < 100; i++ {
		if b.ShouldBuggify(rng, FaultPacketDrop) {
			t.Fatalf("suppressed section must never fire")
		}
	}
	restore()
	fired := false
	for i := 0; i < 100; i++ {
		if b.ShouldBuggify(rng, FaultPacketDrop) {
			fired = true
			break
		}
	}
	if !fired {
		t.Fatalf("expected at least one fault draw after restoring suppression at p=1.0")
	}
}

func TestBuggifySameSeedSameDraws(t *testing.T) {
	run := func(seed uint64) []bool {
		b := NewBuggify(0.5, MultiplierModerate)
		rng := NewSeededRng(seed)
		out := make([]bool, 50)
		for i := range out {
			out[i] = b.ShouldBuggify(rng, FaultGossipDrop)
		}
		return out
	}
	a, b := run(99), run(99)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %d diverged for identical seed", i)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	cat, ok := CategoryOf(FaultDiskFsyncFail)
	if !ok || cat != CategoryDisk {
		t.Fatalf("expected FaultDiskFsyncFail in CategoryDisk, got %v ok=%v", cat, ok)
	}
	if _, ok := CategoryOf("not-a-real-fault"); ok {
		t.Fatalf("expected unknown fault id to report ok=false")
	}
}
