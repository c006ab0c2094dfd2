package main

import (
	"testing"

	"github.com/dreamware/ridgekv/internal/value"
)

func TestRunScenarioConvergesForFixedSeeds(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 42, 1000} {
		if err := runScenario(seed, 30); err != nil {
			t.Fatalf("seed=%d: %v", seed, err)
		}
	}
}

func TestValuesEqualComparesStringsAndSets(t *testing.T) {
	a := value.NewString([]byte("same"))
	b := value.NewString([]byte("same"))
	if !valuesEqual(a, b) {
		t.Fatal("equal strings should compare equal")
	}
	c := value.NewString([]byte("different"))
	if valuesEqual(a, c) {
		t.Fatal("different strings should not compare equal")
	}
}
