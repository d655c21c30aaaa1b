package randx_test

import (
	"math/rand"
	"testing"
	"time"

	"corpuslab/atogen/internal/randx"
)

func TestBetween_StaysInclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seenLo, seenHi := false, false
	for i := 0; i < 1000; i++ {
		n := randx.Between(rng, 3, 5)
		if n < 3 || n > 5 {
			t.Fatalf("Between(3,5) = %d", n)
		}
		seenLo = seenLo || n == 3
		seenHi = seenHi || n == 5
	}
	if !seenLo || !seenHi {
		t.Error("expected both bounds to be drawn")
	}
	if got := randx.Between(rng, 7, 2); got != 7 {
		t.Errorf("inverted range should return lo, got %d", got)
	}
}

func TestSample_DistinctAndClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	xs := []string{"a", "b", "c", "d"}
	got := randx.Sample(rng, xs, 10)
	if len(got) != 4 {
		t.Fatalf("expected clamp to 4, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s] {
			t.Errorf("duplicate %s", s)
		}
		seen[s] = true
	}
	if xs[0] != "a" || xs[3] != "d" {
		t.Error("input slice was modified")
	}
}

func TestWeighted_SkipsZeroWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		if idx := randx.Weighted(rng, []float64{0, 1, 0}); idx != 1 {
			t.Fatalf("expected index 1, got %d", idx)
		}
	}
}

func TestSpread_Endpoints(t *testing.T) {
	w := 2 * time.Hour
	if randx.Spread(w, 0, 5) != 0 {
		t.Error("first offset should be 0")
	}
	if randx.Spread(w, 4, 5) != w {
		t.Error("last offset should equal window")
	}
	if randx.Spread(w, 0, 1) != 0 {
		t.Error("single item offset should be 0")
	}
}

func TestSameSeed_SameSequence(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		if randx.Between(a, 0, 1000) != randx.Between(b, 0, 1000) {
			t.Fatal("sequences diverged")
		}
	}
}
