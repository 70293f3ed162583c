package budget

import (
	"errors"
	"math/rand"
	"testing"
)

func TestChargeWithinCeiling(t *testing.T) {
	tr := NewTracker(15, 2)
	used, err := tr.Charge(0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 5 {
		t.Fatalf("used = %d, want 5", used)
	}
	if got := tr.Remaining(used); got != 10 {
		t.Fatalf("remaining = %d, want 10", got)
	}
}

func TestChargeExceeded(t *testing.T) {
	tr := NewTracker(3, 0)
	used, err := tr.Charge(2, 2)
	if err == nil {
		t.Fatal("expected error charging past ceiling")
	}
	var exceeded ErrExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected ErrExceeded, got %T", err)
	}
	if used != 2 {
		t.Fatalf("failed charge mutated usage: %d", used)
	}
	if exceeded.Requested != 2 || exceeded.Used != 2 || exceeded.Max != 3 {
		t.Fatalf("error fields wrong: %+v", exceeded)
	}
}

// Usage never exceeds the ceiling no matter what sequence of charges is
// attempted; failed charges leave usage untouched.
func TestCeilingHoldsUnderRandomCharges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		max := 1 + rng.Intn(20)
		tr := NewTracker(max, 2)
		used := 0
		for i := 0; i < 50; i++ {
			n := rng.Intn(8)
			next, err := tr.Charge(used, n)
			if err != nil {
				if next != used {
					t.Fatalf("failed charge changed usage: %d -> %d", used, next)
				}
				continue
			}
			used = next
			if used > max {
				t.Fatalf("usage %d exceeded ceiling %d", used, max)
			}
		}
	}
}

func TestSplitReserve(t *testing.T) {
	tr := NewTracker(15, 2)

	img, gen := tr.Split(0, true)
	if img != 2 || gen != 13 {
		t.Fatalf("split with reserve = (%d,%d), want (2,13)", img, gen)
	}

	img, gen = tr.Split(0, false)
	if img != 0 || gen != 15 {
		t.Fatalf("split without reserve = (%d,%d), want (0,15)", img, gen)
	}

	// reserve shrinks when less than 2 units remain
	img, gen = tr.Split(14, true)
	if img != 1 || gen != 0 {
		t.Fatalf("split near ceiling = (%d,%d), want (1,0)", img, gen)
	}

	img, gen = tr.Split(15, true)
	if img != 0 || gen != 0 {
		t.Fatalf("split at ceiling = (%d,%d), want (0,0)", img, gen)
	}
}
