package miner

import (
	"math"
	"testing"
)

func TestComputeCutoff(t *testing.T) {
	cases := []struct {
		name       string
		lastHashAt int64
		buffer     uint64
		now        int64
		want       uint64
	}{
		{"full window remaining", 1000, 0, 1000, 60},
		{"buffer shaves the window", 1000, 5, 1000, 55},
		{"mid-epoch", 1000, 5, 1030, 25},
		{"exactly at deadline", 1000, 5, 1055, 0},
		{"past deadline clamps to zero", 1000, 5, 2000, 0},
		{"buffer larger than window", 1000, 120, 1000, 0},
		{"huge buffer saturates", 1000, math.MaxUint64, 1000, 0},
		{"timestamp near overflow saturates", math.MaxInt64 - 10, 5, math.MaxInt64 - 20, 15},
		{"max timestamp does not wrap", math.MaxInt64, 0, math.MaxInt64, 0},
	}
	for _, tc := range cases {
		if got := ComputeCutoff(tc.lastHashAt, tc.buffer, tc.now); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestComputeCutoffMonotonicInNow(t *testing.T) {
	// Cutoff must never increase as the clock advances, and never go
	// negative (the return type already forbids it, but the clamp must
	// hold at the boundary).
	const lastHashAt = 5000
	prev := ComputeCutoff(lastHashAt, 5, lastHashAt-100)
	for now := int64(lastHashAt - 99); now < lastHashAt+200; now++ {
		cur := ComputeCutoff(lastHashAt, 5, now)
		if cur > prev {
			t.Fatalf("cutoff increased from %d to %d at now=%d", prev, cur, now)
		}
		prev = cur
	}
	if prev != 0 {
		t.Errorf("cutoff should settle at 0 far past the deadline, got %d", prev)
	}
}
