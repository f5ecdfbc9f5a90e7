package vrp

import "testing"

func flatMatrix(n int, edge Duration) Matrix[Duration] {
	data := make([]Duration, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				data[i*n+j] = edge
			}
		}
	}
	return NewMatrix(n, data)
}

func TestMergeAssociative(t *testing.T) {
	dur := flatMatrix(4, 10)

	a := NewTimeWindowSegment(0, 5, 0, 100, 0)
	b := NewTimeWindowSegment(1, 5, 0, 100, 0)
	c := NewTimeWindowSegment(2, 5, 0, 100, 0)

	left := Merge(dur, Merge(dur, a, b), c)
	right := Merge(dur, a, Merge(dur, b, c))

	if left.TotalTimeWarp() != right.TotalTimeWarp() {
		t.Fatalf("merge not associative on time warp: left=%d right=%d", left.TotalTimeWarp(), right.TotalTimeWarp())
	}
	if left.twEarly != right.twEarly || left.twLate != right.twLate {
		t.Fatalf("merge not associative on feasible window: left=[%d,%d] right=[%d,%d]",
			left.twEarly, left.twLate, right.twEarly, right.twLate)
	}
}

func TestMergeNoWarpWhenWindowsOverlap(t *testing.T) {
	dur := flatMatrix(2, 10)

	a := NewTimeWindowSegment(0, 5, 0, 100, 0)
	b := NewTimeWindowSegment(1, 5, 0, 100, 0)

	merged := Merge(dur, a, b)
	if merged.TotalTimeWarp() != 0 {
		t.Fatalf("expected zero time warp, got %d", merged.TotalTimeWarp())
	}
}

func TestMergeForcesWaitWhenArrivingEarly(t *testing.T) {
	dur := flatMatrix(2, 5)

	a := NewTimeWindowSegment(0, 0, 0, 0, 0)     // must start at time 0
	b := NewTimeWindowSegment(1, 0, 50, 100, 0) // can't be served before 50

	merged := Merge(dur, a, b)
	if merged.TotalTimeWarp() != 0 {
		t.Fatalf("expected zero time warp on a wait-forced merge, got %d", merged.TotalTimeWarp())
	}
	if merged.duration != 50 {
		t.Fatalf("expected duration 50 (5 travel + 45 wait), got %d", merged.duration)
	}
}

func TestMergeForcesWarpWhenArrivingLate(t *testing.T) {
	dur := flatMatrix(2, 5)

	a := NewTimeWindowSegment(0, 0, 0, 0, 0)    // must start at time 0
	b := NewTimeWindowSegment(1, 0, 0, 2, 0)    // must be served by time 2

	merged := Merge(dur, a, b)
	// edge = 5, so earliest arrival at b is 5, but b's window closes at 2.
	if merged.TotalTimeWarp() != 3 {
		t.Fatalf("expected 3 seconds of time warp, got %d", merged.TotalTimeWarp())
	}
}
