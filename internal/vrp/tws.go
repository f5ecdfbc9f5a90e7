package vrp

// TimeWindowSegment summarizes the timing of a contiguous route slice: the
// interval of service-start times at its first node that minimizes total
// time warp, the forward duration from that start to the end of the
// segment, and the minimal time warp itself. It composes associatively via
// Merge, which is the mechanism every operator uses to evaluate a move's
// time-warp delta in O(1) amortized work instead of re-walking the route.
type TimeWindowSegment struct {
	idxFirst, idxLast int

	duration    Duration
	timeWarp    Duration
	twEarly     Duration
	twLate      Duration
	releaseTime Duration
}

// NewTimeWindowSegment builds the segment for a single visit.
func NewTimeWindowSegment(idx int, serviceDuration, twEarly, twLate, releaseTime Duration) TimeWindowSegment {
	return TimeWindowSegment{
		idxFirst:    idx,
		idxLast:     idx,
		duration:    serviceDuration,
		timeWarp:    0,
		twEarly:     twEarly,
		twLate:      twLate,
		releaseTime: releaseTime,
	}
}

// TotalTimeWarp returns the aggregate mandatory lateness of this segment.
func (t TimeWindowSegment) TotalTimeWarp() Duration { return t.timeWarp }

// Merge concatenates two or more segments in argument order. Merge must
// stay associative to the bit: merge(merge(A,B),C) == merge(A,merge(B,C)),
// since operators merge varying numbers of segments depending on which
// move is being evaluated.
func Merge(dur Matrix[Duration], first TimeWindowSegment, rest ...TimeWindowSegment) TimeWindowSegment {
	acc := first
	for _, next := range rest {
		acc = mergeTwo(dur, acc, next)
	}
	return acc
}

// mergeTwo concatenates a then b. Let a service start at time tA within
// a's feasible window [a.twEarly, a.twLate]; the segment then arrives at
// b's first node at tA + shift, where shift = a.duration - a.timeWarp +
// edge (time warp inside a lets it finish that much earlier). If that
// arrival falls within b's own feasible window shifted back by shift, no
// extra wait or warp is needed and the merged feasible window is simply
// the overlap of the two (shifted) windows. Otherwise the merged window
// collapses to the single boundary point that minimizes the extra wait
// (if b's window is shifted to arrive too early) or extra time warp (if
// too late), and that extra amount is added to duration or timeWarp
// respectively.
func mergeTwo(dur Matrix[Duration], a, b TimeWindowSegment) TimeWindowSegment {
	edge := dur.Get(a.idxLast, b.idxFirst)
	shift := a.duration - a.timeWarp + edge

	loA, hiA := a.twEarly, a.twLate
	loB, hiB := b.twEarly-shift, b.twLate-shift

	waitAmount := maxDuration(0, loB-hiA)
	warpAmount := maxDuration(0, loA-hiB)

	return TimeWindowSegment{
		idxFirst:    a.idxFirst,
		idxLast:     b.idxLast,
		duration:    a.duration + b.duration + edge + waitAmount,
		timeWarp:    a.timeWarp + b.timeWarp + warpAmount,
		twEarly:     maxDuration(loA, loB) - waitAmount,
		twLate:      minDuration(hiA, hiB) + warpAmount,
		releaseTime: maxDuration(a.releaseTime, b.releaseTime),
	}
}

func minDuration(a, b Duration) Duration {
	if a < b {
		return a
	}
	return b
}
