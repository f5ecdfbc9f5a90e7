package vrp

import "math"

// circleSector tracks the angular span (as seen from the fleet centroid) of
// a route's clients, scaled to the int32 range so wraparound arithmetic is
// exact modular addition instead of floating comparisons. LocalSearch.Intensify
// uses it to skip route pairs whose sectors cannot possibly overlap, before
// paying for route-operator evaluations; Search's Exchange candidates are not
// pruned by it.
type circleSector struct {
	initialized bool
	start, end  int32
}

// sectorAngle maps a client's position relative to the depot/centroid to a
// value in the full int32 circle.
func sectorAngle(cx, cy float64, x, y Coordinate) int32 {
	dx, dy := float64(x)-cx, float64(y)-cy
	theta := math.Atan2(dy, dx)
	return int32((theta / math.Pi) * math.MaxInt32)
}

func (s *circleSector) initialize(angle int32) {
	s.initialized = true
	s.start = angle
	s.end = angle
}

// extend widens the sector, if needed, to include angle. It always grows by
// the smaller of the two possible arcs.
func (s *circleSector) extend(angle int32) {
	if !s.initialized {
		s.initialize(angle)
		return
	}
	if !s.contains(angle) {
		if cwDistance(angle, s.start) < cwDistance(s.end, angle) {
			s.start = angle
		} else {
			s.end = angle
		}
	}
}

func (s *circleSector) contains(angle int32) bool {
	return within(s.start, s.end, angle)
}

// cwDistance is the clockwise distance from a to b around the circle.
func cwDistance(a, b int32) uint32 {
	return uint32(b - a)
}

// within reports whether angle lies on the clockwise arc from start to end.
func within(start, end, angle int32) bool {
	return cwDistance(start, angle) <= cwDistance(start, end)
}

// overlapsWith reports whether the two sectors, each grown by tolerance on
// both ends, intersect: true when either sector's boundary falls on the
// other's arc. A nil-initialized sector (empty route) overlaps with
// everything, since an empty route has no angular information to prune on.
func (s circleSector) overlapsWith(other circleSector, tolerance int32) bool {
	if !s.initialized || !other.initialized {
		return true
	}

	aStart, aEnd := s.start-tolerance, s.end+tolerance
	bStart, bEnd := other.start-tolerance, other.end+tolerance

	return within(aStart, aEnd, bStart) || within(aStart, aEnd, bEnd) ||
		within(bStart, bEnd, aStart) || within(bStart, bEnd, aEnd)
}
