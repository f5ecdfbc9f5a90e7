package vrp

// Exchange is the Exchange(N, M) move family: relocate a segment of N
// consecutive visits starting at U to just after V, optionally swapping it
// with a segment of M consecutive visits starting at V (N >= M). M == 0 is
// a pure relocate. Go has no template non-type parameters, so N and M are
// ordinary runtime fields instead of the original's compile-time
// instantiation per (N, M) pair; spec.md §9 sanctions this as an
// acceptable runtime-dispatched variant.
type Exchange struct {
	N, M int
}

// NewExchange builds an Exchange(n, m) operator. Panics unless n >= 1 and
// 0 <= m <= n, since that is a programming error in wiring up the operator
// set, not a runtime condition.
func NewExchange(n, m int) *Exchange {
	if n < 1 || m < 0 || m > n {
		panic("vrp: Exchange requires n >= 1 and 0 <= m <= n")
	}
	return &Exchange{N: n, M: m}
}

// segment collects the n consecutive nodes starting at start, following
// Next. Returns nil if the segment would run past the route's end.
func segment(start *Node, n int) []*Node {
	nodes := make([]*Node, 0, n)
	cur := start
	for i := 0; i < n; i++ {
		if cur.IsDepot() {
			return nil
		}
		nodes = append(nodes, cur)
		cur = cur.next
	}
	return nodes
}

// overlaps reports whether the two node sets share any member.
func overlaps(a, b []*Node) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Evaluate returns the penalized-cost delta of relocating the N-segment
// starting at u to just after v (swapping out the M-segment starting at v,
// if M > 0). u and v must belong to routes with Update already applied.
func (ex *Exchange) Evaluate(u, v *Node, ce *CostEvaluator) Cost {
	segU := segment(u, ex.N)
	if segU == nil || v.IsDepot() && ex.M > 0 {
		return 0
	}

	var segV []*Node
	if ex.M > 0 {
		segV = segment(v, ex.M)
		if segV == nil {
			return 0
		}
	}

	if overlaps(segU, segV) || containsAny(segU, v) || (ex.M > 0 && containsAny(segV, u)) {
		return 0
	}
	if u.prev == v || (ex.M > 0 && v.prev == u) {
		// Degenerate: segments already adjacent in the orientation this
		// move would produce. Evaluating it would double-count the shared
		// edge, and the move is a no-op in that case anyway.
		return 0
	}
	if u.route == v.route {
		// Intra-route reordering needs a different delta derivation (the
		// "removed from r1" and "inserted into r2" segments below alias
		// the same cached cumulatives), so this operator only prices
		// inter-route moves and returns 0 for any same-route pair. SwapStar
		// rejects same-route pairs too, so no operator in this package
		// reorders visits within a single route.
		return 0
	}

	if ex.M == 0 {
		return ex.evalRelocate(segU, v, ce)
	}
	return ex.evalSwap(segU, segV, ce)
}

func containsAny(seg []*Node, n *Node) bool {
	for _, x := range seg {
		if x == n {
			return true
		}
	}
	return false
}

func (ex *Exchange) evalRelocate(segU []*Node, v *Node, ce *CostEvaluator) Cost {
	data := segU[0].route.data
	dist := data.DistanceMatrix()

	r1 := segU[0].route
	r2 := v.route

	endU := segU[len(segU)-1]
	pU, nU := segU[0].prev, endU.next
	nV := v.next

	removed := dist.Get(pU.client, segU[0].client) + dist.Get(endU.client, nU.client)
	closed := dist.Get(pU.client, nU.client)
	inserted := dist.Get(v.client, segU[0].client) + dist.Get(endU.client, nV.client)
	bridged := dist.Get(v.client, nV.client)

	deltaDist := Cost(closed - removed + inserted - bridged)

	segWeight := r1.WeightBetween(segU[0].position, endU.position)
	segVolume := r1.VolumeBetween(segU[0].position, endU.position)
	segSalvage := r1.SalvageBetween(segU[0].position, endU.position)

	deltaCapacity := capacityDelta(ce, r1, r2, segWeight, segVolume, segSalvage)
	deltaStores := storesDelta(ce, r1, r2, segU)
	deltaWarp := relocateWarpDelta(ce, data, r1, r2, segU, v)

	return deltaDist + deltaCapacity + deltaStores + deltaWarp
}

func (ex *Exchange) evalSwap(segU, segV []*Node, ce *CostEvaluator) Cost {
	data := segU[0].route.data
	dist := data.DistanceMatrix()

	r1 := segU[0].route
	r2 := segV[0].route

	endU, endV := segU[len(segU)-1], segV[len(segV)-1]
	pU, nU := segU[0].prev, endU.next
	pV, nV := segV[0].prev, endV.next

	removed := dist.Get(pU.client, segU[0].client) + dist.Get(endU.client, nU.client) +
		dist.Get(pV.client, segV[0].client) + dist.Get(endV.client, nV.client)
	inserted := dist.Get(pU.client, segV[0].client) + dist.Get(endV.client, nU.client) +
		dist.Get(pV.client, segU[0].client) + dist.Get(endU.client, nV.client)

	deltaDist := Cost(inserted - removed)

	segUWeight := r1.WeightBetween(segU[0].position, endU.position)
	segUVolume := r1.VolumeBetween(segU[0].position, endU.position)
	segUSalvage := r1.SalvageBetween(segU[0].position, endU.position)
	segVWeight := r2.WeightBetween(segV[0].position, endV.position)
	segVVolume := r2.VolumeBetween(segV[0].position, endV.position)
	segVSalvage := r2.SalvageBetween(segV[0].position, endV.position)

	netR1Weight := r1.Weight() - segUWeight + segVWeight
	netR1Volume := r1.Volume() - segUVolume + segVVolume
	netR1Salvage := r1.Salvage() - segUSalvage + segVSalvage
	netR2Weight := r2.Weight() - segVWeight + segUWeight
	netR2Volume := r2.Volume() - segVVolume + segUVolume
	netR2Salvage := r2.Salvage() - segVSalvage + segUSalvage

	cap := data.WeightCapacity()
	volCap := data.VolumeCapacity()
	salCap := data.SalvageCapacity()

	deltaCapacity := ce.WeightPenalty(netR1Weight, cap) - ce.WeightPenalty(r1.Weight(), cap) +
		ce.WeightPenalty(netR2Weight, cap) - ce.WeightPenalty(r2.Weight(), cap) +
		ce.VolumePenalty(netR1Volume, volCap) - ce.VolumePenalty(r1.Volume(), volCap) +
		ce.VolumePenalty(netR2Volume, volCap) - ce.VolumePenalty(r2.Volume(), volCap) +
		ce.SalvagePenalty(netR1Salvage, salCap) - ce.SalvagePenalty(r1.Salvage(), salCap) +
		ce.SalvagePenalty(netR2Salvage, salCap) - ce.SalvagePenalty(r2.Salvage(), salCap)

	deltaStores := storesSwapDelta(ce, r1, r2, segU, segV)

	return deltaDist + deltaCapacity + deltaStores
}

// capacityDelta returns the weight/volume/salvage penalty delta of moving
// segment demand segWeight/segVolume/segSalvage from r1 to r2.
func capacityDelta(ce *CostEvaluator, r1, r2 *Route, segWeight, segVolume Load, segSalvage Salvage) Cost {
	cap := r1.data.WeightCapacity()
	volCap := r1.data.VolumeCapacity()
	salCap := r1.data.SalvageCapacity()

	return ce.WeightPenalty(r1.Weight()-segWeight, cap) - ce.WeightPenalty(r1.Weight(), cap) +
		ce.WeightPenalty(r2.Weight()+segWeight, cap) - ce.WeightPenalty(r2.Weight(), cap) +
		ce.VolumePenalty(r1.Volume()-segVolume, volCap) - ce.VolumePenalty(r1.Volume(), volCap) +
		ce.VolumePenalty(r2.Volume()+segVolume, volCap) - ce.VolumePenalty(r2.Volume(), volCap) +
		ce.SalvagePenalty(r1.Salvage()-segSalvage, salCap) - ce.SalvagePenalty(r1.Salvage(), salCap) +
		ce.SalvagePenalty(r2.Salvage()+segSalvage, salCap) - ce.SalvagePenalty(r2.Salvage(), salCap)
}

// storesDelta returns the distinct-store-count penalty delta of moving seg
// out of r1 and into r2. Recomputes remainder membership directly rather
// than via a cumulative, per the same exact-rescan rationale as
// Route.StoresBetween.
func storesDelta(ce *CostEvaluator, r1, r2 *Route, seg []*Node) Cost {
	limit := r1.data.RouteStoreLimit()

	newR1 := remainderStoreCount(r1, seg)
	newR2 := r2.Stores()
	for _, n := range seg {
		if tag := r1.data.Client(n.client).ClientStore; tag >= 0 && !r2.ContainsStore(tag) {
			newR2++
		}
	}

	return ce.StoresPenalty(newR1, limit) - ce.StoresPenalty(r1.Stores(), limit) +
		ce.StoresPenalty(newR2, limit) - ce.StoresPenalty(r2.Stores(), limit)
}

func storesSwapDelta(ce *CostEvaluator, r1, r2 *Route, segU, segV []*Node) Cost {
	limit := r1.data.RouteStoreLimit()

	r1Without := remainderStoreCount(r1, segU)
	r2Without := remainderStoreCount(r2, segV)

	newR1 := r1Without
	seen := map[int]struct{}{}
	for pos := 1; pos <= r1.Size(); pos++ {
		n := r1.At(pos)
		if containsAny(segU, n) {
			continue
		}
		if tag := r1.data.Client(n.client).ClientStore; tag >= 0 {
			seen[tag] = struct{}{}
		}
	}
	for _, n := range segV {
		if tag := r1.data.Client(n.client).ClientStore; tag >= 0 {
			if _, ok := seen[tag]; !ok {
				newR1++
				seen[tag] = struct{}{}
			}
		}
	}

	newR2 := r2Without
	seen2 := map[int]struct{}{}
	for pos := 1; pos <= r2.Size(); pos++ {
		n := r2.At(pos)
		if containsAny(segV, n) {
			continue
		}
		if tag := r2.data.Client(n.client).ClientStore; tag >= 0 {
			seen2[tag] = struct{}{}
		}
	}
	for _, n := range segU {
		if tag := r2.data.Client(n.client).ClientStore; tag >= 0 {
			if _, ok := seen2[tag]; !ok {
				newR2++
				seen2[tag] = struct{}{}
			}
		}
	}

	return ce.StoresPenalty(newR1, limit) - ce.StoresPenalty(r1.Stores(), limit) +
		ce.StoresPenalty(newR2, limit) - ce.StoresPenalty(r2.Stores(), limit)
}

// remainderStoreCount returns the distinct store-tag count of r's visits
// excluding seg.
func remainderStoreCount(r *Route, seg []*Node) Store {
	seen := map[int]struct{}{}
	for _, n := range r.nodes {
		if containsAny(seg, n) {
			continue
		}
		if tag := r.data.Client(n.client).ClientStore; tag >= 0 {
			seen[tag] = struct{}{}
		}
	}
	return Store(len(seen))
}

// relocateWarpDelta returns the time-warp penalty delta of removing segU
// from r1 and inserting it after v in r2. It merges the segment's own TWS
// chain (O(segment length)) with the surrounding routes' cached prefix/
// suffix TWS (Node.twBefore/twAfter, O(1) each), so the whole calculation
// never re-walks either route.
func relocateWarpDelta(ce *CostEvaluator, data *ProblemData, r1, r2 *Route, segU []*Node, v *Node) Cost {
	dur := data.DurationMatrix()
	depot := data.Depot()
	depotTWS := func() TimeWindowSegment {
		return NewTimeWindowSegment(0, depot.ServiceDuration, depot.TWEarly, depot.TWLate, 0)
	}

	oldR1Warp := r1.TimeWarp()
	oldR2Warp := r2.TimeWarp()

	endU := segU[0]
	if len(segU) > 1 {
		endU = segU[len(segU)-1]
	}
	pU, nU := segU[0].prev, endU.next

	var newR1 TimeWindowSegment
	if pU.IsDepot() && nU.IsDepot() {
		newR1 = depotTWS()
	} else if pU.IsDepot() {
		newR1 = Merge(dur, depotTWS(), nU.twAfter, depotTWS())
	} else if nU.IsDepot() {
		newR1 = Merge(dur, pU.twBefore, depotTWS())
	} else {
		newR1 = Merge(dur, pU.twBefore, nU.twAfter, depotTWS())
	}
	newR1Warp := newR1.TotalTimeWarp()

	segTWS := segU[0].tw
	for i := 1; i < len(segU); i++ {
		segTWS = mergeTwo(dur, segTWS, segU[i].tw)
	}

	var newR2 TimeWindowSegment
	if v.IsDepot() && r2.Empty() {
		newR2 = Merge(dur, depotTWS(), segTWS, depotTWS())
	} else if v.IsDepot() {
		newR2 = Merge(dur, depotTWS(), segTWS, r2.nodes[0].twAfter, depotTWS())
	} else if v.next.IsDepot() {
		newR2 = Merge(dur, v.twBefore, segTWS, depotTWS())
	} else {
		newR2 = Merge(dur, v.twBefore, segTWS, v.next.twAfter, depotTWS())
	}
	newR2Warp := newR2.TotalTimeWarp()

	return ce.TimeWarpPenalty(newR1Warp) - ce.TimeWarpPenalty(oldR1Warp) +
		ce.TimeWarpPenalty(newR2Warp) - ce.TimeWarpPenalty(oldR2Warp)
}

// Apply performs the relocate or swap: u is the start of the N-segment, v
// is the insertion point (M == 0) or the start of the M-segment (M > 0).
func (ex *Exchange) Apply(u, v *Node) {
	segU := segment(u, ex.N)

	if ex.M == 0 {
		after := v
		for _, n := range segU {
			n.InsertAfter(after)
			after = n
		}
		return
	}

	segV := segment(v, ex.M)
	for i := 0; i < ex.M && i < len(segU); i++ {
		segU[i].SwapWith(segV[i])
	}
	// Any remaining N-M nodes (when N > M) are inserted right after the
	// last swapped U node, which now sits where V's segment ended in V's
	// route, preserving their relative order.
	if len(segU) > len(segV) {
		after := segU[len(segV)-1]
		for i := len(segV); i < len(segU); i++ {
			segU[i].InsertAfter(after)
			after = segU[i]
		}
	}
}
