package vrp

// Route is one vehicle's visit sequence: a circular doubly-linked list of
// Nodes anchored by a single depot sentinel (depot.next is the first visit,
// the last visit's next is again depot), plus an O(1)-indexable nodes slice
// and cumulative caches rebuilt incrementally by Update.
type Route struct {
	data *ProblemData
	idx  int

	depot *Node
	nodes []*Node // non-depot visits, in order; nodes[i].position == i+1

	sector circleSector

	weight     Load
	volume     Load
	salvage    Salvage
	storeCount Store
	timeWarp   Duration
	distance   Distance

	seqValidator SequenceValidator
}

// NewRoute creates an empty route at the given fleet index.
func NewRoute(data *ProblemData, idx int) *Route {
	depot := &Node{client: 0}
	depot.prev, depot.next = depot, depot

	r := &Route{
		data:         data,
		idx:          idx,
		depot:        depot,
		seqValidator: AlwaysValid,
	}
	depot.route = r
	return r
}

// Idx returns this route's fleet index.
func (r *Route) Idx() int { return r.idx }

// Depot returns the route's depot sentinel node.
func (r *Route) Depot() *Node { return r.depot }

// Nodes returns the route's non-depot visits, in order. Callers must not
// mutate the returned slice.
func (r *Route) Nodes() []*Node { return r.nodes }

// Size returns the number of non-depot visits.
func (r *Route) Size() int { return len(r.nodes) }

// Empty reports whether the route has no visits.
func (r *Route) Empty() bool { return len(r.nodes) == 0 }

// SetSequenceValidator installs a custom ordering constraint, or nil to
// restore AlwaysValid.
func (r *Route) SetSequenceValidator(v SequenceValidator) {
	if v == nil {
		v = AlwaysValid
	}
	r.seqValidator = v
}

// At returns the node at the given 1-based position, or the depot sentinel
// for position 0.
func (r *Route) At(position int) *Node {
	if position == 0 {
		return r.depot
	}
	return r.nodes[position-1]
}

// Weight, Volume, Salvage, Stores, TimeWarp and Distance return the route's
// cached aggregate totals, valid as of the last Update call.
func (r *Route) Weight() Load       { return r.weight }
func (r *Route) Volume() Load       { return r.volume }
func (r *Route) Salvage() Salvage   { return r.salvage }
func (r *Route) Stores() Store      { return r.storeCount }
func (r *Route) TimeWarp() Duration { return r.timeWarp }
func (r *Route) Distance() Distance { return r.distance }

// IsWeightFeasible, IsVolumeFeasible, IsSalvageFeasible, IsStoresFeasible
// and IsTimeWarpFeasible report per-dimension feasibility against the
// problem's capacities.
func (r *Route) IsWeightFeasible() bool  { return r.weight <= r.data.WeightCapacity() }
func (r *Route) IsVolumeFeasible() bool  { return r.volume <= r.data.VolumeCapacity() }
func (r *Route) IsSalvageFeasible() bool { return r.salvage <= r.data.SalvageCapacity() }
func (r *Route) IsStoresFeasible() bool  { return r.storeCount <= r.data.RouteStoreLimit() }
func (r *Route) IsTimeWarpFeasible() bool { return r.timeWarp == 0 }

// IsFeasible reports whether every dimension is within its limit.
func (r *Route) IsFeasible() bool {
	return r.IsWeightFeasible() && r.IsVolumeFeasible() && r.IsSalvageFeasible() &&
		r.IsStoresFeasible() && r.IsTimeWarpFeasible()
}

// ContainsStore reports whether any visit on the route carries the given
// store tag. Negative tags never match (spec: -1 means "no tag").
func (r *Route) ContainsStore(tag int) bool {
	if tag < 0 {
		return false
	}
	for _, n := range r.nodes {
		if r.data.Client(n.client).ClientStore == tag {
			return true
		}
	}
	return false
}

// DistBetween returns the total travel distance of the edges strictly
// between positions start and end (inclusive boundaries), in O(1) using
// cached cumulative distances.
func (r *Route) DistBetween(start, end int) Distance {
	return r.At(end).cumulatedDistance - r.At(start).cumulatedDistance
}

// WeightBetween, VolumeBetween and SalvageBetween return the summed demand
// over the inclusive position range [start, end], in O(1).
func (r *Route) WeightBetween(start, end int) Load {
	s := r.At(start)
	return r.At(end).cumulatedWeight - s.cumulatedWeight + r.data.Client(s.client).DemandWeight
}

func (r *Route) VolumeBetween(start, end int) Load {
	s := r.At(start)
	return r.At(end).cumulatedVolume - s.cumulatedVolume + r.data.Client(s.client).DemandVolume
}

func (r *Route) SalvageBetween(start, end int) Salvage {
	s := r.At(start)
	return r.At(end).cumulatedSalvage - s.cumulatedSalvage + r.data.Client(s.client).DemandSalvage
}

// StoresBetween returns the number of distinct store tags among the visits
// in the inclusive position range [start, end]. Unlike the other *Between
// queries this cannot be derived from a pair of cumulative counters (a
// store tag seen earlier in the range must not be recounted), so it rescans
// the range directly; spec.md §9 leaves this exact-rescan semantics as the
// resolved Open Question rather than an O(1) cumulative.
func (r *Route) StoresBetween(start, end int) Store {
	seen := make(map[int]struct{})
	for pos := start; pos <= end; pos++ {
		if pos == 0 {
			continue
		}
		tag := r.data.Client(r.At(pos).client).ClientStore
		if tag < 0 {
			continue
		}
		seen[tag] = struct{}{}
	}
	return Store(len(seen))
}

// TWBetween merges the time-window segments of every visit in the inclusive
// position range [start, end]. start must be >= 1.
func (r *Route) TWBetween(start, end int) TimeWindowSegment {
	tws := r.At(start).tw
	for pos := start; pos < end; pos++ {
		tws = mergeTwo(r.data.DurationMatrix(), tws, r.At(pos+1).tw)
	}
	return tws
}

// setupNodes rebuilds the nodes slice by walking the linked list starting
// from the depot's successor, stopping when the walk returns to the depot.
func (r *Route) setupNodes() {
	r.nodes = r.nodes[:0]
	for n := r.depot.next; !n.IsDepot(); n = n.next {
		r.nodes = append(r.nodes, n)
	}
}

// setupSector rebuilds the route's angular sector around the fleet
// centroid, which LocalSearch.Intensify uses to skip route pairs whose
// visits cannot possibly be geographically close.
func (r *Route) setupSector() {
	r.sector = circleSector{}
	cx, cy := r.data.Centroid()
	for _, n := range r.nodes {
		c := r.data.Client(n.client)
		r.sector.extend(sectorAngle(cx, cy, c.X, c.Y))
	}
}

// Update recomputes every cached field after the route's linked-list
// structure has changed. It rebuilds the indexed nodes slice and the
// angular sector unconditionally (both are O(size)), but for the per-node
// cumulative caches it walks forward only from the first node whose
// upstream state actually changed, reusing every untouched prefix -- the
// O(1)-amortized-per-move invariant local search depends on.
func (r *Route) Update() {
	oldNodes := append([]*Node(nil), r.nodes...)

	r.setupNodes()
	r.setupSector()

	dist := r.data.DistanceMatrix()
	dur := r.data.DurationMatrix()
	depotClient := r.data.Depot()

	divergedAt := len(r.nodes)
	for i, n := range r.nodes {
		if i >= len(oldNodes) || oldNodes[i] != n {
			divergedAt = i
			break
		}
	}

	storeSeen := make(map[int]struct{})
	for i := 0; i < divergedAt; i++ {
		if tag := r.data.Client(r.nodes[i].client).ClientStore; tag >= 0 {
			storeSeen[tag] = struct{}{}
		}
	}

	var prevCumWeight, prevCumVolume Load
	var prevCumSalvage Salvage
	var prevCumStores Store
	var prevCumDist Distance
	var prevTW TimeWindowSegment
	prevIdx := 0

	if divergedAt > 0 {
		prev := r.nodes[divergedAt-1]
		prevCumWeight = prev.cumulatedWeight
		prevCumVolume = prev.cumulatedVolume
		prevCumSalvage = prev.cumulatedSalvage
		prevCumStores = prev.cumulatedStores
		prevCumDist = prev.cumulatedDistance
		prevTW = prev.twBefore
		prevIdx = prev.client
	} else {
		prevTW = NewTimeWindowSegment(0, depotClient.ServiceDuration, depotClient.TWEarly, depotClient.TWLate, 0)
		prevIdx = 0
	}

	for i := divergedAt; i < len(r.nodes); i++ {
		n := r.nodes[i]
		n.position = i + 1
		n.route = r

		c := r.data.Client(n.client)

		prevCumWeight += c.DemandWeight
		prevCumVolume += c.DemandVolume
		prevCumSalvage += c.DemandSalvage
		prevCumDist += dist.Get(prevIdx, n.client)

		if tag := c.ClientStore; tag >= 0 {
			storeSeen[tag] = struct{}{}
		}
		prevCumStores = Store(len(storeSeen))

		n.cumulatedWeight = prevCumWeight
		n.cumulatedVolume = prevCumVolume
		n.cumulatedSalvage = prevCumSalvage
		n.cumulatedStores = prevCumStores
		n.cumulatedDistance = prevCumDist

		n.tw = NewTimeWindowSegment(n.client, c.ServiceDuration, c.TWEarly, c.TWLate, 0)
		prevTW = mergeTwo(dur, prevTW, n.tw)
		n.twBefore = prevTW

		prevIdx = n.client
	}

	if len(r.nodes) == 0 {
		r.weight, r.volume, r.salvage, r.storeCount = 0, 0, 0, 0
		r.distance = 0
		r.timeWarp = 0
		return
	}

	last := r.nodes[len(r.nodes)-1]
	r.weight = last.cumulatedWeight
	r.volume = last.cumulatedVolume
	r.salvage = last.cumulatedSalvage
	r.storeCount = last.cumulatedStores
	r.distance = last.cumulatedDistance + dist.Get(last.client, 0)

	full := mergeTwo(dur, last.twBefore,
		NewTimeWindowSegment(0, 0, depotClient.TWEarly, depotClient.TWLate, 0))
	r.timeWarp = full.TotalTimeWarp()

	// twAfter (suffix segments, needed by Exchange/SwapStar to merge a
	// candidate insertion with "everything after position i" in O(1))
	// rebuilds backward from the end; any node before divergedAt can only
	// be reused if nothing downstream of it changed, so it is simplest and
	// still O(size) to always recompute the suffix chain in full.
	var suffix TimeWindowSegment
	suffixInit := false
	for i := len(r.nodes) - 1; i >= 0; i-- {
		n := r.nodes[i]
		if !suffixInit {
			suffix = n.tw
			suffixInit = true
		} else {
			suffix = mergeTwo(dur, n.tw, suffix)
		}
		n.twAfter = suffix
	}
}
