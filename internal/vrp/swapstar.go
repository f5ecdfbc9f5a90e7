package vrp

// SwapStar is a route operator: given two routes, it finds the best pair of
// single nodes (one per route) to exchange, each re-inserted at its best
// position in the other route rather than forced into the position its
// swap partner vacated. It caches, per route, the three cheapest insertion
// points for every client not currently on that route, rebuilt from scratch
// by Init (Update simply calls Init), so repeated Evaluate calls across many route pairs
// don't each re-scan both routes.
type SwapStar struct {
	cache map[*Route]map[int]*insertionCache
}

// insertionCache holds the best few insertion costs of a single client into
// a single route, without regard to which node is ultimately swapped out.
type insertionCache struct {
	costs [3]Cost
	after [3]*Node
}

func newInsertionCache() *insertionCache {
	return &insertionCache{costs: [3]Cost{CostMax, CostMax, CostMax}}
}

func (c *insertionCache) maybeAdd(cost Cost, after *Node) {
	if cost >= c.costs[2] {
		return
	}
	if cost >= c.costs[1] {
		c.costs[2], c.after[2] = cost, after
		return
	}
	if cost >= c.costs[0] {
		c.costs[2], c.after[2] = c.costs[1], c.after[1]
		c.costs[1], c.after[1] = cost, after
		return
	}
	c.costs[2], c.after[2] = c.costs[1], c.after[1]
	c.costs[1], c.after[1] = c.costs[0], c.after[0]
	c.costs[0], c.after[0] = cost, after
}

// best returns the cheapest cached insertion point that is neither
// excludeAfter (the node being removed from this route, inserting right
// where it used to be double-counts its own edges) nor excludeNode itself
// (which will have just been removed by the time Apply splices anything
// in, and so is no longer a valid anchor).
func (c *insertionCache) best(excludeAfter, excludeNode *Node) (Cost, *Node) {
	for i := 0; i < 3; i++ {
		if c.after[i] != nil && c.after[i] != excludeAfter && c.after[i] != excludeNode {
			return c.costs[i], c.after[i]
		}
	}
	return CostMax, nil
}

// NewSwapStar builds an empty SwapStar operator.
func NewSwapStar() *SwapStar {
	return &SwapStar{cache: make(map[*Route]map[int]*insertionCache)}
}

// Init rebuilds r's insertion cache from scratch: for every client not
// currently on r, the cheapest three positions to insert it.
func (s *SwapStar) Init(r *Route) {
	perClient := make(map[int]*insertionCache)
	dist := r.data.DistanceMatrix()

	onRoute := make(map[int]bool, r.Size())
	for _, n := range r.nodes {
		onRoute[n.client] = true
	}

	for client := 1; client <= r.data.NumClients(); client++ {
		if onRoute[client] {
			continue
		}
		ic := newInsertionCache()
		for pos := 0; pos <= r.Size(); pos++ {
			after := r.At(pos)
			next := after.next
			delta := Cost(dist.Get(after.client, client) + dist.Get(client, next.client) - dist.Get(after.client, next.client))
			ic.maybeAdd(delta, after)
		}
		perClient[client] = ic
	}

	s.cache[r] = perClient
}

// Update refreshes r's cache after r has changed. SwapStar's cache depends
// on every position in r, so a correct refresh is the same cost as Init;
// Update exists as the hook LocalSearch calls uniformly after any route
// mutation.
func (s *SwapStar) Update(r *Route) {
	s.Init(r)
}

// Evaluate returns the penalized-cost delta of the best (u, v) exchange
// between u's route and v's route: remove u from its route and insert it
// at its cached best spot in v's route, and symmetrically for v, then
// price the two routes' new capacity/time-warp state.
func (s *SwapStar) Evaluate(u, v *Node, ce *CostEvaluator) Cost {
	r1, r2 := u.route, v.route
	if r1 == r2 || u.IsDepot() || v.IsDepot() {
		return 0
	}

	c1, ok1 := s.cache[r2]
	c2, ok2 := s.cache[r1]
	if !ok1 || !ok2 {
		return 0
	}

	uIns, uAfter := c1[u.client].best(v.prev, v)
	vIns, vAfter := c2[v.client].best(u.prev, u)
	if uAfter == nil || vAfter == nil {
		return 0
	}

	dist := r1.data.DistanceMatrix()
	removedU := Cost(dist.Get(u.prev.client, u.client) + dist.Get(u.client, u.next.client) - dist.Get(u.prev.client, u.next.client))
	removedV := Cost(dist.Get(v.prev.client, v.client) + dist.Get(v.client, v.next.client) - dist.Get(v.prev.client, v.next.client))

	deltaDist := uIns + vIns - removedU - removedV

	cap := r1.data.WeightCapacity()
	volCap := r1.data.VolumeCapacity()
	salCap := r1.data.SalvageCapacity()

	uDemandW, uDemandV, uDemandS := r1.data.Client(u.client).DemandWeight, r1.data.Client(u.client).DemandVolume, r1.data.Client(u.client).DemandSalvage
	vDemandW, vDemandV, vDemandS := r1.data.Client(v.client).DemandWeight, r1.data.Client(v.client).DemandVolume, r1.data.Client(v.client).DemandSalvage

	newR1Weight := r1.Weight() - uDemandW + vDemandW
	newR2Weight := r2.Weight() - vDemandW + uDemandW
	newR1Volume := r1.Volume() - uDemandV + vDemandV
	newR2Volume := r2.Volume() - vDemandV + uDemandV
	newR1Salvage := r1.Salvage() - uDemandS + vDemandS
	newR2Salvage := r2.Salvage() - vDemandS + uDemandS

	deltaCapacity := ce.WeightPenalty(newR1Weight, cap) - ce.WeightPenalty(r1.Weight(), cap) +
		ce.WeightPenalty(newR2Weight, cap) - ce.WeightPenalty(r2.Weight(), cap) +
		ce.VolumePenalty(newR1Volume, volCap) - ce.VolumePenalty(r1.Volume(), volCap) +
		ce.VolumePenalty(newR2Volume, volCap) - ce.VolumePenalty(r2.Volume(), volCap) +
		ce.SalvagePenalty(newR1Salvage, salCap) - ce.SalvagePenalty(r1.Salvage(), salCap) +
		ce.SalvagePenalty(newR2Salvage, salCap) - ce.SalvagePenalty(r2.Salvage(), salCap)

	deltaStores := storesDelta(ce, r1, r2, []*Node{u})
	deltaStores += storesDelta(ce, r2, r1, []*Node{v})

	return deltaDist + deltaCapacity + deltaStores
}

// Apply removes u and v from their routes and re-inserts each at its
// cached best position in the other's route.
func (s *SwapStar) Apply(u, v *Node) {
	r1, r2 := u.route, v.route

	c1 := s.cache[r2]
	c2 := s.cache[r1]

	_, uAfter := c1[u.client].best(v.prev, v)
	_, vAfter := c2[v.client].best(u.prev, u)

	u.Remove()
	v.Remove()

	u.InsertAfter(uAfter)
	v.InsertAfter(vAfter)

	_ = r1
	_ = r2
}
