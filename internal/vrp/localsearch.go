package vrp

// LocalSearch drives node and route operators to a local optimum of a
// Solution under a CostEvaluator. Node operators (Exchange) are tried
// first-improvement over each client's candidate neighbour list via
// Search; route operators (SwapStar) are tried pairwise across routes
// whose angular sectors overlap via Intensify. Both run their operator set
// to a fixed point: repeated passes until a full pass finds no improving
// move.
type LocalSearch struct {
	data       *ProblemData
	neighbours [][]int // neighbours[client] is a candidate list, nearest first

	nodeOps  []Operator
	routeOps []Operator

	sectorTolerance int32
}

// NewLocalSearch builds a driver over data, using neighbours[client] as the
// candidate list consulted for every client during Search. neighbours must
// be indexed 1..data.NumClients(); index 0 (the depot) is ignored.
func NewLocalSearch(data *ProblemData, neighbours [][]int) *LocalSearch {
	return &LocalSearch{
		data:            data,
		neighbours:      neighbours,
		sectorTolerance: 1 << 24,
	}
}

// AddNodeOperator registers a node operator (e.g. Exchange) for Search.
func (ls *LocalSearch) AddNodeOperator(op Operator) {
	ls.nodeOps = append(ls.nodeOps, op)
}

// AddRouteOperator registers a route operator (e.g. SwapStar) for
// Intensify.
func (ls *LocalSearch) AddRouteOperator(op Operator) {
	ls.routeOps = append(ls.routeOps, op)
}

func (ls *LocalSearch) initRouteCaches(routes []*Route) {
	for _, op := range ls.routeOps {
		if rc, ok := op.(RouteCacher); ok {
			for _, r := range routes {
				rc.Init(r)
			}
		}
	}
}

func (ls *LocalSearch) refreshRouteCaches(routes ...*Route) {
	for _, op := range ls.routeOps {
		if rc, ok := op.(RouteCacher); ok {
			for _, r := range routes {
				rc.Update(r)
			}
		}
	}
}

// clientIndex maps every routed client to its current Node, so candidate
// neighbour lookups don't need a route scan.
func clientIndex(sol *Solution) map[int]*Node {
	idx := make(map[int]*Node)
	for _, r := range sol.Routes() {
		for _, n := range r.nodes {
			idx[n.client] = n
		}
	}
	return idx
}

// Search runs every node operator, first-improvement, over every routed
// client's candidate neighbours, to a fixed point. It returns whether any
// improving move was applied.
func (ls *LocalSearch) Search(sol *Solution, ce *CostEvaluator) bool {
	improvedEver := false

	for {
		improvedThisPass := false
		index := clientIndex(sol)

		for _, r := range sol.Routes() {
			for _, u := range append([]*Node(nil), r.nodes...) {
				if u.route == nil {
					continue // removed by an earlier move this pass
				}

				applied := false
				for _, neighbourClient := range ls.neighbours[u.client] {
					v, ok := index[neighbourClient]
					if !ok {
						continue
					}

					for _, op := range ls.nodeOps {
						delta := op.Evaluate(u, v, ce)
						if delta < 0 {
							touched := []*Route{u.route, v.route}
							op.Apply(u, v)
							for _, rt := range touched {
								rt.Update()
							}
							ls.refreshRouteCaches(touched...)
							improvedThisPass = true
							applied = true
							break
						}
					}
					if applied {
						break
					}
				}
			}
		}

		ls.maybeInsertIntoEmptyRoutes(sol, ce)

		if !improvedThisPass {
			break
		}
		improvedEver = true
	}

	return improvedEver
}

// maybeInsertIntoEmptyRoutes tries moving the first client of every
// non-empty route into each empty route with every Exchange(N, 0) operator,
// applying any improving move, since Search's neighbour-list walk never
// visits an empty route (it has no nodes to anchor on).
func (ls *LocalSearch) maybeInsertIntoEmptyRoutes(sol *Solution, ce *CostEvaluator) {
	for _, r := range sol.Routes() {
		if !r.Empty() {
			continue
		}
		for _, other := range sol.Routes() {
			if other == r || other.Empty() {
				continue
			}
			u := other.nodes[0]
			for _, op := range ls.nodeOps {
				if ex, ok := op.(*Exchange); ok && ex.M == 0 {
					if ex.Evaluate(u, r.depot, ce) < 0 {
						ex.Apply(u, r.depot)
						r.Update()
						other.Update()
						ls.refreshRouteCaches(r, other)
					}
				}
			}
		}
	}
}

// Intensify runs every route operator pairwise over routes whose angular
// sectors overlap, to a fixed point. It returns whether any improving move
// was applied. Callers typically call Search first so Intensify starts
// from a node-operator-level local optimum.
func (ls *LocalSearch) Intensify(sol *Solution, ce *CostEvaluator) bool {
	if len(ls.routeOps) == 0 {
		return false
	}

	routes := sol.Routes()
	ls.initRouteCaches(routes)

	improvedEver := false
	for {
		improvedThisPass := false

		for i, r1 := range routes {
			if r1.Empty() {
				continue
			}
			for j := i + 1; j < len(routes); j++ {
				r2 := routes[j]
				if r2.Empty() {
					continue
				}
				if !r1.sector.overlapsWith(r2.sector, ls.sectorTolerance) {
					continue
				}

				if ls.intensifyPair(r1, r2, ce) {
					improvedThisPass = true
				}
			}
		}

		if !improvedThisPass {
			break
		}
		improvedEver = true
	}

	return improvedEver
}

func (ls *LocalSearch) intensifyPair(r1, r2 *Route, ce *CostEvaluator) bool {
	improved := false

	for _, u := range append([]*Node(nil), r1.nodes...) {
		if u.route != r1 {
			continue
		}
		for _, v := range append([]*Node(nil), r2.nodes...) {
			if v.route != r2 {
				continue
			}
			for _, op := range ls.routeOps {
				delta := op.Evaluate(u, v, ce)
				if delta < 0 {
					op.Apply(u, v)
					r1.Update()
					r2.Update()
					ls.refreshRouteCaches(r1, r2)
					improved = true
				}
			}
		}
	}

	return improved
}
