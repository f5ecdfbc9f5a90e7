package opt

import (
	"sort"
	"strings"

	"routeforge/internal/vrp"
)

// vrpBridge translates between this package's lat/lng Problem/Solution (the
// ALNS ruin-and-recreate shell's native representation) and the
// internal/vrp engine's integer-measure ProblemData/Solution, so ALNS can
// delegate its per-iteration local-search step to the engine's Exchange and
// SwapStar operators instead of the O(n) whole-plan recomputation the
// original twoOptImprove/crossExchangeImprove/twoOptStarImprove did.
//
// The engine assumes a homogeneous fleet capacity; a Problem with
// per-vehicle capacities is translated using the tightest vehicle's
// capacity, which is conservative (never lets the engine accept a move a
// looser vehicle couldn't actually perform, but may reject moves a looser
// vehicle could have). Likewise the engine has no notion of vehicle
// skills, so skill-constrained insertions and removals are left entirely
// to ALNS's own feasibleAdd/feasibleAddAt checks; the bridge never
// relocates a node the caller didn't already consider feasible, since it
// only reorders nodes already present in the handed-in Solution.
const distanceScale = 10 // meters per vrp.Distance unit, keeps matrices in a sane int64 range

// nearestNeighbours is the length of each client's neighbour list: its
// nearestNeighbours closest other clients.
const nearestNeighbours = 12

func buildVRPProblemData(p Problem) (*vrp.ProblemData, error) {
	n := len(p.Nodes)

	depotLat, depotLng := 0.0, 0.0
	for _, v := range p.Vehicles {
		if v.StartLatLng != nil {
			depotLat, depotLng = v.StartLatLng[0], v.StartLatLng[1]
			break
		}
	}

	clients := make([]vrp.Client, n+1)
	depot, err := vrp.NewClient(
		vrp.Coordinate(depotLat*1e6), vrp.Coordinate(depotLng*1e6),
		0, 0, 0, -1, -1, 0, 0, vrp.Duration(1<<30), 0, true,
	)
	if err != nil {
		return nil, err
	}
	clients[0] = depot

	minCapWeight, minCapVolume := 0.0, 0.0
	for _, v := range p.Vehicles {
		if v.CapWeight > 0 && (minCapWeight == 0 || v.CapWeight < minCapWeight) {
			minCapWeight = v.CapWeight
		}
		if v.CapVolume > 0 && (minCapVolume == 0 || v.CapVolume < minCapVolume) {
			minCapVolume = v.CapVolume
		}
	}

	for i, nd := range p.Nodes {
		twEarly, twLate := vrp.Duration(0), vrp.Duration(1<<30)
		if nd.TW != nil {
			if !nd.TW.Start.IsZero() {
				twEarly = vrp.Duration(nd.TW.Start.Unix())
			}
			if !nd.TW.End.IsZero() {
				twLate = vrp.Duration(nd.TW.End.Unix())
			}
		}

		c, err := vrp.NewClient(
			vrp.Coordinate(nd.Lat*1e6), vrp.Coordinate(nd.Lng*1e6),
			vrp.Load(nd.Demand.Weight), vrp.Load(nd.Demand.Volume), 0,
			-1, -1,
			vrp.Duration(nd.ServiceSec),
			twEarly, twLate,
			0, true,
		)
		if err != nil {
			return nil, err
		}
		clients[i+1] = c
	}

	latLng := func(idx int) (float64, float64) {
		if idx == 0 {
			return depotLat, depotLng
		}
		nd := p.Nodes[idx-1]
		return nd.Lat, nd.Lng
	}

	dist := make([]vrp.Distance, (n+1)*(n+1))
	dur := make([]vrp.Duration, (n+1)*(n+1))
	for i := 0; i <= n; i++ {
		latI, lngI := latLng(i)
		for j := 0; j <= n; j++ {
			if i == j {
				continue
			}
			latJ, lngJ := latLng(j)
			meters := vrp.Distance(haversine(latI, lngI, latJ, lngJ) / distanceScale)
			dist[i*(n+1)+j] = meters
			dur[i*(n+1)+j] = vrp.Duration(meters)
		}
	}

	weightCap := vrp.Load(minCapWeight)
	volumeCap := vrp.Load(minCapVolume)
	if weightCap == 0 {
		weightCap = vrp.Load(1 << 30)
	}
	if volumeCap == 0 {
		volumeCap = vrp.Load(1 << 30)
	}

	return vrp.NewProblemData(
		clients, len(p.Vehicles),
		weightCap, volumeCap, vrp.Salvage(1<<30), vrp.Store(1<<30),
		vrp.NewMatrix(n+1, dist), vrp.NewMatrix(n+1, dur),
	)
}

// buildNeighbours returns, for every client 1..n, its nearestNeighbours
// closest other clients by raw matrix distance.
func buildNeighbours(data *vrp.ProblemData) [][]int {
	n := data.NumClients()
	neighbours := make([][]int, n+1)
	dist := data.DistanceMatrix()

	for c := 1; c <= n; c++ {
		type cand struct {
			client int
			d      vrp.Distance
		}
		cands := make([]cand, 0, n)
		for other := 1; other <= n; other++ {
			if other == c {
				continue
			}
			cands = append(cands, cand{other, dist.Get(c, other)})
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].d < cands[j].d })

		limit := nearestNeighbours
		if limit > len(cands) {
			limit = len(cands)
		}
		list := make([]int, limit)
		for i := 0; i < limit; i++ {
			list[i] = cands[i].client
		}
		neighbours[c] = list
	}
	return neighbours
}

func solutionToVRP(data *vrp.ProblemData, sol Solution) *vrp.Solution {
	routes := make([]*vrp.Route, len(sol.Plans))
	for i, pl := range sol.Plans {
		r := vrp.NewRoute(data, i)
		after := r.Depot()
		for _, idx := range pl.Order {
			node := vrp.NewNode(idx + 1)
			node.InsertAfter(after)
			after = node
		}
		r.Update()
		routes[i] = r
	}
	return vrp.NewSolution(data, routes)
}

func solutionFromVRP(sol Solution, vsol *vrp.Solution) Solution {
	out := Solution{Plans: make([]RoutePlan, len(sol.Plans))}
	for i, r := range vsol.Routes() {
		out.Plans[i].VehicleID = sol.Plans[i].VehicleID
		order := make([]int, r.Size())
		for j, n := range r.Nodes() {
			order[j] = n.Client() - 1
		}
		out.Plans[i].Order = order
	}
	return out
}

// defaultCostEvaluator mirrors this package's objective weights onto the
// engine's per-dimension penalties. Distance/time dominate since ALNS's
// own cost function already folds in its own lateness/failed weighting;
// the engine's role here is purely geometric: moving and swapping the
// visits ALNS has already placed between its plans. Callers (ultimately the
// /v1/optimize request body, via Problem.PenaltyWeights) may override any
// of the five dimensions; unset dimensions keep the 1000 default.
func defaultCostEvaluator(p Problem) *vrp.CostEvaluator {
	weight := vrp.Cost(1000)
	volume := vrp.Cost(1000)
	salvage := vrp.Cost(1000)
	stores := vrp.Cost(1000)
	timeWarp := vrp.Cost(1000)
	for k, v := range p.PenaltyWeights {
		switch strings.ToLower(k) {
		case "loadpenalty":
			weight = vrp.Cost(v)
		case "volumepenalty":
			volume = vrp.Cost(v)
		case "salvagepenalty":
			salvage = vrp.Cost(v)
		case "storespenalty":
			stores = vrp.Cost(v)
		case "timewarppenalty":
			timeWarp = vrp.Cost(v)
		}
	}
	return vrp.NewCostEvaluator(weight, volume, salvage, stores, timeWarp)
}

// vrpLocalSearchImprove moves and swaps visits between vehicles using the
// engine's Exchange and SwapStar operators (neither reorders visits within
// a single plan),
// replacing the per-iteration 2-opt/cross-exchange/2-opt* passes with
// O(1)-amortized-per-move evaluation. The returned bool reports whether
// either pass found an improving move, for Metrics.LocalSearchPasses.
func vrpLocalSearchImprove(p Problem, sol Solution) (Solution, bool) {
	if len(sol.Plans) == 0 {
		return sol, false
	}

	data, err := buildVRPProblemData(p)
	if err != nil {
		return sol, false
	}

	vsol := solutionToVRP(data, sol)
	neighbours := buildNeighbours(data)
	ce := defaultCostEvaluator(p)

	ls := vrp.NewLocalSearch(data, neighbours)
	ls.AddNodeOperator(vrp.NewExchange(1, 0))
	ls.AddNodeOperator(vrp.NewExchange(1, 1))
	ls.AddNodeOperator(vrp.NewExchange(2, 1))
	ls.AddRouteOperator(vrp.NewSwapStar())

	searched := ls.Search(vsol, ce)
	intensified := ls.Intensify(vsol, ce)

	out := solutionFromVRP(sol, vsol)
	out.Cost = cost(p, out)
	return out, searched || intensified
}
