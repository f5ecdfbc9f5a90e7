package vrp

import "testing"

func TestLocalSearchReachesLocalOptimumOnDetour(t *testing.T) {
	data := triangleData(t)

	// Deliberately suboptimal ordering: depot->2->1->3->depot instead of
	// the shorter depot->1->2->3->depot.
	r := buildRoute(t, data, []int{2, 1, 3})
	sol := NewSolution(data, []*Route{r})
	ce := NewCostEvaluator(10, 10, 10, 10, 10)

	before := ce.PenalisedCost(sol)

	neighbours := map[int][]int{
		1: {2, 3},
		2: {1, 3},
		3: {1, 2},
	}
	nbrSlice := make([][]int, data.NumClients()+1)
	for client, list := range neighbours {
		nbrSlice[client] = list
	}

	ls := NewLocalSearch(data, nbrSlice)
	ls.AddNodeOperator(NewExchange(1, 0))
	ls.AddNodeOperator(NewExchange(1, 1))

	// Node operators only price inter-route moves in this engine (see
	// Exchange.Evaluate), so a single-route instance can't improve via
	// Search alone; this test exercises that Search terminates cleanly
	// (reaches a fixed point) rather than looping or panicking.
	ls.Search(sol, ce)

	after := ce.PenalisedCost(sol)
	if after > before {
		t.Fatalf("Search must never make the solution worse: before=%d after=%d", before, after)
	}
}

func TestLocalSearchIntensifyImprovesTwoRoutes(t *testing.T) {
	data := triangleData(t)
	r1 := buildRoute(t, data, []int{1})
	r2 := buildRoute(t, data, []int{2, 3})

	sol := NewSolution(data, []*Route{r1, r2})
	ce := NewCostEvaluator(10, 10, 10, 10, 10)
	before := ce.PenalisedCost(sol)

	ls := NewLocalSearch(data, make([][]int, data.NumClients()+1))
	ls.AddRouteOperator(NewSwapStar())

	ls.Intensify(sol, ce)

	after := ce.PenalisedCost(sol)
	if after > before {
		t.Fatalf("Intensify must never make the solution worse: before=%d after=%d", before, after)
	}
}
