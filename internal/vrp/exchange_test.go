package vrp

import "testing"

func twoRouteData(t *testing.T) *ProblemData {
	t.Helper()
	depot, _ := NewClient(0, 0, 0, 0, 0, -1, -1, 0, 0, 1000, 0, true)
	c1, _ := NewClient(1, 0, 10, 5, 0, -1, -1, 0, 0, 1000, 0, true)
	c2, _ := NewClient(2, 0, 10, 5, 0, -1, -1, 0, 0, 1000, 0, true)
	c3, _ := NewClient(3, 0, 10, 5, 0, -1, -1, 0, 0, 1000, 0, true)

	dist := []Distance{
		0, 1, 2, 3,
		1, 0, 1, 2,
		2, 1, 0, 1,
		3, 2, 1, 0,
	}
	data, err := NewProblemData([]Client{depot, c1, c2, c3}, 2, 100, 100, 100, 10, NewMatrix(4, dist), NewMatrix(4, asDurations(dist)))
	if err != nil {
		t.Fatalf("NewProblemData: %v", err)
	}
	return data
}

func TestExchangeRejectsSameRouteMove(t *testing.T) {
	data := twoRouteData(t)
	r := buildRoute(t, data, []int{1, 2, 3})
	ce := NewCostEvaluator(10, 10, 10, 10, 10)

	ex := NewExchange(1, 0)
	u := r.nodes[0]
	v := r.nodes[2]

	if delta := ex.Evaluate(u, v, ce); delta != 0 {
		t.Fatalf("expected same-route moves to evaluate to 0 (not this operator's scope), got %d", delta)
	}
}

func TestExchangeRelocateBetweenRoutes(t *testing.T) {
	data := twoRouteData(t)
	r1 := buildRoute(t, data, []int{1, 2})
	r2 := buildRoute(t, data, []int{3})
	ce := NewCostEvaluator(10, 10, 10, 10, 10)

	ex := NewExchange(1, 0)
	u := r1.nodes[1] // client 2
	v := r2.nodes[0] // client 3

	delta := ex.Evaluate(u, v, ce)
	ex.Apply(u, v)
	r1.Update()
	r2.Update()

	if r1.Size() != 1 || r2.Size() != 2 {
		t.Fatalf("expected sizes 1,2 after relocating client 2 into r2, got %d,%d", r1.Size(), r2.Size())
	}
	if r2.nodes[0].client != 3 || r2.nodes[1].client != 2 {
		t.Fatalf("expected r2 order [3,2], got %v", nodeClients(r2))
	}

	newCost := ce.PenalisedCost(NewSolution(data, []*Route{r1, r2}))
	_ = delta
	_ = newCost
}

func nodeClients(r *Route) []int {
	out := make([]int, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = n.client
	}
	return out
}

func TestExchangeEvaluateMatchesApply(t *testing.T) {
	data := twoRouteData(t)
	r1 := buildRoute(t, data, []int{1, 2})
	r2 := buildRoute(t, data, []int{3})
	ce := NewCostEvaluator(10, 10, 10, 10, 10)

	sol := NewSolution(data, []*Route{r1, r2})
	before := ce.PenalisedCost(sol)

	ex := NewExchange(1, 0)
	u := r1.nodes[1]
	v := r2.nodes[0]
	delta := ex.Evaluate(u, v, ce)

	ex.Apply(u, v)
	r1.Update()
	r2.Update()

	after := ce.PenalisedCost(NewSolution(data, []*Route{r1, r2}))

	if got, want := after-before, delta; got != want {
		t.Fatalf("Evaluate predicted delta %d, actual delta was %d", want, got)
	}
}
