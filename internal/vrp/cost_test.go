package vrp

import "testing"

func TestCostEvaluatorPenaltyIsZeroWithinCapacity(t *testing.T) {
	ce := NewCostEvaluator(10, 10, 10, 10, 10)
	if got := ce.WeightPenalty(50, 100); got != 0 {
		t.Fatalf("WeightPenalty(50,100) = %d, want 0", got)
	}
}

func TestCostEvaluatorPenaltyScalesWithExcess(t *testing.T) {
	ce := NewCostEvaluator(10, 0, 0, 0, 0)
	if got, want := ce.WeightPenalty(120, 100), Cost(200); got != want {
		t.Fatalf("WeightPenalty(120,100) = %d, want %d", got, want)
	}
}

func TestCostEvaluatorInfeasibleDominatesFeasible(t *testing.T) {
	ce := NewCostEvaluator(1, 1, 1, 1, 1)
	data := triangleData(t)

	feasible := NewSolution(data, []*Route{buildRoute(t, data, []int{1, 2, 3})})

	depotOnly := NewRoute(data, 0)
	depotOnly.Update()
	infeasible := NewSolution(data, []*Route{depotOnly}) // required clients unvisited

	if ce.Cost(infeasible) <= ce.Cost(feasible) {
		t.Fatalf("infeasible solution (unvisited required clients) must cost more than a feasible one")
	}
	if ce.Cost(infeasible) != CostMax {
		t.Fatalf("expected CostMax for infeasible solution, got %d", ce.Cost(infeasible))
	}
}

func TestCostEvaluatorPrefersShorterOrdering(t *testing.T) {
	ce := NewCostEvaluator(1, 1, 1, 1, 1)
	data := triangleData(t)

	direct := NewSolution(data, []*Route{buildRoute(t, data, []int{1, 2, 3})})  // 5+5+7+7=24
	detour := NewSolution(data, []*Route{buildRoute(t, data, []int{2, 1, 3})}) // 10+5+5+7=27

	if got, want := ce.PenalisedCost(direct), ce.PenalisedCost(detour); got >= want {
		t.Fatalf("expected direct ordering (cost %d) cheaper than detour (cost %d)", got, want)
	}
}
