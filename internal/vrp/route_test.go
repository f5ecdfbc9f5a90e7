package vrp

import "testing"

// triangleData builds a depot plus three clients on a unit-ish triangle,
// matching the three-client scenario described for this engine: client 1
// five units from the depot, client 2 five units further along the same
// line (ten from the depot), and client 3 off to the side (five from
// client 1, seven from the depot and from client 2).
func triangleData(t *testing.T) *ProblemData {
	t.Helper()

	depot, err := NewClient(0, 0, 0, 0, 0, -1, -1, 0, 0, 1000, 0, true)
	if err != nil {
		t.Fatalf("NewClient(depot): %v", err)
	}
	c1, err := NewClient(5, 0, 10, 5, 0, -1, -1, 2, 0, 1000, 0, true)
	if err != nil {
		t.Fatalf("NewClient(c1): %v", err)
	}
	c2, err := NewClient(10, 0, 10, 5, 0, -1, -1, 2, 0, 1000, 0, true)
	if err != nil {
		t.Fatalf("NewClient(c2): %v", err)
	}
	c3, err := NewClient(5, 5, 10, 5, 0, -1, -1, 2, 0, 1000, 0, true)
	if err != nil {
		t.Fatalf("NewClient(c3): %v", err)
	}

	clients := []Client{depot, c1, c2, c3}

	dist := []Distance{
		0, 5, 10, 7,
		5, 0, 5, 5,
		10, 5, 0, 7,
		7, 5, 7, 0,
	}
	dur := []Duration{
		0, 5, 10, 7,
		5, 0, 5, 5,
		10, 5, 0, 7,
		7, 5, 7, 0,
	}

	data, err := NewProblemData(clients, 1, 100, 100, 100, 10, NewMatrix(4, dist), NewMatrix(4, dur))
	if err != nil {
		t.Fatalf("NewProblemData: %v", err)
	}
	return data
}

func asDurations(d []Distance) []Duration {
	out := make([]Duration, len(d))
	for i, v := range d {
		out[i] = Duration(v)
	}
	return out
}

func buildRoute(t *testing.T, data *ProblemData, order []int) *Route {
	t.Helper()
	r := NewRoute(data, 0)
	after := r.Depot()
	for _, client := range order {
		n := NewNode(client)
		n.InsertAfter(after)
		after = n
	}
	r.Update()
	return r
}

func TestRouteCumulativesAfterUpdate(t *testing.T) {
	data := triangleData(t)
	r := buildRoute(t, data, []int{1, 2, 3})

	if r.Size() != 3 {
		t.Fatalf("expected size 3, got %d", r.Size())
	}
	if got, want := r.Weight(), Load(30); got != want {
		t.Fatalf("weight = %d, want %d", got, want)
	}
	if got, want := r.Volume(), Load(15); got != want {
		t.Fatalf("volume = %d, want %d", got, want)
	}

	wantDist := Distance(5 + 5 + 7 + 7) // depot->1->2->3->depot
	if r.Distance() != wantDist {
		t.Fatalf("distance = %d, want %d", r.Distance(), wantDist)
	}

	for i, n := range r.nodes {
		if n.position != i+1 {
			t.Fatalf("node %d has position %d, want %d", n.client, n.position, i+1)
		}
		if n.route != r {
			t.Fatalf("node %d route pointer not set", n.client)
		}
	}
}

func TestRouteUpdateReusesUnchangedPrefix(t *testing.T) {
	data := triangleData(t)
	r := buildRoute(t, data, []int{1, 2, 3})

	firstNode := r.nodes[0]
	cachedCumWeight := firstNode.cumulatedWeight

	// Move the last node (3) to directly after node 1; node 1's cached
	// prefix state should be untouched by Update since node 1 itself did
	// not move and nothing upstream of it changed.
	last := r.nodes[2]
	last.Remove()
	last.InsertAfter(firstNode)
	r.Update()

	if r.nodes[1] != last {
		t.Fatalf("expected node 3 second after relocate, got client %d", r.nodes[1].client)
	}
	if firstNode.cumulatedWeight != cachedCumWeight {
		t.Fatalf("unrelated node's cumulative weight changed: got %d want %d", firstNode.cumulatedWeight, cachedCumWeight)
	}
}

func TestRouteFeasibility(t *testing.T) {
	data := triangleData(t)
	r := buildRoute(t, data, []int{1, 2, 3})

	if !r.IsFeasible() {
		t.Fatalf("expected route within capacity to be feasible")
	}
}

func TestRouteCapacityInfeasible(t *testing.T) {
	depot, _ := NewClient(0, 0, 0, 0, 0, -1, -1, 0, 0, 1000, 0, true)
	c1, _ := NewClient(1, 0, 60, 0, 0, -1, -1, 0, 0, 1000, 0, true)
	c2, _ := NewClient(2, 0, 60, 0, 0, -1, -1, 0, 0, 1000, 0, true)

	dist := []Distance{0, 1, 2, 1, 0, 1, 2, 1, 0}
	data, err := NewProblemData([]Client{depot, c1, c2}, 1, 100, 100, 100, 10, NewMatrix(3, dist), NewMatrix(3, asDurations(dist)))
	if err != nil {
		t.Fatalf("NewProblemData: %v", err)
	}

	r := buildRoute(t, data, []int{1, 2})
	if r.IsFeasible() {
		t.Fatalf("expected route with 120 > 100 capacity weight to be infeasible")
	}
	if r.IsWeightFeasible() {
		t.Fatalf("expected weight infeasibility, got cumulative weight %d <= capacity", r.Weight())
	}
}

func TestStoresBetweenCountsDistinctTags(t *testing.T) {
	depot, _ := NewClient(0, 0, 0, 0, 0, -1, -1, 0, 0, 1000, 0, true)
	c1, _ := NewClient(1, 0, 1, 1, 0, -1, 7, 0, 0, 1000, 0, true)
	c2, _ := NewClient(2, 0, 1, 1, 0, -1, 7, 0, 0, 1000, 0, true) // same store tag as c1
	c3, _ := NewClient(3, 0, 1, 1, 0, -1, 9, 0, 0, 1000, 0, true)

	dist := []Distance{
		0, 1, 2, 3,
		1, 0, 1, 2,
		2, 1, 0, 1,
		3, 2, 1, 0,
	}
	data, err := NewProblemData([]Client{depot, c1, c2, c3}, 1, 100, 100, 100, 10, NewMatrix(4, dist), NewMatrix(4, asDurations(dist)))
	if err != nil {
		t.Fatalf("NewProblemData: %v", err)
	}

	r := buildRoute(t, data, []int{1, 2, 3})
	if got, want := r.Stores(), Store(2); got != want {
		t.Fatalf("distinct store count = %d, want %d (repeated tag must not double count)", got, want)
	}
	if got, want := r.StoresBetween(1, 2), Store(1); got != want {
		t.Fatalf("StoresBetween(1,2) = %d, want %d", got, want)
	}
}
