package vrp

// Solution is a complete assignment of clients to routes: possibly empty
// routes for some of the fleet, and an implicit set of unvisited optional
// clients (every Client with Required == false may be left out, at the
// cost of its Prize).
type Solution struct {
	data   *ProblemData
	routes []*Route
}

// NewSolution wraps an existing slice of routes (already Update-d) into a
// Solution. The caller retains ownership of the routes slice.
func NewSolution(data *ProblemData, routes []*Route) *Solution {
	return &Solution{data: data, routes: routes}
}

// Routes returns the solution's routes, including any empty ones.
func (s *Solution) Routes() []*Route { return s.routes }

// NumRoutes returns the number of non-empty routes.
func (s *Solution) NumRoutes() int {
	n := 0
	for _, r := range s.routes {
		if !r.Empty() {
			n++
		}
	}
	return n
}

// Distance returns the total distance driven across all routes.
func (s *Solution) Distance() Distance {
	var total Distance
	for _, r := range s.routes {
		total += r.Distance()
	}
	return total
}

// TimeWarp returns the total time warp across all routes.
func (s *Solution) TimeWarp() Duration {
	var total Duration
	for _, r := range s.routes {
		total += r.TimeWarp()
	}
	return total
}

// ExcessWeight, ExcessVolume, ExcessSalvage and ExcessStores sum each
// route's overflow past its per-dimension capacity; a route within
// capacity contributes zero, never a negative amount.
func (s *Solution) ExcessWeight() Load {
	var total Load
	cap := s.data.WeightCapacity()
	for _, r := range s.routes {
		if over := r.Weight() - cap; over > 0 {
			total += over
		}
	}
	return total
}

func (s *Solution) ExcessVolume() Load {
	var total Load
	cap := s.data.VolumeCapacity()
	for _, r := range s.routes {
		if over := r.Volume() - cap; over > 0 {
			total += over
		}
	}
	return total
}

func (s *Solution) ExcessSalvage() Salvage {
	var total Salvage
	cap := s.data.SalvageCapacity()
	for _, r := range s.routes {
		if over := r.Salvage() - cap; over > 0 {
			total += over
		}
	}
	return total
}

func (s *Solution) ExcessStores() Store {
	var total Store
	limit := s.data.RouteStoreLimit()
	for _, r := range s.routes {
		if over := r.Stores() - limit; over > 0 {
			total += over
		}
	}
	return total
}

// visited reports, per client index, whether some route visits it.
func (s *Solution) visited() []bool {
	seen := make([]bool, s.data.NumClients()+1)
	for _, r := range s.routes {
		for _, n := range r.nodes {
			seen[n.client] = true
		}
	}
	return seen
}

// UncollectedPrizes sums the Prize of every optional (non-Required) client
// that no route visits.
func (s *Solution) UncollectedPrizes() Cost {
	seen := s.visited()
	var total Cost
	for idx := 1; idx <= s.data.NumClients(); idx++ {
		c := s.data.Client(idx)
		if !c.Required && !seen[idx] {
			total += c.Prize
		}
	}
	return total
}

// IsFeasible reports whether every route is within capacity and every
// required client is visited.
func (s *Solution) IsFeasible() bool {
	seen := s.visited()
	for idx := 1; idx <= s.data.NumClients(); idx++ {
		if s.data.Client(idx).Required && !seen[idx] {
			return false
		}
	}
	for _, r := range s.routes {
		if !r.IsFeasible() {
			return false
		}
	}
	return true
}
