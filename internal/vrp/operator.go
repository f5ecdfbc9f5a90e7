package vrp

// Operator is a candidate move evaluated and applied between two nodes, U
// and V. For node operators (Exchange) U and V are the two visits the move
// reorders. For route operators (SwapStar) U and V are representative nodes
// of the two routes being considered; Evaluate is free to consider any pair
// of positions across those routes using its own cache.
type Operator interface {
	// Evaluate returns the change in penalized cost were this move applied,
	// without mutating anything. A non-negative result means "not worth
	// it"; LocalSearch only applies moves that return a negative delta.
	Evaluate(u, v *Node, ce *CostEvaluator) Cost

	// Apply performs the move, splicing nodes and/or routes. The caller is
	// responsible for calling Update on every route touched afterwards.
	Apply(u, v *Node)
}

// RouteCacher is implemented by route operators (e.g. SwapStar) that
// precompute a per-route cache once reused across many candidate node
// pairs, rather than recomputing it on every Evaluate call. Node operators
// need no such cache and do not implement this.
type RouteCacher interface {
	// Init (re)builds this operator's cache for r from scratch.
	Init(r *Route)

	// Update refreshes this operator's cache for r after r changed. Unlike
	// Init, implementations may cheaply patch rather than rebuild.
	Update(r *Route)
}
