package vrp

// SequenceValidator inspects a candidate ordering of client indices for a
// single route (depot excluded) and reports whether that ordering is legal
// under some domain-specific precedence rule, e.g. "salvage pickups must
// trail every delivery they're paired with". A Route stores one via
// SetSequenceValidator; neither Exchange nor SwapStar calls it, so a
// validator set on a route does not restrict which moves local search applies.
//
// This is the pluggable hook spec.md §9 calls for in place of a hardcoded
// salvage-sequence constraint: left nil, every ordering is legal.
type SequenceValidator func(data *ProblemData, clientsInOrder []int) bool

// AlwaysValid is the default SequenceValidator: it imposes no ordering
// constraint.
func AlwaysValid(*ProblemData, []int) bool { return true }
