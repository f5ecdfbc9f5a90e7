package vrp

// Node is a single visit in a route's doubly-linked list, or (when Client
// is 0) the depot sentinel shared by the route's head and tail. Cached
// cumulative fields are valid after the owning route's last Update call.
type Node struct {
	client int

	prev, next *Node
	route      *Route
	position   int // 1-based among the route's non-depot nodes; 0 for depot

	cumulatedWeight   Load
	cumulatedVolume   Load
	cumulatedSalvage  Salvage
	cumulatedStores   Store
	cumulatedDistance Distance

	// No cumulatedReversalDistance field: this package has no reversal-based
	// operator (2-opt / MoveTwoClientsReversed / RelocateStar) that would read
	// it — see DESIGN.md's "excluded reversal operators" entry.

	tw       TimeWindowSegment
	twBefore TimeWindowSegment
	twAfter  TimeWindowSegment
}

// NewNode creates a free (unrouted) node for the given client index.
func NewNode(client int) *Node {
	return &Node{client: client}
}

// IsDepot reports whether this node is a route's depot sentinel.
func (n *Node) IsDepot() bool { return n.client == 0 }

// Client returns the client index this node visits.
func (n *Node) Client() int { return n.client }

// Prev returns the preceding node (p(·) in spec notation).
func (n *Node) Prev() *Node { return n.prev }

// Next returns the following node (n(·) in spec notation).
func (n *Node) Next() *Node { return n.next }

// Route returns the owning route, or nil if this node is unrouted.
func (n *Node) Route() *Route { return n.route }

// Position returns the 1-based position within the owning route.
func (n *Node) Position() int { return n.position }

// InsertAfter splices this node into other's route, immediately after
// other. If this node was already routed, its old neighbors are first
// stitched back together.
func (n *Node) InsertAfter(other *Node) {
	if n.route != nil {
		n.prev.next = n.next
		n.next.prev = n.prev
	}

	n.prev = other
	n.next = other.next

	other.next.prev = n
	other.next = n

	n.route = other.route
}

// SwapWith exchanges this node and other's positions, including across
// routes.
func (n *Node) SwapWith(other *Node) {
	vPred, vSucc := other.prev, other.next
	uPred, uSucc := n.prev, n.next

	routeU, routeV := n.route, other.route

	uPred.next = other
	uSucc.prev = other
	vPred.next = n
	vSucc.prev = n

	n.prev, n.next = vPred, vSucc
	other.prev, other.next = uPred, uSucc

	n.route, other.route = routeV, routeU
}

// Remove detaches this node from its route, stitching its neighbors
// together. The node becomes unrouted.
func (n *Node) Remove() {
	n.prev.next = n.next
	n.next.prev = n.prev

	n.prev = nil
	n.next = nil
	n.route = nil
}
