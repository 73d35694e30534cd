package callstack

// Marker classifies how a node in the call tree terminated
type Marker string

const (
	// MarkerExpanded nodes own their callees as children
	MarkerExpanded Marker = "expanded"
	// MarkerRecursiveCut marks a callee already on the current call path
	MarkerRecursiveCut Marker = "recursive_cut"
	// MarkerExternal marks a call whose target is outside the loaded program
	MarkerExternal Marker = "external"
	// MarkerNotFound marks a missing entry class or method
	MarkerNotFound Marker = "not_found"
	// MarkerAmbiguous marks a call with several same-signature candidates
	// (signature resolution mode only)
	MarkerAmbiguous Marker = "ambiguous"
	// MarkerTruncated marks a branch cut by the depth or node budget
	MarkerTruncated Marker = "truncated"
)

// Node is one entry in an explored call tree. Expanded nodes carry the
// resolved class and method plus their children in call order; every other
// marker is a leaf. Signature holds the canonical method signature, or the
// raw call-site text for external and ambiguous leaves, or the not-found
// message for a missing entry.
type Node struct {
	Class      string  `json:"class,omitempty"`
	Method     string  `json:"method,omitempty"`
	Signature  string  `json:"signature"`
	Marker     Marker  `json:"marker"`
	Candidates int     `json:"candidates,omitempty"`
	Children   []*Node `json:"children,omitempty"`
}

// Count returns the number of nodes in the subtree rooted at n
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Depth returns the height of the subtree rooted at n, with a lone node
// having depth 0.
func (n *Node) Depth() int {
	max := 0
	for _, c := range n.Children {
		if d := c.Depth() + 1; d > max {
			max = d
		}
	}
	return max
}
