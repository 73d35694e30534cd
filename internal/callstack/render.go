package callstack

import (
	"fmt"
	"strings"
)

// Render projects a call tree into its indented text form: pre-order,
// two spaces of indent per depth level. Rendering never mutates the tree;
// the same tree renders to byte-identical text every time.
func Render(root *Node) string {
	var sb strings.Builder
	renderNode(&sb, root, 0)
	return sb.String()
}

func renderNode(sb *strings.Builder, n *Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(Label(n))
	sb.WriteByte('\n')
	for _, c := range n.Children {
		renderNode(sb, c, depth+1)
	}
}

// Label returns the single-line text for a node
func Label(n *Node) string {
	switch n.Marker {
	case MarkerRecursiveCut:
		return "(recursive call, stopping here)"
	case MarkerExternal:
		return n.Signature + " (external or unresolved)"
	case MarkerAmbiguous:
		return fmt.Sprintf("%s (ambiguous: %d candidates)", n.Signature, n.Candidates)
	case MarkerTruncated:
		return "(analysis limit reached)"
	case MarkerNotFound:
		return n.Signature
	default:
		return n.Class + "." + n.Method
	}
}
