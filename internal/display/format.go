package display

import (
	"fmt"
	"strings"

	"github.com/mkravets/jcg/internal/storage"
)

// ShortMethodName keeps the class and method of a qualified name.
// e.g., "com.shop.order.OrderService.place" -> "OrderService.place"
func ShortMethodName(qualified string) string {
	parts := strings.Split(qualified, ".")
	if len(parts) <= 2 {
		return qualified
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// ShortSignature drops the package from a method signature.
// e.g., "com.shop.OrderService.place(Order, boolean)" -> "OrderService.place(Order, boolean)"
func ShortSignature(sig string) string {
	open := strings.Index(sig, "(")
	if open < 0 {
		return ShortMethodName(sig)
	}
	return ShortMethodName(sig[:open]) + sig[open:]
}

// CalcTreeMaxWidth calculates the maximum method name width and depth for alignment in the call tree.
func CalcTreeMaxWidth(tree []*storage.CallTreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(ShortMethodName(node.Method.QualifiedName()))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatCallTree renders a call tree as a string with ASCII art box-drawing characters.
func FormatCallTree(tree []*storage.CallTreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		methodName := ShortMethodName(node.Method.QualifiedName())
		loc := fmt.Sprintf("%s:%d", node.Method.File, node.Method.Line)
		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, methodName, loc))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatCallTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}
