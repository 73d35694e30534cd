package impact

import (
	"fmt"
	"strings"

	"github.com/mkravets/jcg/internal/storage"
)

// Analyzer performs change impact analysis over the stored call links
type Analyzer struct {
	db *storage.DB
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(db *storage.DB) *Analyzer {
	return &Analyzer{db: db}
}

// ImpactReport represents the impact analysis of a method change
type ImpactReport struct {
	Target          *storage.Method   `json:"target"`
	DirectCallers   []*storage.Method `json:"direct_callers"`
	IndirectCallers []*storage.Method `json:"indirect_callers"`
	DirectCallees   []*storage.Method `json:"direct_callees"`
	IndirectCallees []*storage.Method `json:"indirect_callees"`
}

// AnalyzeImpact analyzes the impact of changing a method
func (a *Analyzer) AnalyzeImpact(methodName string, upstreamDepth, downstreamDepth int) (*ImpactReport, error) {
	target, err := a.findTarget(methodName)
	if err != nil {
		return nil, err
	}

	report := &ImpactReport{
		Target: target,
	}

	// Get direct callers
	report.DirectCallers, err = a.db.GetDirectCallers(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct callers: %w", err)
	}

	// Get all upstream callers (indirect)
	if upstreamDepth != 1 {
		allCallers, err := a.db.GetUpstreamCallers(target.ID, upstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get upstream callers: %w", err)
		}
		// Filter out direct callers to get indirect callers
		directMap := make(map[int64]bool)
		for _, c := range report.DirectCallers {
			directMap[c.ID] = true
		}
		for _, c := range allCallers {
			if !directMap[c.ID] && c.ID != target.ID {
				report.IndirectCallers = append(report.IndirectCallers, c)
			}
		}
	}

	// Get direct callees
	report.DirectCallees, err = a.db.GetDirectCallees(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct callees: %w", err)
	}

	// Get all downstream callees (indirect)
	if downstreamDepth != 1 {
		allCallees, err := a.db.GetDownstreamCallees(target.ID, downstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get downstream callees: %w", err)
		}
		// Filter out direct callees to get indirect callees
		directMap := make(map[int64]bool)
		for _, c := range report.DirectCallees {
			directMap[c.ID] = true
		}
		for _, c := range allCallees {
			if !directMap[c.ID] && c.ID != target.ID {
				report.IndirectCallees = append(report.IndirectCallees, c)
			}
		}
	}

	return report, nil
}

// findTarget resolves a method reference, either Class.method or a bare
// method name. A bare name matching more than one method is an error
// listing the candidates.
func (a *Analyzer) findTarget(methodName string) (*storage.Method, error) {
	if idx := strings.LastIndex(methodName, "."); idx > 0 {
		cls, name := methodName[:idx], methodName[idx+1:]
		if m, err := a.db.GetMethod(cls, name); err == nil {
			return m, nil
		}
	}

	methods, err := a.db.FindMethodsByPattern(methodName)
	if err != nil {
		return nil, fmt.Errorf("failed to find method: %w", err)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("method not found: %s", methodName)
	}
	if len(methods) > 1 {
		var names []string
		for _, m := range methods {
			names = append(names, m.QualifiedName())
		}
		return nil, fmt.Errorf("ambiguous method name, found %d matches: %s", len(methods), strings.Join(names, ", "))
	}
	return methods[0], nil
}

// shortName keeps the class and method of a qualified name
// e.g., "com.shop.order.OrderService.place" -> "OrderService.place"
func shortName(qualified string) string {
	parts := strings.Split(qualified, ".")
	if len(parts) <= 2 {
		return qualified
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// FormatMarkdown formats the impact report as markdown
func (r *ImpactReport) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Change impact: %s\n\n", shortName(r.Target.QualifiedName())))
	sb.WriteString(fmt.Sprintf("**Location:** %s:%d\n\n", r.Target.File, r.Target.Line))

	if r.Target.Signature != "" {
		sb.WriteString(fmt.Sprintf("**Signature:** `%s`\n\n", r.Target.Signature))
	}

	if r.Target.Doc != "" {
		sb.WriteString(fmt.Sprintf("**Doc:** %s\n\n", r.Target.Doc))
	}

	// Direct callers
	sb.WriteString("### Direct callers (check these for needed changes)\n\n")
	if len(r.DirectCallers) == 0 {
		sb.WriteString("_No direct callers_\n\n")
	} else {
		sb.WriteString("| Method | File | Line |\n")
		sb.WriteString("|--------|------|------|\n")
		for _, c := range r.DirectCallers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", shortName(c.QualifiedName()), c.File, c.Line))
		}
		sb.WriteString("\n")
	}

	// Indirect callers
	if len(r.IndirectCallers) > 0 {
		sb.WriteString("### Indirect callers (possibly affected)\n\n")
		sb.WriteString("| Method | File | Line |\n")
		sb.WriteString("|--------|------|------|\n")
		for _, c := range r.IndirectCallers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", shortName(c.QualifiedName()), c.File, c.Line))
		}
		sb.WriteString("\n")
	}

	// Direct callees
	sb.WriteString("### Direct callees (called by this method)\n\n")
	if len(r.DirectCallees) == 0 {
		sb.WriteString("_No direct callees_\n\n")
	} else {
		sb.WriteString("| Method | File | Line |\n")
		sb.WriteString("|--------|------|------|\n")
		for _, c := range r.DirectCallees {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", shortName(c.QualifiedName()), c.File, c.Line))
		}
		sb.WriteString("\n")
	}

	// Indirect callees
	if len(r.IndirectCallees) > 0 {
		sb.WriteString("### Indirect callees\n\n")
		sb.WriteString("| Method | File | Line |\n")
		sb.WriteString("|--------|------|------|\n")
		for _, c := range r.IndirectCallees {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", shortName(c.QualifiedName()), c.File, c.Line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTree formats the impact report as a tree structure
func (r *ImpactReport) FormatTree() string {
	var sb strings.Builder

	// Collect all items and calculate max width for alignment
	allCallers := append(r.DirectCallers, r.IndirectCallers...)
	allCallees := append(r.DirectCallees, r.IndirectCallees...)

	maxWidth := len(fmt.Sprintf("%s:%d", shortPath(r.Target.File), r.Target.Line))
	for _, c := range allCallers {
		w := len(fmt.Sprintf("%s:%d", shortPath(c.File), c.Line))
		if w > maxWidth {
			maxWidth = w
		}
	}
	for _, c := range allCallees {
		w := len(fmt.Sprintf("%s:%d", shortPath(c.File), c.Line))
		if w > maxWidth {
			maxWidth = w
		}
	}

	// Target method
	sb.WriteString("📍 Target method\n")
	sb.WriteString(fmt.Sprintf("%-*s  %s\n", maxWidth, fmt.Sprintf("%s:%d", shortPath(r.Target.File), r.Target.Line), shortName(r.Target.QualifiedName())))
	if r.Target.Signature != "" {
		sb.WriteString(fmt.Sprintf("   %s\n", r.Target.Signature))
	}
	sb.WriteString("\n")

	// Upstream callers
	callerCount := len(allCallers)
	if callerCount > 0 {
		sb.WriteString(fmt.Sprintf("⬆️ Callers (%d total)\n", callerCount))
		for i, c := range allCallers {
			prefix := "├──"
			if i == len(allCallers)-1 {
				prefix = "└──"
			}
			loc := fmt.Sprintf("%s:%d", shortPath(c.File), c.Line)
			sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, maxWidth, loc, shortName(c.QualifiedName())))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("⬆️ Callers\n")
		sb.WriteString("└── (none)\n\n")
	}

	// Downstream callees
	calleeCount := len(allCallees)
	if calleeCount > 0 {
		sb.WriteString(fmt.Sprintf("⬇️ Callees (%d total)\n", calleeCount))
		for i, c := range allCallees {
			prefix := "├──"
			if i == len(allCallees)-1 {
				prefix = "└──"
			}
			loc := fmt.Sprintf("%s:%d", shortPath(c.File), c.Line)
			sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, maxWidth, loc, shortName(c.QualifiedName())))
		}
	} else {
		sb.WriteString("⬇️ Callees\n")
		sb.WriteString("└── (none)\n")
	}

	return sb.String()
}

// shortPath extracts the last two path components
// e.g., "src/main/java/OrderService.java" -> "java/OrderService.java"
func shortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Summary returns a brief summary of the impact report
func (r *ImpactReport) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Callers: %d, Indirect Callers: %d, Direct Callees: %d, Indirect Callees: %d",
		shortName(r.Target.QualifiedName()),
		len(r.DirectCallers),
		len(r.IndirectCallers),
		len(r.DirectCallees),
		len(r.IndirectCallees),
	)
}
