package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/display"
	"github.com/mkravets/jcg/internal/impact"
	"github.com/mkravets/jcg/internal/storage"
)

func upstreamCmd() *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "upstream <method>",
		Short: "List the methods that call the given method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			target, err := pickMethod(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.AnalyzeImpact(target.QualifiedName(), depth, 1)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report.DirectCallers)
			case "markdown":
				fmt.Printf("## Upstream callers: %s\n\n", target.QualifiedName())
				printMethodTable(append(report.DirectCallers, report.IndirectCallers...))
			default:
				callTree, err := db.GetUpstreamCallTree(target.ID, depth)
				if err != nil {
					return fmt.Errorf("failed to build call tree: %w", err)
				}
				printTargetWithTree(target, callTree, fmt.Sprintf("⬆️ Callers (depth %d)", depth), "⬆️ Callers")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "recursion depth (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "pick the Nth match when the name is ambiguous")

	return cmd
}

func downstreamCmd() *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "downstream <method>",
		Short: "List the methods the given method calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			target, err := pickMethod(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.AnalyzeImpact(target.QualifiedName(), 1, depth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report.DirectCallees)
			case "markdown":
				fmt.Printf("## Downstream callees: %s\n\n", target.QualifiedName())
				printMethodTable(append(report.DirectCallees, report.IndirectCallees...))
			default:
				callTree, err := db.GetDownstreamCallTree(target.ID, depth)
				if err != nil {
					return fmt.Errorf("failed to build call tree: %w", err)
				}
				printTargetWithTree(target, callTree, fmt.Sprintf("⬇️ Callees (depth %d)", depth), "⬇️ Callees")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "recursion depth (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "pick the Nth match when the name is ambiguous")

	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "impact <method>",
		Short: "Analyze the change impact of a method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			target, err := pickMethod(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.AnalyzeImpact(target.QualifiedName(), upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report)
			case "markdown":
				fmt.Print(report.FormatMarkdown())
			default:
				fmt.Print(report.FormatTree())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 7, "upstream recursion depth")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 7, "downstream recursion depth")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "pick the Nth match when the name is ambiguous")

	return cmd
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all stored methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			methods, err := db.GetAllMethods()
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			fmt.Printf("%d methods:\n\n", len(methods))
			count := 0
			for _, m := range methods {
				if limit > 0 && count >= limit {
					fmt.Printf("... and %d more\n", len(methods)-limit)
					break
				}
				fmt.Printf("  %s\n    %s:%d\n", m.QualifiedName(), m.File, m.Line)
				count++
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of methods to show (0 = all)")

	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search stored methods by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			methods, err := db.FindMethodsByPattern(args[0])
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if len(methods) == 0 {
				fmt.Println("No matching methods found")
				return nil
			}

			fmt.Printf("%d matches:\n\n", len(methods))
			for _, m := range methods {
				fmt.Printf("  %s\n    %s:%d\n", m.QualifiedName(), m.File, m.Line)
			}
			return nil
		},
	}

	return cmd
}

func endpointsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the REST endpoints found in the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			endpoints, err := db.GetAllEndpoints()
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if format == "json" {
				return outputJSON(endpoints)
			}

			if len(endpoints) == 0 {
				fmt.Println("No endpoints found")
				return nil
			}
			fmt.Printf("%d endpoints:\n\n", len(endpoints))
			for _, ep := range endpoints {
				fmt.Printf("  %-6s %s\n         %s.%s\n", ep.HTTPMethod, ep.Path, ep.Class, ep.Method)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")

	return cmd
}

// printTargetWithTree prints the target method followed by its aligned
// call tree, or an empty tree marker.
func printTargetWithTree(target *storage.Method, tree []*storage.CallTreeNode, header, emptyHeader string) {
	maxWidth := len(display.ShortMethodName(target.QualifiedName()))
	maxDepth := 0
	display.CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)

	fmt.Println("📍 Target method")
	padding := maxWidth + maxDepth*4
	fmt.Printf("%-*s  %s:%d\n\n", padding, display.ShortMethodName(target.QualifiedName()), target.File, target.Line)

	if len(tree) > 0 {
		fmt.Println(header)
		printCallTree(tree, "", maxWidth, maxDepth, 0)
	} else {
		fmt.Println(emptyHeader)
		fmt.Println("└── (none)")
	}
}

func printMethodTable(methods []*storage.Method) {
	if len(methods) == 0 {
		fmt.Println("_none_")
		return
	}
	fmt.Println("| Method | File | Line |")
	fmt.Println("|--------|------|------|")
	for _, m := range methods {
		fmt.Printf("| %s | %s | %d |\n", m.QualifiedName(), m.File, m.Line)
	}
}
