package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/callstack"
	"github.com/mkravets/jcg/internal/storage"
)

func stackCmd() *cobra.Command {
	var lang string
	var resolve string
	var maxDepth int
	var maxNodes int
	var asJSON bool
	var save bool

	cmd := &cobra.Command{
		Use:   "stack <class> <method> [project-path]",
		Short: "Explore the call tree reachable from an entry method",
		Long: `Reconstructs the method invocation tree reachable from the given
entry class and method, depth-first in source order. Branches stop at
recursion, at calls into code outside the project, and at the optional
depth or node budget.

Examples:
  jcg stack com.shop.OrderService placeOrder ./shop
  jcg stack OrderService placeOrder --resolve signature
  jcg stack Main main --max-depth 12 --json`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			className, methodName := args[0], args[1]
			projectPath := "."
			if len(args) > 2 {
				projectPath = args[2]
			}

			if resolve == "" {
				resolve = cfg.Stack.Resolve
			}
			mode, err := resolutionMode(resolve)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-depth") && cfg.Stack.MaxDepth > 0 {
				maxDepth = cfg.Stack.MaxDepth
			}
			if !cmd.Flags().Changed("max-nodes") && cfg.Stack.MaxNodes > 0 {
				maxNodes = cfg.Stack.MaxNodes
			}

			prog, err := loadProgram(projectPath, lang)
			if err != nil {
				return fmt.Errorf("loading program: %w", err)
			}

			explorer := callstack.New(prog,
				callstack.WithResolutionMode(mode),
				callstack.WithMaxDepth(maxDepth),
				callstack.WithMaxNodes(maxNodes),
			)
			root := explorer.Explore(className, methodName)
			rendered := callstack.Render(root)

			if asJSON {
				if err := outputJSON(root); err != nil {
					return err
				}
			} else {
				fmt.Print(rendered)
			}

			if save {
				db, err := storage.Open(DbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer db.Close()

				tree, err := json.Marshal(root)
				if err != nil {
					return fmt.Errorf("encoding tree: %w", err)
				}
				id, err := db.SaveAnalysis(className, methodName, string(mode), rendered, string(tree))
				if err != nil {
					return fmt.Errorf("saving analysis: %w", err)
				}
				fmt.Printf("Saved analysis #%d to %s\n", id, DbPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "auto", "source language (auto/java/go)")
	cmd.Flags().StringVar(&resolve, "resolve", "", "target resolution mode (name/signature)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum expansion depth (0 = unlimited)")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "maximum tree size (0 = unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured tree as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "persist the result to the database")

	return cmd
}
