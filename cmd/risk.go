package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/display"
	"github.com/mkravets/jcg/internal/storage"
)

func riskCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "risk [method]",
		Short: "Rank methods by change risk",
		Long: `Assesses the change risk of a method from its direct caller count.

Risk levels:
  - critical: >= 50 direct callers
  - high:     >= 20
  - medium:   >= 5
  - low:      everything else

Examples:
  jcg risk OrderService.place   # risk of a single method
  jcg risk --top 20             # the 20 riskiest methods`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showTop, _ := cmd.Flags().GetBool("top")

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if showTop || len(args) == 0 {
				risks, err := db.GetTopRiskyMethods(limit)
				if err != nil {
					return fmt.Errorf("query failed: %w", err)
				}
				if len(risks) == 0 {
					fmt.Println("No methods in the database, run `jcg analyze` first")
					return nil
				}

				fmt.Printf("Riskiest methods (top %d)\n\n", limit)
				for _, r := range risks {
					fmt.Printf("%s %-8s  %s\n", riskIcon(r.RiskLevel), r.RiskLevel,
						display.ShortMethodName(r.Method.QualifiedName()))
					fmt.Printf("             callers: %d  complexity: %d  %s:%d\n\n",
						r.DirectCallers, r.Method.Complexity, r.Method.File, r.Method.Line)
				}
				fmt.Println("Levels: 🔴 critical(>=50) 🟠 high(>=20) 🟡 medium(>=5) 🟢 low")
				return nil
			}

			target, err := pickMethod(db, args[0], 0)
			if err != nil {
				return err
			}
			callers, err := db.GetDirectCallerCount(target.ID)
			if err != nil {
				return fmt.Errorf("counting callers: %w", err)
			}
			level := storage.CalculateRiskLevel(callers)

			fmt.Printf("## Change risk: %s\n\n", display.ShortMethodName(target.QualifiedName()))
			fmt.Printf("**Location:** %s:%d\n", target.File, target.Line)
			fmt.Printf("**Signature:** `%s`\n\n", display.ShortSignature(target.Signature))
			fmt.Printf("### Risk level: %s %s\n\n", riskIcon(level), level)
			fmt.Printf("Direct callers: %d\n", callers)
			fmt.Printf("Complexity: %d\n", target.Complexity)

			fmt.Println("\n**Suggestions:**")
			switch level {
			case "critical", "high":
				fmt.Println("- This method has many callers, change it carefully")
				fmt.Println("- Run `jcg impact` for the full affected set before editing")
			case "medium":
				fmt.Println("- Moderate risk, check the callers with `jcg upstream`")
			default:
				fmt.Println("- Low risk, the affected area is small")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "how many methods to list")
	cmd.Flags().Bool("top", false, "show the riskiest methods list")

	return cmd
}

func riskIcon(level string) string {
	switch level {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	default:
		return "🟢"
	}
}
