package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/storage"
)

func implementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "implements <interface-or-class>",
		Short: "Show interface implementations and subclasses",
		Long: `Shows the classes that implement an interface, or that extend a class.

Examples:
  jcg implements PaymentGateway   # who implements PaymentGateway
  jcg implements AbstractHandler  # who extends AbstractHandler
  jcg implements --list           # list all interfaces`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listAll, _ := cmd.Flags().GetBool("list")

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if listAll {
				interfaces, err := db.GetInterfaces()
				if err != nil {
					return fmt.Errorf("query failed: %w", err)
				}
				if len(interfaces) == 0 {
					fmt.Println("No interfaces in the database, run `jcg analyze` first")
					return nil
				}
				fmt.Printf("%d interfaces:\n\n", len(interfaces))
				for _, iface := range interfaces {
					fmt.Printf("  %s\n    %s:%d\n", iface.Name, iface.File, iface.Line)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("provide an interface or class name, or use --list")
			}
			name := args[0]

			impls, err := db.GetImplementations(name)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			subs, err := db.GetSubclasses(name)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if len(impls) == 0 && len(subs) == 0 {
				fmt.Printf("No implementations or subclasses of %s found\n", name)
				return nil
			}

			if len(impls) > 0 {
				fmt.Printf("Implementations of %s (%d):\n\n", name, len(impls))
				for _, c := range impls {
					fmt.Printf("  %s\n    %s:%d\n", c.Name, c.File, c.Line)
				}
			}
			if len(subs) > 0 {
				if len(impls) > 0 {
					fmt.Println()
				}
				fmt.Printf("Subclasses of %s (%d):\n\n", name, len(subs))
				for _, c := range subs {
					fmt.Printf("  %s\n    %s:%d\n", c.Name, c.File, c.Line)
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("list", false, "list all interfaces")

	return cmd
}
