package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jcg",
		Short: "jcg - static call graph explorer for Java and Go projects",
		Long: `jcg statically analyzes a Java source tree or a Go module,
extracts classes, methods, call sites and REST endpoints into a SQLite
database, and explores the method invocation tree reachable from any
entry point.`,
		SilenceUsage: true,
	}

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
