package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/mcp"
	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
	"github.com/mkravets/jcg/internal/watcher"
)

func mcpCmd() *cobra.Command {
	var project string
	var lang string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server",
		Long: `Starts an MCP server over stdio so AI assistants can query the call
graph directly.

Tools:
  - stack: explore the call tree from an entry class and method
  - impact: analyze the change impact of a method
  - upstream: list a method's callers
  - downstream: list a method's callees
  - search: search stored methods
  - endpoints: list REST endpoints`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			var prog *model.Program
			if project != "" {
				prog, err = loadProgram(project, lang)
				if err != nil {
					return fmt.Errorf("loading program: %w", err)
				}
			}

			server := mcp.NewServer(db, prog)
			return server.Run()
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project path to load for the stack tool")
	cmd.Flags().StringVar(&lang, "lang", "auto", "source language (auto/java/go)")

	return cmd
}

func watchCmd() *cobra.Command {
	var lang string
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "Watch the project and reanalyze on change",
		Long: `Watches the project tree for source changes and keeps the fact
database up to date. Changes are debounced, build output and hidden
directories are ignored, and only the changed files are rewritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			language := detectLanguage(projectPath, lang)
			if !cmd.Flags().Changed("debounce") && cfg.Watch.DebounceMs > 0 {
				debounceMs = cfg.Watch.DebounceMs
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			fmt.Println("Running initial analysis...")
			stats, err := runAnalysis(projectPath, language, db, nil)
			if err != nil {
				return fmt.Errorf("initial analysis failed: %w", err)
			}
			fmt.Printf("Initial analysis done: %d classes, %d methods, %d call sites\n\n",
				stats.Classes, stats.Methods, stats.Invocations)

			reanalyze := func(changed []string) (*storage.Stats, error) {
				return runAnalysis(projectPath, language, db, withRelativeForms(projectPath, changed))
			}

			w, err := watcher.New(
				projectPath,
				reanalyze,
				watcher.WithExtensions(sourceExtension(language)),
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnAnalysisStart(func(files []string) {
					fmt.Printf("[%s] %d files changed, reanalyzing...\n",
						time.Now().Format("15:04:05"), len(files))
				}),
				watcher.WithOnAnalysisDone(func(stats *storage.Stats, duration time.Duration) {
					fmt.Printf("[%s] done: %d classes, %d methods, %d call sites (%v)\n",
						time.Now().Format("15:04:05"),
						stats.Classes, stats.Methods, stats.Invocations,
						duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}

			fmt.Printf("Watching %s (database %s, debounce %dms)\n", projectPath, DbPath, debounceMs)
			fmt.Println("Press Ctrl+C to stop...")

			w.Start()
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\nStopping...")
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "auto", "source language (auto/java/go)")
	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce delay in milliseconds")

	return cmd
}

// withRelativeForms adds the project-relative form of each changed path,
// since the Go front end records root-relative file names.
func withRelativeForms(projectPath string, files []string) []string {
	out := make([]string, 0, len(files)*2)
	seen := make(map[string]bool)
	for _, f := range files {
		for _, p := range []string{f, relativeTo(projectPath, f)} {
			if p != "" && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	return rel
}
