package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/export"
	"github.com/mkravets/jcg/internal/gitdiff"
	"github.com/mkravets/jcg/internal/storage"
)

func exportCmd() *cobra.Command {
	var format string
	var outputFile string
	var incremental bool
	var gitBase string
	var noMermaid bool
	var projectName string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored call graph as a document",
		Long:  "Exports the stored facts as a Markdown project document, a JSON graph dump, or a Graphviz DOT digraph.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			exporter := export.NewExporter(db)
			opts := export.DefaultExportOptions()
			opts.IncludeMermaid = !noMermaid
			if projectName != "" {
				opts.ProjectName = projectName
			}

			var w *os.File
			if outputFile == "" || outputFile == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer w.Close()
			}

			switch format {
			case "json":
				return exporter.ExportJSON(w)
			case "dot":
				return exporter.ExportDot(w)
			case "md", "markdown":
				if incremental {
					cwd, _ := os.Getwd()
					changes, err := gitdiff.GetChanges(cwd, gitBase, ".java")
					if err != nil {
						return fmt.Errorf("detecting git changes: %w", err)
					}
					if !changes.HasChanges() {
						fmt.Fprintln(os.Stderr, "No changes detected")
						return nil
					}
					fmt.Fprintf(os.Stderr, "Detected %d changed files\n", len(changes.Files))
					return exporter.ExportIncremental(w, changes.Files, opts)
				}
				return exporter.ExportMarkdown(w, opts)
			default:
				return fmt.Errorf("unknown format %q (want md, json or dot)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format (md/json/dot)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "only export the parts changed in git")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git comparison base")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "skip the Mermaid architecture diagram")
	cmd.Flags().StringVar(&projectName, "name", "", "project name used in the document header")

	return cmd
}

func pushCmd() *cobra.Command {
	var uri, user, password, database string
	var clean bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Mirror the stored call graph into Neo4j",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uri == "" {
				uri = cfg.Neo4j.URI
			}
			if user == "" {
				user = cfg.Neo4j.User
			}
			if password == "" {
				password = cfg.Neo4j.Password
			}
			if database == "" {
				database = cfg.Neo4j.Database
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			pusher, err := export.NewPusher(cmd.Context(), db, uri, user, password, database)
			if err != nil {
				return err
			}
			defer pusher.Close()

			if clean {
				if err := pusher.CleanGraph(); err != nil {
					return fmt.Errorf("cleaning graph: %w", err)
				}
			}
			if err := pusher.CreateIndexes(); err != nil {
				return fmt.Errorf("creating indexes: %w", err)
			}
			return pusher.Push()
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Neo4j connection URI")
	cmd.Flags().StringVar(&user, "user", "", "Neo4j user")
	cmd.Flags().StringVar(&password, "password", "", "Neo4j password")
	cmd.Flags().StringVar(&database, "database", "", "Neo4j database name")
	cmd.Flags().BoolVar(&clean, "clean", false, "remove previously pushed data first")

	return cmd
}
