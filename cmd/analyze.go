package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/facts"
	"github.com/mkravets/jcg/internal/gitdiff"
	"github.com/mkravets/jcg/internal/java"
	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
)

func analyzeCmd() *cobra.Command {
	var lang string
	var outputPath string
	var incremental bool
	var gitBase string
	var remote bool
	var exclude []string

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "Analyze a project and store its call graph facts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			if outputPath != "" {
				DbPath = outputPath
			}
			language := detectLanguage(projectPath, lang)

			// Incremental mode: restrict database writes to the files
			// git reports as changed. The full tree is still parsed so
			// call sites resolve across the whole program.
			var changedFiles []string
			if incremental {
				if remote {
					branch, err := gitdiff.RemoteTrackingBranch(projectPath)
					if err != nil {
						fmt.Printf("warning: %v, comparing against HEAD\n", err)
					} else {
						gitBase = branch
						fmt.Printf("Comparing against remote branch %s\n", branch)
					}
				}

				changes, err := gitdiff.GetChanges(projectPath, gitBase, sourceExtension(language))
				if err != nil {
					fmt.Printf("warning: %v, falling back to full analysis\n", err)
					incremental = false
				} else if !changes.HasChanges() {
					fmt.Println("No source changes detected, nothing to do")
					return nil
				} else {
					fmt.Printf("Detected %d changed files:\n", len(changes.Files))
					for _, f := range changes.Files {
						fmt.Printf("  - %s\n", f)
					}
					changedFiles = changes.Files
				}
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			start := time.Now()
			stats, err := runAnalysis(projectPath, language, db, expandChangedFiles(projectPath, changedFiles), exclude...)
			if err != nil {
				return err
			}

			fmt.Printf("Database: %s\n", DbPath)
			fmt.Printf("Done in %v: %d classes, %d methods, %d call sites (%d resolved), %d endpoints\n",
				time.Since(start).Round(time.Millisecond),
				stats.Classes, stats.Methods, stats.Invocations, stats.Resolved, stats.Endpoints)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "auto", "source language (auto/java/go)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output database path (overrides --db)")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "only rewrite facts for files changed in git")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git comparison base (HEAD compares uncommitted changes)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "compare against the remote tracking branch")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "directory names to skip during source discovery")

	return cmd
}

// runAnalysis parses the project and stores its facts. A non-nil
// targetFiles set switches to incremental writes: rows for those files
// are replaced and dangling call links repaired; everything else stays.
func runAnalysis(projectPath, language string, db *storage.DB, targetFiles []string, excludes ...string) (*storage.Stats, error) {
	prog, err := loadProgram(projectPath, language, excludes...)
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}
	fmt.Printf("Parsed %d classes, %d methods (%s)\n", len(prog.Classes), prog.MethodCount(), prog.Language)

	if len(targetFiles) > 0 {
		deleted, err := db.DeleteClassesByFiles(targetFiles)
		if err != nil {
			return nil, fmt.Errorf("removing stale facts: %w", err)
		}
		fmt.Printf("Incremental mode: replaced %d stale classes\n", deleted)
	} else {
		if err := db.Clear(); err != nil {
			return nil, fmt.Errorf("clearing database: %w", err)
		}
	}

	builder := facts.NewBuilder(db, model.ResolveByName)
	if len(targetFiles) > 0 {
		builder.SetTargetFiles(targetFiles)
	}
	if err := builder.Build(prog); err != nil {
		return nil, fmt.Errorf("storing facts: %w", err)
	}

	if prog.Language == "java" {
		if err := builder.BuildEndpoints(prog, java.Endpoints(prog.Classes)); err != nil {
			return nil, fmt.Errorf("storing endpoints: %w", err)
		}
	}

	if len(targetFiles) > 0 {
		relinked, err := db.RelinkInvocations()
		if err != nil {
			return nil, fmt.Errorf("relinking call sites: %w", err)
		}
		if relinked > 0 {
			fmt.Printf("Repaired %d call links\n", relinked)
		}
	}

	return db.GetStats()
}

// expandChangedFiles returns both the git-relative form of each changed
// file and its project-joined form, since the Java front end records
// walked paths while git reports repo-relative ones.
func expandChangedFiles(projectPath string, files []string) []string {
	if len(files) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		for _, p := range []string{f, filepath.Join(projectPath, f)} {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
