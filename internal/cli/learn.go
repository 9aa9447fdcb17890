package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/output"
)

func newLearnCmd() *cobra.Command {
	var (
		name      string
		outPath   string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "learn [example-id...]",
		Short: "Learn a template from completed stories",
		Long: `Learn analyzes the given examples (or every example the source
offers when none are named), consolidates their task breakdowns into a
template, and reports patterns, outliers, and confidence.

Example:
  templar learn                      # learn from every example
  templar learn STORY-1 STORY-2      # learn from specific stories
  templar learn --name sprint -o sprint.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := buildSource()
			if err != nil {
				return err
			}

			learnCfg := cfg.LearnConfig()
			if name != "" {
				learnCfg.TemplateName = name
			}

			learner := learn.New(src, learnCfg)
			var result *learn.Result
			if len(args) == 0 {
				result, err = learner.LearnAll(cmd.Context())
			} else {
				result, err = learner.Learn(cmd.Context(), args)
			}
			if err != nil {
				return err
			}

			if !noHistory {
				if err := saveHistory(result); err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
				}
			}

			path := outPath
			if path == "" {
				path = filepath.Join(cfg.TemplatesDir, result.Template.Name+".yaml")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create template dir: %w", err)
			}
			if err := result.Template.Save(path); err != nil {
				return err
			}

			if jsonOut {
				return printJSON(result)
			}

			output.NewRenderer(os.Stdout, colorMode()).Result(result)
			fmt.Printf("template written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "template name (default from config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "template output file (default <templates_dir>/<name>.yaml)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording the run in history")

	return cmd
}

// saveHistory records a run in the configured history store.
func saveHistory(result *learn.Result) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(result)
}
