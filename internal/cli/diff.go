package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/output"
	"github.com/shahbajlive/templar/internal/template"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Compare two templates",
		Long: `Diff compares two templates line by line. Each argument is either a
template YAML file or the ID of a recorded run, whose learned template
is used.

Example:
  templar diff templates/old.yaml templates/new.yaml
  templar diff 7b0c... templates/current.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			before, err := resolveTemplate(args[0])
			if err != nil {
				return err
			}
			after, err := resolveTemplate(args[1])
			if err != nil {
				return err
			}

			diff, err := output.DiffTemplates(before, after)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(diff)
			}

			fmt.Print(output.RenderDiff(diff, colorMode()))
			return nil
		},
	}

	return cmd
}

// resolveTemplate loads a template from a YAML file, or from a run in
// history when the argument is not an existing file.
func resolveTemplate(ref string) (*template.Template, error) {
	if _, err := os.Stat(ref); err == nil {
		return template.Load(ref)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	result, err := store.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a template file nor a recorded run: %w", ref, err)
	}
	return &result.Template, nil
}
