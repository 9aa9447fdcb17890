package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/output"
)

func newShowCmd() *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a recorded learning run",
		Long: `Show displays a run from history: the latest one by default, or the
run named by ID. With --report a markdown report is rendered instead
of the standard summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			result, err := loadRun(args)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(result)
			}
			if report {
				md := output.MarkdownReport(result)
				fmt.Print(output.RenderMarkdown(md, colorMode()))
				return nil
			}

			output.NewRenderer(os.Stdout, colorMode()).Result(result)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&report, "report", "r", false, "render a markdown report")

	return cmd
}

// loadRun fetches the requested (or latest) run from history.
func loadRun(args []string) (*learn.Result, error) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if len(args) == 1 {
		return store.Get(args[0])
	}
	return store.Latest()
}
