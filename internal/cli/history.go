package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/output"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded learning runs",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryPruneCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tGENERATED\tEXAMPLES\tTASKS\tCONFIDENCE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f (%s)\n",
					r.RunID,
					r.GeneratedAt.Local().Format("2006-01-02 15:04"),
					r.Examples,
					r.Tasks,
					r.Confidence,
					r.Level,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum runs to list (0 for all)")

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one recorded run, the latest by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			result, err := loadRun(args)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(result)
			}
			output.NewRenderer(os.Stdout, colorMode()).Result(result)
			return nil
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs, keeping the newest",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if keep <= 0 {
				keep = cfg.History.Keep
			}
			removed, err := store.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d run(s), kept the newest %d\n", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 0, "runs to keep (default from config)")

	return cmd
}
