package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/output"
	"github.com/shahbajlive/templar/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-learn whenever the examples directory changes",
		Long: `Watch monitors the configured examples directory and re-runs
learning after each settled burst of changes, rewriting the template
and recording the run. Requires a directory source.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Source.Dir == "" {
				return fmt.Errorf("watch requires a directory source: set source.dir")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// One run up front so the template reflects the current state.
			relearn(ctx)

			w, err := watch.New(cfg.Source.Dir, debounce, func() { relearn(ctx) })
			if err != nil {
				return err
			}

			err = w.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "settle time before re-learning")

	return cmd
}

// relearn runs one learning pass and writes the template; failures are
// reported but never stop the watch loop.
func relearn(ctx context.Context) {
	src, err := buildSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relearn failed: %v\n", err)
		return
	}

	result, err := learn.New(src, cfg.LearnConfig()).LearnAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relearn failed: %v\n", err)
		return
	}

	if err := saveHistory(result); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
	}

	path := filepath.Join(cfg.TemplatesDir, result.Template.Name+".yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "relearn failed: %v\n", err)
		return
	}
	if err := result.Template.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "relearn failed: %v\n", err)
		return
	}

	output.NewRenderer(os.Stdout, colorMode()).Result(result)
	fmt.Printf("template written to %s\n", path)
}
