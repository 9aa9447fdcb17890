// Package cli wires the templar commands: learning runs, template
// inspection, validation, serving, and watching.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/config"
	"github.com/shahbajlive/templar/internal/output"
	"github.com/shahbajlive/templar/internal/source"
)

var (
	cfgPath string
	verbose bool
	jsonOut bool
	cfg     *config.Config
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the templar command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "templar",
		Short: "Learn task-breakdown templates from completed stories",
		Long: `templar analyzes completed stories and their child tasks, detects
the breakdown patterns they share, and produces a reusable template
with per-task estimation shares, outlier findings, and a confidence
score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(verbose)
			loaded, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/templar/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable JSON")

	root.AddCommand(
		newLearnCmd(),
		newShowCmd(),
		newDiffCmd(),
		newValidateCmd(),
		newOrderCmd(),
		newServeCmd(),
		newWatchCmd(),
		newHistoryCmd(),
	)

	return root
}

// setupLogging routes slog to stderr so stdout stays clean for command
// output.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// buildSource resolves the configured example source. A directory wins
// over a tracker URL when both are set.
func buildSource() (source.Source, error) {
	switch {
	case cfg.Source.Dir != "":
		return source.NewDirSource(cfg.Source.Dir), nil
	case cfg.Source.URL != "":
		httpCfg := source.DefaultHTTPConfig(cfg.Source.URL)
		httpCfg.Token = cfg.Source.Token
		if cfg.Source.RequestsPerSecond > 0 {
			httpCfg.RequestsPerSecond = cfg.Source.RequestsPerSecond
		}
		if cfg.Source.Timeout.Duration > 0 {
			httpCfg.Timeout = cfg.Source.Timeout.Duration
		}
		return source.NewHTTPSource(httpCfg), nil
	default:
		return nil, fmt.Errorf("no example source configured: set source.dir or source.url")
	}
}

// colorMode maps the config color setting onto the renderer.
func colorMode() output.ColorMode {
	switch cfg.Output.Color {
	case "always":
		return output.ColorAlways
	case "never":
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

// printJSON writes a value as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
