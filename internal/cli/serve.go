package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/serve"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the learning API server",
		Long: `Serve exposes the engine over HTTP: trigger learning runs, browse
run history, fetch reports, and stream run progress over WebSocket.

Endpoints:
  POST /api/v1/learn
  GET  /api/v1/runs
  GET  /api/v1/runs/{id}
  GET  /api/v1/runs/{id}/report
  GET  /api/v1/ws
  GET  /api/v1/health`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := buildSource()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := serve.NewServer(src, cfg.LearnConfig(), store)
			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")

	return cmd
}
