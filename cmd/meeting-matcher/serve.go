package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/server"
	"github.com/pdiddy/meeting-matcher/internal/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the meeting source and the batch pipeline over HTTP:

  GET  /health
  POST /api/meetings/list
  POST /api/meetings/metadata
  POST /api/meetings/transcript
  POST /api/meetings/highlights
  POST /api/meetings/process
  GET  /metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :3010)")
	bindFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := source.Preflight(a.cfg.Source); err != nil {
		appLog.Warn("meeting source preflight failed; requests will fail until it is fixed",
			logging.F("mode", string(a.cfg.Source.Mode)), logging.Err(err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(a.cfg.Server, a.source, a.pipeline,
		server.WithLogger(appLog),
		server.WithGatherer(a.registry))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

