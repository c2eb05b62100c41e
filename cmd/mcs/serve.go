package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and review HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, cleanup, err := newApp(true)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := application.cfg.Server.ListenAddr
	if flagAddr, _ := cmd.Flags().GetString("listen"); flagAddr != "" {
		addr = flagAddr
	}

	srv := server.New(application.ingest, application.jobs, application.storage,
		application.cfg, slog.Default())

	go func() {
		<-cmd.Context().Done()
		slog.Info("shutting down http server")
		if err := srv.Shutdown(); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	return srv.Listen(addr)
}
