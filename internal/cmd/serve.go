package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/3leaps/testharbor/internal/config"
	"github.com/3leaps/testharbor/internal/lifecycle"
	"github.com/3leaps/testharbor/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the ingestion/query HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}

	handlers.BuildVersion = buildInfo.Version

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	co, err := lifecycle.Start(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: start service: %w", err)
	}

	return co.Serve(ctx)
}
