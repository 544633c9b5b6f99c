package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/invoker/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diagnostics server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layer, err := control.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize invocation layer", "error", err)
		return err
	}

	slog.Info("Invocation layer started", "config", cfgPath)
	if err := layer.Run(ctx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		return err
	}
	return nil
}
