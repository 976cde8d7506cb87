package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"minirag/backend/internal/app"
	"minirag/backend/internal/config"
	"minirag/backend/internal/logger"
)

var (
	cfg       *config.Config
	useMemory bool
)

var rootCmd = &cobra.Command{
	Use:           "minirag",
	Short:         "Retrieval-augmented question answering over your documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if useMemory {
			cfg.VectorBackend = "memory"
		}
		slog.SetDefault(logger.New(os.Stderr, cfg.LogLevel))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cfg, slog.Default())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "use the in-process vector index instead of Weaviate")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// run bootstraps the dependencies and serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	application, err := app.New(cfg, deps, logger)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
