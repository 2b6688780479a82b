package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/weather-diary/internal/archive"
	"github.com/i474232898/weather-diary/internal/config"
	"github.com/i474232898/weather-diary/internal/partition"
	"github.com/i474232898/weather-diary/internal/weather/providers"
)

// rootEnv is shared by every command.
type rootEnv struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	datasetsDir string
	masterFile  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	env := &rootEnv{}
	cmd := &cobra.Command{
		Use:           "weather-diary",
		Short:         "Archive, partition and query a daily weather diary.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.logger != nil {
				_ = env.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&env.datasetsDir, "datasets", "", "Directory holding the partitions (overrides DATASETS_DIR)")
	cmd.PersistentFlags().StringVar(&env.masterFile, "master", "", "Master CSV file (overrides MASTER_FILE)")

	cmd.AddCommand(
		getServeCmd(env),
		getScrapeCmd(env),
		getPartitionCmd(env),
		getLookupCmd(env),
		getStatsCmd(env),
	)
	return cmd
}

func (e *rootEnv) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if e.datasetsDir != "" {
		cfg.DatasetsDir = e.datasetsDir
	}
	if e.masterFile != "" {
		cfg.MasterFile = e.masterFile
	}
	e.cfg = cfg

	if cfg.LogDevelopment {
		e.logger, err = zap.NewDevelopment()
	} else {
		e.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	return nil
}

// newService builds the archive service with the gismeteo source.
func (e *rootEnv) newService() *archive.Service {
	// Shared HTTP client for outbound diary fetches.
	httpClient := &http.Client{
		Timeout: e.cfg.HTTPTimeout,
	}
	source := providers.NewGismeteoProvider(httpClient, e.cfg.DiaryBaseURL, e.cfg.DiaryStation, e.logger)
	return archive.NewService(source, e.cfg.MasterFile, partition.Layout{Root: e.cfg.DatasetsDir}, e.logger)
}
