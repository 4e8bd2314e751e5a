package main

import (
	"context"
	"errors"
	"time"

	"verified-export/internal/di"
	"verified-export/internal/export/config"
	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"
	"verified-export/internal/shared/utils"

	"github.com/spf13/cobra"
)

// rootFlags holds command line overrides. A flag only replaces the
// environment value when it was set explicitly.
type rootFlags struct {
	uri             string
	database        string
	outputDir       string
	connectTimeout  time.Duration
	continueOnError bool
	atomicWrites    bool
	redisAddr       string
	eventsStream    string
	runID           string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "verified-export",
		Short: "Export verified records of every collection to CSV",
		Long: `verified-export connects to a MongoDB database and writes one CSV file per
collection, named after the collection. Each file has the header
"Reg No.,verified,verified at" followed by one row per record whose
verified field is true. Collections prefixed with "system." are skipped.

Configuration comes from the environment (MONGODB_URI, DATABASE_NAME,
EXPORT_OUTPUT_DIR, ...) and may be overridden by flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if flags.runID != "" {
				ctx = utils.WithRunID(ctx, flags.runID)
			}
			return runExport(ctx, cfg, logger.NewLogger())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.uri, "uri", "", "MongoDB connection string (env MONGODB_URI)")
	f.StringVarP(&flags.database, "database", "d", defaults.DatabaseName, "database to export (env DATABASE_NAME)")
	f.StringVarP(&flags.outputDir, "output-dir", "o", defaults.OutputDir, "directory the CSV files are written to (env EXPORT_OUTPUT_DIR)")
	f.DurationVar(&flags.connectTimeout, "connect-timeout", defaults.ConnectTimeout, "time allowed to reach the server (env EXPORT_CONNECT_TIMEOUT)")
	f.BoolVar(&flags.continueOnError, "continue-on-error", defaults.ContinueOnError, "export remaining collections after one fails (env EXPORT_CONTINUE_ON_ERROR)")
	f.BoolVar(&flags.atomicWrites, "atomic-writes", defaults.AtomicWrites, "write each file to a temporary name and rename it when complete (env EXPORT_ATOMIC_WRITES)")
	f.StringVar(&flags.redisAddr, "redis-addr", "", "Redis address for export events, empty disables them (env REDIS_ADDR)")
	f.StringVar(&flags.eventsStream, "events-stream", defaults.Redis.Stream, "Redis stream export events are appended to (env EXPORT_EVENTS_STREAM)")
	f.StringVar(&flags.runID, "run-id", "", "identifier for this run in logs and events, generated when empty")

	return cmd
}

// apply copies the explicitly set flags onto cfg.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("uri") {
		cfg.MongoDBURI = f.uri
	}
	if set("database") {
		cfg.DatabaseName = f.database
	}
	if set("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if set("connect-timeout") {
		cfg.ConnectTimeout = f.connectTimeout
	}
	if set("continue-on-error") {
		cfg.ContinueOnError = f.continueOnError
	}
	if set("atomic-writes") {
		cfg.AtomicWrites = f.atomicWrites
	}
	if set("redis-addr") {
		cfg.Redis.Addr = f.redisAddr
	}
	if set("events-stream") {
		cfg.Redis.Stream = f.eventsStream
	}
}

// runExport connects, runs one export and disconnects. No file is created
// when the connection cannot be established.
func runExport(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.WithFields(map[string]interface{}{
		"database":   cfg.DatabaseName,
		"output_dir": cfg.OutputDir,
		"events":     cfg.Redis.Enabled(),
	}).Info("Starting export")

	container := di.NewContainer(cfg, log)
	return finishExport(exportWith(ctx, container, log), container.Close, log)
}

func exportWith(ctx context.Context, container *di.Container, log logger.Logger) error {
	if err := container.InitializeMongo(ctx); err != nil {
		log.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	if err := container.InitializeExport(); err != nil {
		return err
	}
	_, err := container.GetExportModule().Run(ctx)
	return err
}

// finishExport releases the run's resources and only then reports the
// outcome, so the final line is logged after the client has disconnected.
func finishExport(err error, closeFn func() error, log logger.Logger) error {
	if cerr := closeFn(); cerr != nil {
		log.WithError(cerr).Warn("Failed to close container")
	}

	var failures *apperrors.CollectionErrors
	switch {
	case err == nil:
		log.Info("Finished exporting CSV files.")
	case errors.As(err, &failures):
		log.WithError(err).Error("Finished exporting CSV files with errors.")
	}
	return err
}
