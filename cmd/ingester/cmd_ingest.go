package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"road-weather-platform/internal/feed"
	"road-weather-platform/internal/repository"
	"road-weather-platform/internal/services"
	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
)

func newIngestCmd(a *app, kind feed.Kind, short string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("driver") && !cmd.Flags().Changed("port") && os.Getenv("DB_PORT") == "" {
				a.cfg.Database.Port = database.DefaultPort(a.cfg.Database.Driver)
			}
			return a.runIngest(cmd, kind, file)
		},
	}

	db := &a.cfg.Database
	flags := cmd.Flags()
	flags.StringVar(&file, "file", "", "feed file to ingest (.xml or .xml.gz)")
	flags.StringVar(&db.User, "user", db.User, "database user")
	flags.StringVar(&db.Password, "password", db.Password, "database password, or the name of an environment variable holding it")
	flags.StringVar(&db.Host, "host", db.Host, "database host")
	flags.IntVar(&db.Port, "port", db.Port, "database port")
	flags.StringVar(&db.Database, "database", db.Database, "database name (file path for sqlite3)")
	flags.StringVar(&db.Driver, "driver", db.Driver, "database driver: mysql, postgres, sqlite3")
	cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) runIngest(cmd *cobra.Command, kind feed.Kind, path string) error {
	ctx := cmd.Context()
	defer a.exportMetrics(ctx)

	dbConfig := a.cfg.ConnectionConfig(database.LookupFromEnviron(os.Environ()))

	a.logger.Info(ctx, "[INGESTER_START] Starting feed ingestion", logging.Fields{
		"kind":     kind,
		"file":     path,
		"database": dbConfig.Redacted(),
	})

	db, err := database.NewDB(dbConfig, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewWeatherRepository(db, a.logger, a.metrics)
	ingestion := services.NewIngestionService(repo, a.logger, a.metrics)

	result, err := ingestion.Ingest(ctx, kind, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d extracted, %d rows written in %v\n",
		result.Kind, result.Extracted, result.RowsWritten, result.Duration)
	return nil
}

// exportMetrics pushes or writes the run's metrics when configured. Failures
// are logged and do not change the run's outcome.
func (a *app) exportMetrics(ctx context.Context) {
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		if err := a.metrics.Push(ctx, url, metricsJob); err != nil {
			a.logger.Warn(ctx, "[METRICS_PUSH_ERROR] Failed to push metrics", logging.Fields{
				"url":   url,
				"error": err.Error(),
			})
		}
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.logger.Warn(ctx, "[METRICS_TEXTFILE_ERROR] Failed to write metrics textfile", logging.Fields{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
}
