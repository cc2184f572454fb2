package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"road-weather-platform/internal/config"
	"road-weather-platform/internal/schema"
	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db := &cfg.Database
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.StringVar(&db.Driver, "driver", db.Driver, "Database driver: mysql, postgres, sqlite3")
	flag.StringVar(&db.Host, "host", db.Host, "Database host")
	flag.IntVar(&db.Port, "port", db.Port, "Database port")
	flag.StringVar(&db.User, "user", db.User, "Database user")
	flag.StringVar(&db.Password, "password", db.Password, "Database password, or the name of an environment variable holding it")
	flag.StringVar(&db.Database, "database", db.Database, "Database name (file path for sqlite3)")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["driver"] && !set["port"] && os.Getenv("DB_PORT") == "" {
		db.Port = database.DefaultPort(db.Driver)
	}

	dir, err := schema.ParseDirection(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger("road-weather-migrate")
	ctx := context.Background()

	if err := run(ctx, cfg, dir, logger, os.Stdout); err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Migration failed", logging.Fields{
			"driver":    cfg.Database.Driver,
			"direction": dir,
		}, err)
	}
}

// run applies one migration direction; the connection is closed before it returns
func run(ctx context.Context, cfg *config.Config, dir schema.Direction, logger *logging.StructuredLogger, out io.Writer) error {
	conn, err := database.NewDB(cfg.ConnectionConfig(database.LookupFromEnviron(os.Environ())), logger, metrics.NewCollector(cfg.Metrics.Namespace))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	fmt.Fprintln(out, "Connected to database successfully")
	fmt.Fprintf(out, "Running migration: %s %s\n", conn.Driver(), dir)

	if err := schema.Apply(ctx, conn.DB(), conn.Driver(), dir); err != nil {
		return err
	}

	fmt.Fprintln(out, "Migration completed successfully")
	return nil
}
