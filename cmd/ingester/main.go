package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"road-weather-platform/internal/config"
	"road-weather-platform/internal/feed"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

const metricsJob = "road_weather_ingester"

// app carries the state shared by all subcommands of one invocation
type app struct {
	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ingester",
		Short: "Road weather feed ingester",
		Long: `Ingester loads DATEX II road weather feeds into a relational store.
Measurement site tables become station rows (upserted by id), measured data
publications become weather readings (append-only).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfg.Logging.Level, "log-level", a.cfg.Logging.Level, "log level: debug, info, warn, error")
	flags.StringVar(&a.cfg.Metrics.PushgatewayURL, "push-gateway", a.cfg.Metrics.PushgatewayURL, "Pushgateway URL to push run metrics to")
	flags.StringVar(&a.cfg.Metrics.Textfile, "metrics-textfile", a.cfg.Metrics.Textfile, "write run metrics to this node_exporter textfile")

	rootCmd.AddCommand(
		newIngestCmd(a, feed.KindStations, "Upsert stations from a measurement site table feed"),
		newIngestCmd(a, feed.KindReadings, "Insert weather readings from a measured data feed"),
		newInspectCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger = a.cfg.NewLogger("road-weather-ingester")
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.metrics = metrics.NewCollector(a.cfg.Metrics.Namespace)
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg}
	ctx := logging.WithRunID(context.Background(), uuid.NewString())

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		if a.logger == nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		a.logger.Fatal(ctx, "[INGESTER_ERROR] Run failed", logging.Fields{
			"args": os.Args[1:],
		}, err)
	}
}
