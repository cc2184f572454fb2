package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"road-weather-platform/internal/config"
	"road-weather-platform/internal/schema"
	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.Database = filepath.Join(t.TempDir(), "roadweather.db")
	return cfg
}

func TestRun_UpThenDown(t *testing.T) {
	cfg := sqliteConfig(t)
	logger := logging.NewStructuredLogger("migrate-test", "test", logging.InfoLevel)
	logger.SetOutput(&bytes.Buffer{})
	ctx := context.Background()

	for _, dir := range []schema.Direction{schema.DirectionUp, schema.DirectionDown, schema.DirectionUp} {
		var out bytes.Buffer
		if err := run(ctx, cfg, dir, logger, &out); err != nil {
			t.Fatalf("run(%s) error = %v", dir, err)
		}
		if !strings.Contains(out.String(), "Migration completed successfully") {
			t.Errorf("run(%s) output = %q", dir, out.String())
		}
	}
}

func TestRun_FailureClosesConnection(t *testing.T) {
	cfg := sqliteConfig(t)
	var logs bytes.Buffer
	logger := logging.NewStructuredLogger("migrate-test", "test", logging.InfoLevel)
	logger.SetOutput(&logs)
	ctx := context.Background()

	if err := run(ctx, cfg, schema.DirectionUp, logger, &bytes.Buffer{}); err != nil {
		t.Fatalf("first up error = %v", err)
	}

	logs.Reset()
	var out bytes.Buffer
	err := run(ctx, cfg, schema.DirectionUp, logger, &out)
	if err == nil {
		t.Fatal("Expected second up to fail on existing tables")
	}
	if strings.Contains(out.String(), "Migration completed successfully") {
		t.Errorf("failed run reported success: %q", out.String())
	}
	if !strings.Contains(logs.String(), "[DB_CLOSE]") {
		t.Errorf("connection not closed after failure, logs:\n%s", logs.String())
	}
}
