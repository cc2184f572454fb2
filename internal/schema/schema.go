// Package schema creates and drops the station_data and weather_data tables.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed sql/*/*.sql
var migrationFiles embed.FS

const migrationName = "0001_create_schema"

// Direction selects which half of the migration runs
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a -direction flag value
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("invalid migration direction %q (allowed: up, down)", s)
	}
}

// Execer is satisfied by *sql.DB, *sql.Tx and *sqlx.DB
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Statements returns the DDL statements for a driver and direction, in execution order
func Statements(driver string, dir Direction) ([]string, error) {
	path := fmt.Sprintf("sql/%s/%s.%s.sql", driver, migrationName, dir)
	content, err := migrationFiles.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no %s migration for driver %q: %w", dir, driver, err)
	}
	return splitStatements(string(content)), nil
}

// Apply runs every statement of the migration, stopping at the first failure.
// The up migration uses plain CREATE TABLE, so applying it twice fails.
func Apply(ctx context.Context, db Execer, driver string, dir Direction) error {
	statements, err := Statements(driver, dir)
	if err != nil {
		return err
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %s statement %d of %s: %w", dir, i+1, migrationName, err)
		}
	}
	return nil
}

// Up creates both tables and the station index
func Up(ctx context.Context, db Execer, driver string) error {
	return Apply(ctx, db, driver, DirectionUp)
}

// Down drops both tables
func Down(ctx context.Context, db Execer, driver string) error {
	return Apply(ctx, db, driver, DirectionDown)
}

// splitStatements drops "--" comment lines and splits on ';'. The DDL files
// contain no string literals, so no quoting rules are needed.
func splitStatements(content string) []string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var statements []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
