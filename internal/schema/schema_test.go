package schema

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "schema.db") + "?_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

func TestUpCreatesTables(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	if err := Up(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	for _, table := range []string{"station_data", "weather_data"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s was not created", table)
		}
	}

	var index string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'weather_data' AND name = 'idx_weather_data_station_id'`).Scan(&index)
	if err != nil {
		t.Errorf("station index missing: %v", err)
	}
}

func TestUpTwiceFails(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	if err := Up(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("first Up() error = %v", err)
	}

	err := Up(ctx, db, "sqlite3")
	if err == nil {
		t.Fatal("Expected second Up() to fail against an initialized store")
	}
	if !strings.Contains(err.Error(), "statement 1") {
		t.Errorf("error = %v, want failure on the first statement", err)
	}
}

func TestDownThenUp(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	if err := Up(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if err := Down(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if tableExists(t, db, "station_data") || tableExists(t, db, "weather_data") {
		t.Fatal("tables still present after Down()")
	}
	if err := Up(ctx, db, "sqlite3"); err != nil {
		t.Errorf("Up() after Down() error = %v", err)
	}
}

func TestForeignKeyEnforced(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	if err := Up(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	_, err := db.ExecContext(ctx, `INSERT INTO weather_data (station_id) VALUES ('NOPE')`)
	if err == nil {
		t.Error("Expected foreign key violation for unknown station")
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		driver string
		dir    Direction
		want   int
	}{
		{driver: "mysql", dir: DirectionUp, want: 3},
		{driver: "mysql", dir: DirectionDown, want: 2},
		{driver: "postgres", dir: DirectionUp, want: 3},
		{driver: "postgres", dir: DirectionDown, want: 2},
		{driver: "sqlite3", dir: DirectionUp, want: 3},
		{driver: "sqlite3", dir: DirectionDown, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.driver+"_"+string(tt.dir), func(t *testing.T) {
			statements, err := Statements(tt.driver, tt.dir)
			if err != nil {
				t.Fatalf("Statements() error = %v", err)
			}
			if len(statements) != tt.want {
				t.Fatalf("got %d statements, want %d: %q", len(statements), tt.want, statements)
			}
			for _, stmt := range statements {
				if strings.HasPrefix(stmt, "--") {
					t.Errorf("statement still carries a comment: %q", stmt)
				}
			}
		})
	}

	if _, err := Statements("oracle", DirectionUp); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{input: "up", want: DirectionUp},
		{input: "DOWN", want: DirectionDown},
		{input: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
