package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Supported driver names, as registered with database/sql
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DefaultPort returns the conventional port for a driver, 0 for file databases
func DefaultPort(driver string) int {
	switch driver {
	case DriverMySQL:
		return 3306
	case DriverPostgres:
		return 5432
	default:
		return 0
	}
}

// ValidDriver reports whether the driver name is one this package can open
func ValidDriver(driver string) bool {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return true
	default:
		return false
	}
}

// Config holds database connection configuration
type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string // database name, or file path for sqlite3
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LookupFunc resolves an environment variable by name
type LookupFunc func(name string) (string, bool)

// LookupFromEnviron snapshots "KEY=value" pairs, typically os.Environ(), into a LookupFunc
func LookupFromEnviron(environ []string) LookupFunc {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}

	return func(name string) (string, bool) {
		value, ok := vars[name]
		return value, ok
	}
}

// ResolvePassword treats arg as the name of an environment variable holding the
// password. When the variable is not set, arg itself is the password.
func ResolvePassword(arg string, lookup LookupFunc) string {
	if lookup == nil {
		return arg
	}
	if value, ok := lookup(arg); ok {
		return value
	}
	return arg
}

// NewConnectionConfig builds a MySQL descriptor on the standard port
func NewConnectionConfig(user, password, host, database string, lookup LookupFunc) *Config {
	return &Config{
		Driver:   DriverMySQL,
		Host:     host,
		Port:     DefaultPort(DriverMySQL),
		User:     user,
		Password: ResolvePassword(password, lookup),
		Database: database,
	}
}

// DSN builds the driver-specific data source name
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL, "":
		return c.mysqlDSN(), nil
	case DriverPostgres:
		return c.postgresDSN(), nil
	case DriverSQLite:
		return c.sqliteDSN()
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func (c *Config) port() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultPort(c.Driver)
}

func (c *Config) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.port()))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

func (c *Config) postgresDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.port(),
		c.User,
		quoteLibpq(c.Password),
		c.Database,
		sslMode,
	)
}

// quoteLibpq quotes a value for a libpq key/value string when it needs it
func quoteLibpq(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *Config) sqliteDSN() (string, error) {
	path := c.Database
	if path == "" {
		return "", fmt.Errorf("sqlite3 requires a database file path")
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Redacted returns the descriptor fields that are safe to log
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"driver":   c.Driver,
		"host":     c.Host,
		"port":     c.port(),
		"user":     c.User,
		"database": c.Database,
	}
}
