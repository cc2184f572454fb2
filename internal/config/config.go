// Package config loads settings for the ingester, migrate and server binaries.
// Defaults are overlaid by an optional YAML file named in CONFIG_FILE, then by
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
)

// Config is the full application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type AppConfig struct {
	Env     string `yaml:"env"`
	Version string `yaml:"version"`
}

// DatabaseConfig describes the target store. Password may hold the name of an
// environment variable that carries the real password.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Namespace      string `yaml:"namespace"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Textfile       string `yaml:"textfile"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:     "dev",
			Version: "1.0.0",
		},
		Database: DatabaseConfig{
			Driver:          database.DriverMySQL,
			Host:            "localhost",
			Port:            database.DefaultPort(database.DriverMySQL),
			User:            "root",
			Database:        "roadweather",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Namespace: "road_weather",
		},
	}
}

// LoadConfig builds the configuration from defaults, CONFIG_FILE and the environment
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Switching driver without naming a port picks the driver's own default.
	if _, ok := os.LookupEnv("DB_PORT"); !ok && cfg.Database.Port == database.DefaultPort(database.DriverMySQL) {
		cfg.Database.Port = database.DefaultPort(cfg.Database.Driver)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.Version, "APP_VERSION")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.Server.Host, "SERVER_HOST")

	setString(&c.Metrics.Namespace, "METRICS_NAMESPACE")
	setString(&c.Metrics.PushgatewayURL, "METRICS_PUSHGATEWAY_URL")
	setString(&c.Metrics.Textfile, "METRICS_TEXTFILE")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Database.Port, "DB_PORT"},
		{&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS"},
		{&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS"},
		{&c.Server.Port, "SERVER_PORT"},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.Database.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME"},
		{&c.Database.ConnMaxIdleTime, "DB_CONN_MAX_IDLE_TIME"},
		{&c.Server.ReadTimeout, "SERVER_READ_TIMEOUT"},
		{&c.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT"},
		{&c.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT"},
	}
	for _, v := range durations {
		if err := setDuration(v.dst, v.key); err != nil {
			return err
		}
	}

	return nil
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

// Validate checks the values that would otherwise fail late at connect or listen time
func (c *Config) Validate() error {
	switch c.App.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", c.App.Env)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch logging.Format(strings.ToLower(c.Logging.Format)) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("invalid log format %q (allowed: json, console)", c.Logging.Format)
	}

	if !database.ValidDriver(c.Database.Driver) {
		return fmt.Errorf("invalid database driver %q (allowed: mysql, postgres, sqlite3)", c.Database.Driver)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.Driver != database.DriverSQLite {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port %d", c.Database.Port)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace is required")
	}

	return nil
}

// LogLevel returns the parsed logging level, defaulting to info
func (c *Config) LogLevel() logging.LogLevel {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}

// NewLogger builds the logger selected by the logging settings
func (c *Config) NewLogger(service string) *logging.StructuredLogger {
	return logging.New(service, c.App.Version, c.LogLevel(), c.Logging.Format)
}

// ConnectionConfig converts the database settings into a connection descriptor,
// resolving the password through lookup.
func (c *Config) ConnectionConfig(lookup database.LookupFunc) *database.Config {
	db := c.Database
	conn := database.NewConnectionConfig(db.User, db.Password, db.Host, db.Database, lookup)

	if db.Driver != "" {
		conn.Driver = db.Driver
	}
	if db.Port > 0 {
		conn.Port = db.Port
	} else {
		conn.Port = database.DefaultPort(conn.Driver)
	}
	conn.SSLMode = db.SSLMode
	conn.MaxOpenConns = db.MaxOpenConns
	conn.MaxIdleConns = db.MaxIdleConns
	conn.ConnMaxLifetime = db.ConnMaxLifetime
	conn.ConnMaxIdleTime = db.ConnMaxIdleTime

	return conn
}

// Address returns the server listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
