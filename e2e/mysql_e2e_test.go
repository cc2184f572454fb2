//go:build e2e

package e2e

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

const (
	repoRootRel   = ".." // relative to ./e2e
	mysqlPort     = nat.Port("3306/tcp")
	mysqlDatabase = "roadweather"
	passwordEnv   = "ROAD_WEATHER_E2E_PASSWORD"
)

const sitesFeed = `<ns0:d2LogicalModel xmlns:ns0="http://datex2.eu/schema/2/2_0">
  <ns0:measurementSiteRecord id="SE_STA_VVIS1001">
    <ns0:value>Lilla Essingen</ns0:value>
    <ns0:roadNumber>4</ns0:roadNumber>
    <ns0:countyNumber>1</ns0:countyNumber>
    <ns0:latitude>59.3251</ns0:latitude><ns0:longitude>18.0043</ns0:longitude>
    <ns0:latitude>6580000</ns0:latitude><ns0:longitude>672000</ns0:longitude>
  </ns0:measurementSiteRecord>
</ns0:d2LogicalModel>`

const measuredFeed = `<ns0:d2LogicalModel xmlns:ns0="http://datex2.eu/schema/2/2_0">
  <ns0:measurementSiteReference id="SE_STA_VVIS1001"/>
  <ns0:measurementTimeDefault>2024-01-15T10:20:00+01:00</ns0:measurementTimeDefault>
  <ns0:airTemperature>-4.0</ns0:airTemperature>
  <ns0:windSpeed>3.0</ns0:windSpeed>
</ns0:d2LogicalModel>`

type mysqlTarget struct {
	host     string
	port     int
	password string
}

func TestMySQL_MigrateAndIngest(t *testing.T) {
	target := startMySQL(t)
	repoRoot := repoRootPath(t)
	binDir := t.TempDir()

	migrate := buildBinary(t, repoRoot, binDir, "./cmd/migrate")
	ingester := buildBinary(t, repoRoot, binDir, "./cmd/ingester")

	feeds := t.TempDir()
	sites := writeFeed(t, feeds, "sites.xml", sitesFeed)
	measured := writeFeed(t, feeds, "measured.xml", measuredFeed)

	conn := []string{
		"--host", target.host,
		"--port", strconv.Itoa(target.port),
		"--user", "root",
		"--password", passwordEnv,
		"--database", mysqlDatabase,
	}

	run(t, target, migrate, "-direction", "up", "-host", target.host, "-port", strconv.Itoa(target.port),
		"-user", "root", "-password", passwordEnv, "-database", mysqlDatabase)

	// Stations upsert; readings append.
	run(t, target, ingester, append([]string{"stations", "--file", sites}, conn...)...)
	run(t, target, ingester, append([]string{"stations", "--file", sites}, conn...)...)
	run(t, target, ingester, append([]string{"readings", "--file", measured}, conn...)...)
	run(t, target, ingester, append([]string{"readings", "--file", measured}, conn...)...)

	logger := logging.NewStructuredLogger("e2e", "test", logging.WarnLevel)
	logger.SetOutput(io.Discard)

	db, err := database.NewDB(&database.Config{
		Driver:   database.DriverMySQL,
		Host:     target.host,
		Port:     target.port,
		User:     "root",
		Password: target.password,
		Database: mysqlDatabase,
	}, logger, metrics.NewCollector("e2e"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	var stations, readings int
	if err := db.DB().Get(&stations, "SELECT COUNT(*) FROM station_data"); err != nil {
		t.Fatalf("count stations: %v", err)
	}
	if err := db.DB().Get(&readings, "SELECT COUNT(*) FROM weather_data"); err != nil {
		t.Fatalf("count readings: %v", err)
	}
	if stations != 1 || readings != 2 {
		t.Fatalf("stations=%d readings=%d, want 1 and 2", stations, readings)
	}

	var lat float64
	if err := db.DB().Get(&lat, "SELECT lat FROM station_data WHERE id = ?", "SE_STA_VVIS1001"); err != nil {
		t.Fatalf("select lat: %v", err)
	}
	if lat < 59.32 || lat > 59.33 {
		t.Errorf("lat=%v want first occurrence 59.3251", lat)
	}

	var ts time.Time
	if err := db.DB().Get(&ts, "SELECT MIN(timestamp) FROM weather_data"); err != nil {
		t.Fatalf("select timestamp: %v", err)
	}
	if want := time.Date(2024, 1, 15, 9, 20, 0, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("timestamp=%v want %v", ts, want)
	}

	// A second up migration fails on the existing tables.
	cmd := exec.Command(migrate, "-direction", "up", "-host", target.host, "-port", strconv.Itoa(target.port),
		"-user", "root", "-password", passwordEnv, "-database", mysqlDatabase)
	cmd.Env = append(os.Environ(), passwordEnv+"="+target.password, "LOG_FORMAT=json")
	if out, err := cmd.CombinedOutput(); err == nil || !strings.Contains(string(out), "FATAL") {
		t.Errorf("second migrate up: err=%v output=%s", err, out)
	}
}

func startMySQL(t *testing.T) mysqlTarget {
	t.Helper()
	ctx := context.Background()
	password := "e2e-secret"

	req := tc.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{string(mysqlPort)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": password,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Tmpfs = map[string]string{"/var/lib/mysql": "rw"}
		},
		// The entrypoint starts a temporary server first; the second line is the real one.
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(2 * time.Minute),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mysqlPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	return mysqlTarget{host: host, port: mapped.Int(), password: password}
}

func run(t *testing.T, target mysqlTarget, bin string, args ...string) {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), passwordEnv+"="+target.password)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", filepath.Base(bin), args, err, out)
	}
}

func writeFeed(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot, outDir, pkg string) string {
	t.Helper()

	out := filepath.Join(outDir, filepath.Base(pkg))

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}

	return out
}
