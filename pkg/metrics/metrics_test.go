package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a := NewCollector("road_weather")
	b := NewCollector("road_weather")

	a.RecordExtracted("stations", 5)

	if got := testutil.ToFloat64(a.IngestionRecordsTotal.WithLabelValues("stations")); got != 5 {
		t.Errorf("a stations extracted = %v, want 5", got)
	}
	if got := testutil.ToFloat64(b.IngestionRecordsTotal.WithLabelValues("stations")); got != 0 {
		t.Errorf("b stations extracted = %v, want 0", got)
	}
}

func TestCollector_IngestionHelpers(t *testing.T) {
	c := NewCollector("road_weather")

	c.RecordExtracted("readings", 3)
	c.RecordExtracted("readings", 4)
	c.RecordRowsWritten("weather_data", 7)
	c.RecordIngestionError("malformed_feed")
	c.RecordIngestionSuccess("readings", time.Unix(1700000000, 0))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"records extracted", testutil.ToFloat64(c.IngestionRecordsTotal.WithLabelValues("readings")), 7},
		{"rows written", testutil.ToFloat64(c.IngestionRowsWritten.WithLabelValues("weather_data")), 7},
		{"errors", testutil.ToFloat64(c.IngestionErrorsTotal.WithLabelValues("malformed_feed")), 1},
		{"last success", testutil.ToFloat64(c.IngestionLastSuccess.WithLabelValues("readings")), 1700000000},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(c.IngestionBatchSize, "road_weather_ingestion_batch_size"); n != 1 {
		t.Errorf("batch size series = %d, want 1", n)
	}
}

func TestCollector_DBPool(t *testing.T) {
	c := NewCollector("road_weather")
	c.UpdateDBConnectionPool(2, 3, 5)

	expected := `
# HELP road_weather_db_connection_pool Database connection pool statistics
# TYPE road_weather_db_connection_pool gauge
road_weather_db_connection_pool{state="idle"} 3
road_weather_db_connection_pool{state="in_use"} 2
road_weather_db_connection_pool{state="total"} 5
`
	if err := testutil.CollectAndCompare(c.DBConnectionPool, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected pool metrics: %v", err)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("road_weather")
	c.RecordAPIRequest("/api/stations", "GET", "200")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `road_weather_api_requests_total{endpoint="/api/stations",method="GET",status="200"} 1`) {
		t.Errorf("metrics output missing API counter:\n%s", body)
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector("road_weather")
	c.RecordRowsWritten("station_data", 12)

	path := filepath.Join(t.TempDir(), "ingester.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `road_weather_ingestion_rows_written_total{table="station_data"} 12`) {
		t.Errorf("textfile missing rows written:\n%s", data)
	}
}

func TestCollector_Push(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody int

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = len(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	c := NewCollector("road_weather")
	c.RecordExtracted("stations", 1)

	if err := c.Push(context.Background(), gateway.URL, "road_weather_ingester"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/metrics/job/road_weather_ingester" {
		t.Errorf("path = %s, want /metrics/job/road_weather_ingester", gotPath)
	}
	if gotBody == 0 {
		t.Error("Expected a non-empty push body")
	}
}

func TestTimer(t *testing.T) {
	c := NewCollector("road_weather")

	timer := c.NewTimer(c.DBQueryDuration.WithLabelValues("ping"))
	if d := timer.ObserveDuration(); d < 0 {
		t.Errorf("duration = %v, want >= 0", d)
	}

	if n := testutil.CollectAndCount(c.DBQueryDuration); n != 1 {
		t.Errorf("query duration series = %d, want 1", n)
	}

	// A timer without an observer only measures.
	if d := (&Timer{start: time.Now()}).ObserveDuration(); d < 0 {
		t.Errorf("duration = %v, want >= 0", d)
	}
}
