package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"road-weather-platform/internal/models"
	"road-weather-platform/pkg/database"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

// Table names, also used as metric labels
const (
	StationTable = "station_data"
	ReadingTable = "weather_data"
)

// WeatherRepository provides data access for road weather data
type WeatherRepository interface {
	// Write operations
	UpsertStations(ctx context.Context, stations []models.Station) error
	InsertReadings(ctx context.Context, readings []models.Reading) error

	// Station queries
	GetStation(ctx context.Context, stationID string) (*models.Station, error)
	ListStations(ctx context.Context, limit, offset int) ([]*models.Station, int, error)

	// Reading queries
	GetReadings(ctx context.Context, filter ReadingFilter) ([]*models.Reading, int, error)
	GetStationSummary(ctx context.Context, stationID string) (*models.StationSummary, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ReadingFilter defines filters for querying readings
type ReadingFilter struct {
	StationID *string
	Limit     int
	Offset    int
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertStations inserts every station, overwriting the non-key columns of
// stations that already exist. One prepared statement serves the whole batch;
// the first failing record aborts it and earlier writes stay applied.
func (r *weatherRepository) UpsertStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	written := 0
	timer := time.Now()
	defer func() {
		r.metrics.RecordRowsWritten(StationTable, written)
		r.logger.Debug(ctx, "[REPO_UPSERT_STATIONS] Batch finished", logging.Fields{
			"count":       len(stations),
			"written":     written,
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	stmt, err := r.db.PrepareNamedContext(ctx, "upsert_station", upsertStationSQL(r.db.Driver()))
	if err != nil {
		return fmt.Errorf("failed to prepare station upsert: %w", err)
	}
	defer stmt.Close()

	for _, station := range stations {
		if _, err := stmt.ExecContext(ctx, stationParams(station)); err != nil {
			r.metrics.RecordDBError("upsert_station_error")
			return fmt.Errorf("failed to upsert station %s: %w", station.ID, err)
		}
		written++
	}

	return nil
}

// InsertReadings appends every reading. Readings have no natural key, so
// re-ingesting a file appends duplicates.
func (r *weatherRepository) InsertReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	written := 0
	timer := time.Now()
	defer func() {
		r.metrics.RecordRowsWritten(ReadingTable, written)
		r.logger.Debug(ctx, "[REPO_INSERT_READINGS] Batch finished", logging.Fields{
			"count":       len(readings),
			"written":     written,
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	stmt, err := r.db.PrepareNamedContext(ctx, "insert_reading", insertReading)
	if err != nil {
		return fmt.Errorf("failed to prepare reading insert: %w", err)
	}
	defer stmt.Close()

	for _, reading := range readings {
		if _, err := stmt.ExecContext(ctx, readingParams(reading)); err != nil {
			r.metrics.RecordDBError("insert_reading_error")
			return fmt.Errorf("failed to insert reading for station %s at %q: %w", reading.StationID, reading.Timestamp, err)
		}
		written++
	}

	return nil
}

// GetStation retrieves a station by ID
func (r *weatherRepository) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	query := r.db.Rebind(selectStation + ` WHERE id = ?`)

	var row stationRow
	err := r.db.GetContext(ctx, "get_station", &row, query, stationID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "station",
			ID:       stationID,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}

	return row.model(), nil
}

// ListStations retrieves stations ordered by ID with pagination and the total count
func (r *weatherRepository) ListStations(ctx context.Context, limit, offset int) ([]*models.Station, int, error) {
	var total int
	if err := r.db.GetContext(ctx, "count_stations", &total, `SELECT COUNT(*) FROM station_data`); err != nil {
		return nil, 0, fmt.Errorf("failed to count stations: %w", err)
	}

	query := r.db.Rebind(selectStation + ` ORDER BY id LIMIT ? OFFSET ?`)

	var rows []stationRow
	if err := r.db.SelectContext(ctx, "list_stations", &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list stations: %w", err)
	}

	stations := make([]*models.Station, 0, len(rows))
	for _, row := range rows {
		stations = append(stations, row.model())
	}

	return stations, total, nil
}

// GetReadings retrieves readings, newest first, with filtering and pagination
func (r *weatherRepository) GetReadings(ctx context.Context, filter ReadingFilter) ([]*models.Reading, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.StationID != nil {
		where += ` AND w.station_id = ?`
		args = append(args, *filter.StationID)
	}

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM weather_data w` + where)
	if err := r.db.GetContext(ctx, "count_readings", &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	query := r.db.Rebind(selectReading + where + ` ORDER BY w.timestamp DESC, w.id DESC LIMIT ? OFFSET ?`)
	args = append(args, filter.Limit, filter.Offset)

	var rows []readingRow
	if err := r.db.SelectContext(ctx, "get_readings", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get readings: %w", err)
	}

	readings := make([]*models.Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, row.model())
	}

	return readings, total, nil
}

// GetStationSummary aggregates the readings of one station
func (r *weatherRepository) GetStationSummary(ctx context.Context, stationID string) (*models.StationSummary, error) {
	if _, err := r.GetStation(ctx, stationID); err != nil {
		return nil, err
	}

	var row summaryRow
	if err := r.db.GetContext(ctx, "station_summary", &row, r.db.Rebind(selectStationSummary), stationID); err != nil {
		return nil, fmt.Errorf("failed to summarize station: %w", err)
	}

	return row.model(stationID), nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
