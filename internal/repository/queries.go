package repository

import (
	"database/sql"

	"road-weather-platform/internal/models"
	"road-weather-platform/pkg/database"
)

const insertStationColumns = `
		INSERT INTO station_data (id, lat, lon, name, road_number, county_number)
		VALUES (:id, :latitude, :longitude, :name, :road_number, :county_number)`

const upsertStationMySQL = insertStationColumns + `
		ON DUPLICATE KEY UPDATE
			lat = :latitude, lon = :longitude, name = :name,
			road_number = :road_number, county_number = :county_number`

const upsertStationConflict = insertStationColumns + `
		ON CONFLICT (id) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			name = excluded.name,
			road_number = excluded.road_number,
			county_number = excluded.county_number`

const insertReading = `
		INSERT INTO weather_data (
			station_id, timestamp,
			road_temperature, air_temperature, air_humidity,
			wind_speed, wind_direction
		)
		VALUES (
			:station_id, :timestamp,
			:road_temperature, :air_temperature, :air_humidity,
			:wind_speed, :wind_direction
		)`

const selectStation = `
		SELECT id, lat, lon, name, road_number, county_number
		FROM station_data`

const selectReading = `
		SELECT w.id, w.station_id, w.timestamp,
		       w.road_temperature, w.air_temperature, w.air_humidity,
		       w.wind_speed, w.wind_direction
		FROM weather_data w`

const selectStationSummary = `
		SELECT COUNT(*) AS reading_count,
		       MIN(timestamp) AS first_reading_at,
		       MAX(timestamp) AS last_reading_at,
		       MIN(air_temperature) AS min_air_temperature,
		       AVG(air_temperature) AS avg_air_temperature,
		       MAX(air_temperature) AS max_air_temperature,
		       AVG(road_temperature) AS avg_road_temperature,
		       AVG(wind_speed) AS avg_wind_speed
		FROM weather_data
		WHERE station_id = ?`

// upsertStationSQL picks the conflict clause the driver understands
func upsertStationSQL(driver string) string {
	if driver == database.DriverMySQL {
		return upsertStationMySQL
	}
	return upsertStationConflict
}

// nullable binds an empty extracted value as SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// observationTime binds a parseable timestamp as UTC time and anything else raw
func observationTime(raw string) interface{} {
	if raw == "" {
		return nil
	}
	if t, err := models.ParseObservationTime(raw); err == nil {
		return t
	}
	return raw
}

func stationParams(s models.Station) map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID,
		"latitude":      nullable(s.Latitude),
		"longitude":     nullable(s.Longitude),
		"name":          nullable(s.Name),
		"road_number":   nullable(s.RoadNumber),
		"county_number": nullable(s.CountyNumber),
	}
}

func readingParams(r models.Reading) map[string]interface{} {
	return map[string]interface{}{
		"station_id":       r.StationID,
		"timestamp":        observationTime(r.Timestamp),
		"road_temperature": nullable(r.RoadTemperature),
		"air_temperature":  nullable(r.AirTemperature),
		"air_humidity":     nullable(r.AirHumidity),
		"wind_speed":       nullable(r.WindSpeed),
		"wind_direction":   nullable(r.WindDirection),
	}
}

// stationRow scans nullable columns without dialect-specific COALESCE
type stationRow struct {
	ID           string         `db:"id"`
	Latitude     sql.NullString `db:"lat"`
	Longitude    sql.NullString `db:"lon"`
	Name         sql.NullString `db:"name"`
	RoadNumber   sql.NullString `db:"road_number"`
	CountyNumber sql.NullString `db:"county_number"`
}

func (r stationRow) model() *models.Station {
	return &models.Station{
		ID:           r.ID,
		Name:         r.Name.String,
		RoadNumber:   r.RoadNumber.String,
		CountyNumber: r.CountyNumber.String,
		Latitude:     r.Latitude.String,
		Longitude:    r.Longitude.String,
	}
}

type readingRow struct {
	ID              int64          `db:"id"`
	StationID       string         `db:"station_id"`
	Timestamp       sql.NullString `db:"timestamp"`
	RoadTemperature sql.NullString `db:"road_temperature"`
	AirTemperature  sql.NullString `db:"air_temperature"`
	AirHumidity     sql.NullString `db:"air_humidity"`
	WindSpeed       sql.NullString `db:"wind_speed"`
	WindDirection   sql.NullString `db:"wind_direction"`
}

func (r readingRow) model() *models.Reading {
	return &models.Reading{
		ID:              r.ID,
		StationID:       r.StationID,
		Timestamp:       models.FormatObservationTime(r.Timestamp.String),
		RoadTemperature: r.RoadTemperature.String,
		AirTemperature:  r.AirTemperature.String,
		AirHumidity:     r.AirHumidity.String,
		WindSpeed:       r.WindSpeed.String,
		WindDirection:   r.WindDirection.String,
	}
}

type summaryRow struct {
	ReadingCount       int             `db:"reading_count"`
	FirstReadingAt     sql.NullString  `db:"first_reading_at"`
	LastReadingAt      sql.NullString  `db:"last_reading_at"`
	MinAirTemperature  sql.NullFloat64 `db:"min_air_temperature"`
	AvgAirTemperature  sql.NullFloat64 `db:"avg_air_temperature"`
	MaxAirTemperature  sql.NullFloat64 `db:"max_air_temperature"`
	AvgRoadTemperature sql.NullFloat64 `db:"avg_road_temperature"`
	AvgWindSpeed       sql.NullFloat64 `db:"avg_wind_speed"`
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (r summaryRow) model(stationID string) *models.StationSummary {
	return &models.StationSummary{
		StationID:          stationID,
		ReadingCount:       r.ReadingCount,
		FirstReadingAt:     models.FormatObservationTime(r.FirstReadingAt.String),
		LastReadingAt:      models.FormatObservationTime(r.LastReadingAt.String),
		MinAirTemperature:  floatPtr(r.MinAirTemperature),
		AvgAirTemperature:  floatPtr(r.AvgAirTemperature),
		MaxAirTemperature:  floatPtr(r.MaxAirTemperature),
		AvgRoadTemperature: floatPtr(r.AvgRoadTemperature),
		AvgWindSpeed:       floatPtr(r.AvgWindSpeed),
	}
}
