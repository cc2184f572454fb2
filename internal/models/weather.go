package models

import (
	"strings"
	"time"
)

// Station represents a road-side measurement site from the site table feed.
// Every field carries the raw extracted text; coercion happens at the storage boundary.
type Station struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	RoadNumber   string `json:"road_number" db:"road_number"`
	CountyNumber string `json:"county_number" db:"county_number"`
	Latitude     string `json:"latitude" db:"lat"`
	Longitude    string `json:"longitude" db:"lon"`
}

// Reading represents a single weather/road-surface observation tied to a station.
// ID is the storage surrogate and is zero until the row has been read back.
type Reading struct {
	ID              int64  `json:"id,omitempty" db:"id"`
	StationID       string `json:"station_id" db:"station_id"`
	Timestamp       string `json:"timestamp" db:"timestamp"`
	RoadTemperature string `json:"road_temperature" db:"road_temperature"`
	AirTemperature  string `json:"air_temperature" db:"air_temperature"`
	AirHumidity     string `json:"air_humidity" db:"air_humidity"`
	WindSpeed       string `json:"wind_speed" db:"wind_speed"`
	WindDirection   string `json:"wind_direction" db:"wind_direction"`
}

// StationSummary aggregates the stored readings of one station
type StationSummary struct {
	StationID          string   `json:"station_id"`
	ReadingCount       int      `json:"reading_count"`
	FirstReadingAt     string   `json:"first_reading_at,omitempty"`
	LastReadingAt      string   `json:"last_reading_at,omitempty"`
	MinAirTemperature  *float64 `json:"min_air_temperature,omitempty"`
	AvgAirTemperature  *float64 `json:"avg_air_temperature,omitempty"`
	MaxAirTemperature  *float64 `json:"max_air_temperature,omitempty"`
	AvgRoadTemperature *float64 `json:"avg_road_temperature,omitempty"`
	AvgWindSpeed       *float64 `json:"avg_wind_speed,omitempty"`
}

// observationTimeLayouts lists the timestamp shapes seen in road weather feeds
var observationTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
}

// FormatObservationTime renders a stored timestamp in the API's RFC 3339 form.
// Values that do not parse are returned unchanged.
func FormatObservationTime(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := ParseObservationTime(raw)
	if err != nil {
		return raw
	}
	return t.Format(time.RFC3339)
}

// ParseObservationTime converts a raw feed timestamp into a UTC time.
// Values without an offset are taken as UTC.
func ParseObservationTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range observationTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &ValidationError{
		Field:   "timestamp",
		Value:   raw,
		Message: "invalid timestamp format, expected RFC 3339",
	}
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
