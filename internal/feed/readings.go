package feed

import (
	"encoding/xml"
	"io"

	"road-weather-platform/internal/models"
)

var readingFeed = recordSpec[models.Reading]{
	openTag: "measurementSiteReference",
	open: func(start xml.StartElement) models.Reading {
		return models.Reading{StationID: attrValue(start, "id")}
	},
	fields: map[string]func(*models.Reading, string){
		"measurementTimeDefault": func(r *models.Reading, v string) { r.Timestamp = v },
		"windSpeed":              func(r *models.Reading, v string) { r.WindSpeed = v },
		"directionCompass":       func(r *models.Reading, v string) { r.WindDirection = v },
		"airTemperature":         func(r *models.Reading, v string) { r.AirTemperature = v },
		"roadSurfaceTemperature": func(r *models.Reading, v string) { r.RoadTemperature = v },
		"humidity":               func(r *models.Reading, v string) { r.AirHumidity = v },
	},
}

// ExtractReadings reads site measurements in document order
func ExtractReadings(r io.Reader) ([]models.Reading, error) {
	return extract(r, readingFeed)
}

// ExtractReadingsFile opens path and extracts its site measurements
func ExtractReadingsFile(path string) ([]models.Reading, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ExtractReadings(f)
}
