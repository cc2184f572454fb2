package feed

import (
	"encoding/xml"
	"io"

	"road-weather-platform/internal/models"
)

var stationFeed = recordSpec[models.Station]{
	openTag: "measurementSiteRecord",
	open: func(start xml.StartElement) models.Station {
		return models.Station{ID: attrValue(start, "id")}
	},
	fields: map[string]func(*models.Station, string){
		"value":        func(s *models.Station, v string) { s.Name = v },
		"roadNumber":   func(s *models.Station, v string) { s.RoadNumber = v },
		"countyNumber": func(s *models.Station, v string) { s.CountyNumber = v },
		"latitude":     func(s *models.Station, v string) { s.Latitude = v },
		"longitude":    func(s *models.Station, v string) { s.Longitude = v },
	},
	// The site table repeats every coordinate once per location reference.
	paired: []string{"latitude", "longitude"},
}

// ExtractStations reads measurement site records in document order
func ExtractStations(r io.Reader) ([]models.Station, error) {
	return extract(r, stationFeed)
}

// ExtractStationsFile opens path and extracts its measurement site records
func ExtractStationsFile(path string) ([]models.Station, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ExtractStations(f)
}
