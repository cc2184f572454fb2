package services

import (
	"context"

	"road-weather-platform/internal/models"
	"road-weather-platform/internal/repository"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

// WeatherService handles station and reading queries
type WeatherService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherService creates a new weather service
func NewWeatherService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherService {
	return &WeatherService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetStation retrieves one station
func (s *WeatherService) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	return s.repo.GetStation(ctx, stationID)
}

// GetStations retrieves stations with the total count
func (s *WeatherService) GetStations(ctx context.Context, limit, offset int) ([]*models.Station, int, error) {
	return s.repo.ListStations(ctx, limit, offset)
}

// GetReadings retrieves readings with filtering
func (s *WeatherService) GetReadings(ctx context.Context, filter repository.ReadingFilter) ([]*models.Reading, int, error) {
	return s.repo.GetReadings(ctx, filter)
}

// HealthCheck reports whether the store is reachable
func (s *WeatherService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
