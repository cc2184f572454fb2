package services

import (
	"context"
	"time"

	"road-weather-platform/internal/models"
	"road-weather-platform/internal/repository"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

// StatisticsService computes per-station aggregates over stored readings
type StatisticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetStationSummary aggregates the readings of one station
func (s *StatisticsService) GetStationSummary(ctx context.Context, stationID string) (*models.StationSummary, error) {
	startTime := time.Now()

	summary, err := s.repo.GetStationSummary(ctx, stationID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "[STATS_SUMMARY] Station summary calculated", logging.Fields{
		"station_id":    stationID,
		"reading_count": summary.ReadingCount,
		"duration_ms":   time.Since(startTime).Milliseconds(),
	})

	return summary, nil
}
