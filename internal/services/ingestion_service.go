package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"road-weather-platform/internal/feed"
	"road-weather-platform/internal/models"
	"road-weather-platform/internal/repository"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

// IngestionService runs one feed file through extraction and persistence
type IngestionService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Kind        feed.Kind
	File        string
	Extracted   int
	RowsWritten int
	Duration    time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Ingest dispatches on the feed kind
func (s *IngestionService) Ingest(ctx context.Context, kind feed.Kind, path string) (*IngestionResult, error) {
	switch kind {
	case feed.KindStations:
		return s.IngestStations(ctx, path)
	case feed.KindReadings:
		return s.IngestReadings(ctx, path)
	default:
		return nil, fmt.Errorf("unknown feed kind %q", kind)
	}
}

// IngestStations parses a site table feed completely, then upserts every station
func (s *IngestionService) IngestStations(ctx context.Context, path string) (*IngestionResult, error) {
	return ingest(ctx, s, feed.KindStations, path, feed.ExtractStationsFile, s.repo.UpsertStations)
}

// IngestReadings parses a measured data feed completely, then appends every reading
func (s *IngestionService) IngestReadings(ctx context.Context, path string) (*IngestionResult, error) {
	return ingest(ctx, s, feed.KindReadings, path, feed.ExtractReadingsFile, s.repo.InsertReadings)
}

func ingest[T models.Station | models.Reading](
	ctx context.Context,
	s *IngestionService,
	kind feed.Kind,
	path string,
	extract func(string) ([]T, error),
	write func(context.Context, []T) error,
) (*IngestionResult, error) {
	startTime := time.Now()
	timer := s.metrics.NewTimer(s.metrics.IngestionDuration.WithLabelValues(string(kind)))
	log := s.logger.WithFields(logging.Fields{"kind": string(kind), "file": path})

	log.Info(ctx, "[INGEST_START] Starting feed ingestion", logging.Fields{
		"stage": "EXTRACTION",
	})

	records, err := extract(path)
	if err != nil {
		s.metrics.RecordIngestionError(classifyFeedError(err))
		return nil, fmt.Errorf("failed to extract %s from %s: %w", kind, path, err)
	}
	s.metrics.RecordExtracted(string(kind), len(records))

	log.Info(ctx, "[INGEST_EXTRACTED] Feed parsed", logging.Fields{
		"records": len(records),
		"stage":   "PERSISTENCE",
	})

	if err := write(ctx, records); err != nil {
		s.metrics.RecordIngestionError("storage")
		return nil, fmt.Errorf("failed to store %s: %w", kind, err)
	}

	result := &IngestionResult{
		Kind:        kind,
		File:        path,
		Extracted:   len(records),
		RowsWritten: len(records),
		Duration:    timer.ObserveDuration(),
	}
	s.metrics.RecordIngestionSuccess(string(kind), startTime.Add(result.Duration))

	log.Info(ctx, "[INGEST_COMPLETE] Feed ingestion completed", logging.Fields{
		"rows_written":     result.RowsWritten,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// classifyFeedError maps extraction failures onto error metric labels
func classifyFeedError(err error) string {
	var malformed *feed.MalformedError
	switch {
	case errors.As(err, &malformed):
		return "malformed_feed"
	case errors.Is(err, feed.ErrNoOpenRecord):
		return "contract_violation"
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return "input_access"
	default:
		return "extraction"
	}
}
