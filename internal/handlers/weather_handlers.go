package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"road-weather-platform/internal/repository"
	"road-weather-platform/internal/services"
	"road-weather-platform/pkg/logging"
	"road-weather-platform/pkg/metrics"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// WeatherHandler handles road weather API endpoints
type WeatherHandler struct {
	weatherService *services.WeatherService
	statsService   *services.StatisticsService
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	weatherService *services.WeatherService,
	statsService *services.StatisticsService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		statsService:   statsService,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// parsePagination reads page and limit, ignoring values out of range
func parsePagination(r *http.Request) (page, limit, offset int) {
	page = 1
	limit = defaultPageLimit

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxPageLimit {
		limit = l
	}

	// pages whose offset would overflow an int count as out of range
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 && p <= math.MaxInt/limit {
		page = p
	}

	return page, limit, (page - 1) * limit
}

func paginated(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

func (h *WeatherHandler) observe(endpoint string, startTime time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
}

// ListStations handles GET /api/stations
func (h *WeatherHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/stations"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	page, limit, offset := parsePagination(r)

	stations, total, err := h.weatherService.GetStations(ctx, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_STATIONS_ERROR] Failed to list stations", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to retrieve stations", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, paginated(stations, total, page, limit), http.StatusOK)
}

// GetStation handles GET /api/stations/{id}
func (h *WeatherHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/stations/{id}"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	stationID := mux.Vars(r)["id"]

	station, err := h.weatherService.GetStation(ctx, stationID)
	if err != nil {
		h.handleLookupError(w, r, endpoint, stationID, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, station, http.StatusOK)
}

// GetStationSummary handles GET /api/stations/{id}/summary
func (h *WeatherHandler) GetStationSummary(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/stations/{id}/summary"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	stationID := mux.Vars(r)["id"]

	summary, err := h.statsService.GetStationSummary(ctx, stationID)
	if err != nil {
		h.handleLookupError(w, r, endpoint, stationID, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, summary, http.StatusOK)
}

// GetReadings handles GET /api/readings
func (h *WeatherHandler) GetReadings(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/readings"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	page, limit, offset := parsePagination(r)

	filter := repository.ReadingFilter{
		Limit:  limit,
		Offset: offset,
	}

	if stationID := r.URL.Query().Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	readings, total, err := h.weatherService.GetReadings(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_READINGS_ERROR] Failed to get readings", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to retrieve readings", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, paginated(readings, total, page, limit), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.weatherService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["database"] = "down"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

func (h *WeatherHandler) handleLookupError(w http.ResponseWriter, r *http.Request, endpoint, stationID string, err error) {
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, endpoint, r, notFound.Error(), http.StatusNotFound)
		return
	}

	h.logger.Error(r.Context(), "[API_STATION_ERROR] Station lookup failed", logging.Fields{
		"station_id": stationID,
		"endpoint":   endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, endpoint, r, "failed to retrieve station", http.StatusInternalServerError)
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, endpoint string, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all road weather API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stations", h.ListStations).Methods("GET")
	router.HandleFunc("/api/stations/{id}", h.GetStation).Methods("GET")
	router.HandleFunc("/api/stations/{id}/summary", h.GetStationSummary).Methods("GET")
	router.HandleFunc("/api/readings", h.GetReadings).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
