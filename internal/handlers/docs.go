package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func queryParam(name, description, typ string, def interface{}) object {
	schema := object{"type": typ}
	if def != nil {
		schema["default"] = def
	}
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func pathParam(name, description string) object {
	return object{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      object{"type": "string"},
	}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func pageOf(item string) object {
	return object{
		"type": "object",
		"properties": object{
			"data":        object{"type": "array", "items": ref(item)},
			"total":       object{"type": "integer"},
			"page":        object{"type": "integer"},
			"limit":       object{"type": "integer"},
			"total_pages": object{"type": "integer"},
		},
	}
}

var paginationParams = []object{
	queryParam("page", "Page number (default: 1)", "integer", 1),
	queryParam("limit", "Records per page (default: 100, max: 1000)", "integer", defaultPageLimit),
}

func nullableNumber() object {
	return object{"type": "number", "nullable": true}
}

// openAPIDocument describes the road weather API in OpenAPI 3.0 form
func openAPIDocument() object {
	notFound := jsonResponse("Station not found", ref("ErrorResponse"))

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Road Weather Platform API",
			"description": "Read access to road weather stations and sensor readings ingested from DATEX II feeds",
			"version":     "1.0.0",
			"contact":     object{"name": "Road Weather Platform Team"},
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/stations": object{
				"get": object{
					"summary":     "List stations",
					"description": "Measurement sites ordered by id",
					"parameters":  paginationParams,
					"responses": object{
						"200": jsonResponse("Successful response", pageOf("Station")),
					},
				},
			},
			"/api/stations/{id}": object{
				"get": object{
					"summary":    "Get station",
					"parameters": []object{pathParam("id", "Station id, e.g. SE_STA_VVIS1001")},
					"responses": object{
						"200": jsonResponse("Successful response", ref("Station")),
						"404": notFound,
					},
				},
			},
			"/api/stations/{id}/summary": object{
				"get": object{
					"summary":     "Station summary",
					"description": "Reading count, time range and temperature/wind aggregates for one station",
					"parameters":  []object{pathParam("id", "Station id")},
					"responses": object{
						"200": jsonResponse("Successful response", ref("StationSummary")),
						"404": notFound,
					},
				},
			},
			"/api/readings": object{
				"get": object{
					"summary":     "List readings",
					"description": "Sensor readings, newest first",
					"parameters": append([]object{
						queryParam("station_id", "Filter by station id", "string", nil),
					}, paginationParams...),
					"responses": object{
						"200": jsonResponse("Successful response", pageOf("Reading")),
					},
				},
			},
			"/health": object{
				"get": object{
					"summary":     "Health check",
					"description": "Reports whether the API can reach its database",
					"responses": object{
						"200": jsonResponse("API and database are healthy", ref("Health")),
						"503": jsonResponse("Database unreachable", ref("Health")),
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content": object{
								"text/plain": object{"schema": object{"type": "string"}},
							},
						},
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"Station": object{
					"type": "object",
					"properties": object{
						"id":            object{"type": "string"},
						"name":          object{"type": "string"},
						"road_number":   object{"type": "string"},
						"county_number": object{"type": "string"},
						"latitude":      object{"type": "string"},
						"longitude":     object{"type": "string"},
					},
				},
				"Reading": object{
					"type": "object",
					"properties": object{
						"id":               object{"type": "integer"},
						"station_id":       object{"type": "string"},
						"timestamp":        object{"type": "string", "format": "date-time"},
						"road_temperature": object{"type": "string"},
						"air_temperature":  object{"type": "string"},
						"air_humidity":     object{"type": "string"},
						"wind_speed":       object{"type": "string"},
						"wind_direction":   object{"type": "string"},
					},
				},
				"StationSummary": object{
					"type": "object",
					"properties": object{
						"station_id":           object{"type": "string"},
						"reading_count":        object{"type": "integer"},
						"first_reading_at":     object{"type": "string", "format": "date-time"},
						"last_reading_at":      object{"type": "string", "format": "date-time"},
						"min_air_temperature":  nullableNumber(),
						"avg_air_temperature":  nullableNumber(),
						"max_air_temperature":  nullableNumber(),
						"avg_road_temperature": nullableNumber(),
						"avg_wind_speed":       nullableNumber(),
					},
				},
				"Health": object{
					"type": "object",
					"properties": object{
						"status":    object{"type": "string"},
						"database":  object{"type": "string"},
						"timestamp": object{"type": "string", "format": "date-time"},
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error":   object{"type": "string"},
						"message": object{"type": "string"},
						"code":    object{"type": "integer"},
					},
				},
			},
		},
	}
}

// OpenAPISpec serves the OpenAPI document
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
