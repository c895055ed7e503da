package controller

import (
	"context"
	"net/http"

	"climate-server/internal/modules/climate/types"
)

// Service is the climate query surface the handlers delegate to.
type Service interface {
	Precipitation(ctx context.Context) ([]types.PrecipitationRecord, error)
	Stations(ctx context.Context) ([]types.StationRecord, error)
	TemperatureObservations(ctx context.Context) ([]types.TemperatureRecord, error)
	RangeStats(ctx context.Context, start, end string) (types.TemperatureStats, bool, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service Service
}

func NewClimateController(service Service) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleWelcome)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start_date}", c.handleRange)
	mux.HandleFunc("GET /api/v1.0/{start_date}/{end_date}", c.handleRange)
}
