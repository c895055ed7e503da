package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"climate-server/internal/modules/climate/service"
	"climate-server/internal/modules/climate/views"
	"climate-server/internal/utils"
)

var welcomeRoutes = []views.Route{
	{Path: "/api/v1.0/precipitation"},
	{Path: "/api/v1.0/stations"},
	{Path: "/api/v1.0/tobs"},
	{Path: "/api/v1.0/start-date"},
	{Path: "/api/v1.0/start-date/end-date"},
}

func (c *climateControllerImpl) handleWelcome(w http.ResponseWriter, r *http.Request) {
	data := &views.WelcomeData{
		Title:      "Climate API",
		Routes:     welcomeRoutes,
		DateFormat: "yyyy-mm-dd",
	}
	var buf bytes.Buffer
	if err := views.RenderWelcome(&buf, data); err != nil {
		slog.Error("welcome template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("welcome: write response failed", "error", err)
	}
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.Precipitation(r.Context())
	if err != nil {
		writeServiceError(w, r, "precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, r, "stations", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.TemperatureObservations(r.Context())
	if err != nil {
		writeServiceError(w, r, "tobs", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

// handleRange serves both the open-ended and the bounded range; end_date is empty on the
// single-segment route.
func (c *climateControllerImpl) handleRange(w http.ResponseWriter, r *http.Request) {
	start := r.PathValue("start_date")
	end := r.PathValue("end_date")

	stats, ok, err := c.service.RangeStats(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, r, "range stats", err)
		return
	}
	if !ok {
		utils.WriteText(w, http.StatusOK, service.NoRecordsMessage)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
