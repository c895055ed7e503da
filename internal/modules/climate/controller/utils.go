package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"climate-server/internal/modules/climate/service"
	"climate-server/internal/utils"
)

// statusClientClosedRequest marks reads abandoned by the client so they are not logged or
// counted as successes.
const statusClientClosedRequest = 499

// writeServiceError maps service errors onto HTTP responses. Only request dates produce a
// *service.DateError; a malformed stored date is a store failure. Store failures are logged
// and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var dateErr *service.DateError
	switch {
	case errors.As(err, &dateErr):
		utils.WriteError(w, http.StatusBadRequest, dateErr.Error())
	case errors.Is(err, service.ErrEmptyDataset):
		utils.WriteError(w, http.StatusNotFound, "no observations available")
	case errors.Is(err, context.Canceled):
		slog.Warn(op+": request canceled", "path", r.URL.Path)
		w.WriteHeader(statusClientClosedRequest)
	default:
		slog.Error(op+" failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load "+op)
	}
}
