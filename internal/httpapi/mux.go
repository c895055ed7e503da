package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with the operational routes registered. Feature modules add their
// own routes to it.
func NewMux(db *sql.DB, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
