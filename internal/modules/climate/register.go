package climate

import (
	"database/sql"
	"net/http"

	"climate-server/internal/db"
	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/service"
)

// RegisterFeature wires the climate repository, service and controller onto mux. observer
// may be nil.
func RegisterFeature(mux *http.ServeMux, conn *sql.DB, schema db.Schema, dialect db.Dialect, observer repository.QueryObserver) error {
	climateRepository, err := repository.NewRepository(conn, schema, dialect, observer)
	if err != nil {
		return err
	}
	climateService := service.NewService(climateRepository)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
	return nil
}
