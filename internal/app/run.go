package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"climate-server/internal/config"
	db "climate-server/internal/db"
	httpapi "climate-server/internal/httpapi"
	"climate-server/internal/metrics"
	climate "climate-server/internal/modules/climate"
	climateviews "climate-server/internal/modules/climate/views"
)

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"dbLogSQL", cfg.DBLogSQL,
		"schemaFile", cfg.SchemaFile,
	)

	schema, err := db.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return err
	}

	dbConn, err := db.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	slog.Info("database connection successful", "driver", cfg.DBDriver)

	verifyCtx, verifyCancel := context.WithTimeout(ctx, 10*time.Second)
	err = schema.Verify(verifyCtx, dbConn)
	verifyCancel()
	if err != nil {
		return err
	}
	slog.Info("schema verified",
		"measurementTable", schema.Measurement.Table,
		"stationTable", schema.Station.Table,
	)

	if err := climateviews.LoadTemplates(); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	mux := httpapi.NewMux(dbConn, collector.Handler())
	if err := climate.RegisterFeature(mux, dbConn, schema, db.DialectFor(cfg.DBDriver), collector); err != nil {
		return err
	}

	srv := httpapi.NewServer(cfg, httpapi.Wrap(mux, collector))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
