package repository

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	db "climate-server/internal/db"
	"climate-server/internal/modules/climate/types"
)

//go:embed sql/get-most-recent-date.sql
var getMostRecentDateSQL string

//go:embed sql/get-station-ids.sql
var getStationIDsSQL string

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-temperatures.sql
var getTemperaturesSQL string

//go:embed sql/get-temperature-values.sql
var getTemperatureValuesSQL string

// Filter narrows observation reads. Empty fields are not applied.
type Filter struct {
	// After keeps observations dated strictly after this YYYY-MM-DD date.
	After string
	// Through keeps observations dated on or before this YYYY-MM-DD date.
	Through string
	// StationID keeps observations from a single station.
	StationID string
}

// QueryObserver receives the duration and outcome of every repository query.
type QueryObserver interface {
	ObserveQuery(name string, d time.Duration, err error)
}

type ClimateRepository interface {
	// GetMostRecentDate returns MAX(date); ok is false when there are no observations.
	GetMostRecentDate(ctx context.Context) (date string, ok bool, err error)
	// GetStationIDs returns the station of every observation, duplicates included.
	GetStationIDs(ctx context.Context) ([]string, error)
	GetPrecipitation(ctx context.Context, f Filter) ([]types.PrecipitationRecord, error)
	GetTemperatures(ctx context.Context, f Filter) ([]types.TemperatureRecord, error)
	GetTemperatureValues(ctx context.Context, f Filter) ([]float64, error)
}

type statements struct {
	mostRecentDate    string
	stationIDs        string
	precipitation     string
	temperatures      string
	temperatureValues string
}

type repositoryImpl struct {
	db       *sql.DB
	dialect  db.Dialect
	cols     db.MeasurementColumns
	stmts    statements
	observer QueryObserver
}

// NewRepository renders the statement templates for the given schema mapping. observer may
// be nil.
func NewRepository(conn *sql.DB, schema db.Schema, dialect db.Dialect, observer QueryObserver) (ClimateRepository, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	data := struct {
		Table string
		db.MeasurementColumns
	}{
		Table:              schema.Measurement.Table,
		MeasurementColumns: schema.Measurement.Columns,
	}

	var stmts statements
	for _, s := range []struct {
		name string
		src  string
		dst  *string
	}{
		{"get-most-recent-date", getMostRecentDateSQL, &stmts.mostRecentDate},
		{"get-station-ids", getStationIDsSQL, &stmts.stationIDs},
		{"get-precipitation", getPrecipitationSQL, &stmts.precipitation},
		{"get-temperatures", getTemperaturesSQL, &stmts.temperatures},
		{"get-temperature-values", getTemperatureValuesSQL, &stmts.temperatureValues},
	} {
		rendered, err := renderStatement(s.name, s.src, data)
		if err != nil {
			return nil, err
		}
		*s.dst = rendered
	}

	return &repositoryImpl{
		db:       conn,
		dialect:  dialect,
		cols:     schema.Measurement.Columns,
		stmts:    stmts,
		observer: observer,
	}, nil
}

func renderStatement(name, src string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s.sql: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s.sql: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r *repositoryImpl) GetMostRecentDate(ctx context.Context) (string, bool, error) {
	var latest sql.NullString
	err := r.query(ctx, "get-most-recent-date", r.stmts.mostRecentDate, nil, func(rows *sql.Rows) error {
		return rows.Scan(&latest)
	})
	if err != nil {
		return "", false, err
	}
	return latest.String, latest.Valid, nil
}

func (r *repositoryImpl) GetStationIDs(ctx context.Context) ([]string, error) {
	var out []string
	err := r.query(ctx, "get-station-ids", r.stmts.stationIDs, nil, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		out = append(out, id)
		return nil
	})
	return out, err
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context, f Filter) ([]types.PrecipitationRecord, error) {
	where, args := r.where(f)
	q := r.stmts.precipitation + where + r.orderByDate()
	out := []types.PrecipitationRecord{}
	err := r.query(ctx, "get-precipitation", q, args, func(rows *sql.Rows) error {
		var rec types.PrecipitationRecord
		var prcp sql.NullFloat64
		if err := rows.Scan(&rec.Date, &prcp); err != nil {
			return err
		}
		if prcp.Valid {
			v := prcp.Float64
			rec.Prcp = &v
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatures(ctx context.Context, f Filter) ([]types.TemperatureRecord, error) {
	where, args := r.where(f)
	q := r.stmts.temperatures + where + r.orderByDate()
	out := []types.TemperatureRecord{}
	err := r.query(ctx, "get-temperatures", q, args, func(rows *sql.Rows) error {
		var rec types.TemperatureRecord
		if err := rows.Scan(&rec.Date, &rec.Tobs); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatureValues(ctx context.Context, f Filter) ([]float64, error) {
	where, args := r.where(f)
	var out []float64
	err := r.query(ctx, "get-temperature-values", r.stmts.temperatureValues+where, args, func(rows *sql.Rows) error {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) where(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.After != "" {
		conds = append(conds, r.cols.Date+" > ?")
		args = append(args, f.After)
	}
	if f.Through != "" {
		conds = append(conds, r.cols.Date+" <= ?")
		args = append(args, f.Through)
	}
	if f.StationID != "" {
		conds = append(conds, r.cols.Station+" = ?")
		args = append(args, f.StationID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repositoryImpl) orderByDate() string {
	return " ORDER BY " + r.cols.Date + ", " + r.cols.Station
}

// query runs q on a connection held only for the duration of the call and hands each row
// to scan. The connection and rows are released on every return path.
func (r *repositoryImpl) query(ctx context.Context, name, q string, args []any, scan func(*sql.Rows) error) (err error) {
	start := time.Now()
	defer func() {
		if r.observer != nil {
			r.observer.ObserveQuery(name, time.Since(start), err)
		}
	}()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", name, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("release connection", "query", name, "error", closeErr)
		}
	}()

	rows, err := conn.QueryContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Error("close rows", "query", name, "error", closeErr)
		}
	}()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
