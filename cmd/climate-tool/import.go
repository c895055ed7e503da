package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var requiredColumns = []string{"station", "date", "prcp", "tobs"}

type measurement struct {
	station string
	date    string
	prcp    sql.NullFloat64
	tobs    float64
}

func importFile(ctx context.Context, db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("close csv", "path", path, "err", closeErr)
		}
	}()

	rows, err := readMeasurements(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := insertMeasurements(ctx, db, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// readMeasurements parses a CSV whose header names at least station, date, prcp and tobs,
// in any order. An empty prcp is stored as NULL.
func readMeasurements(r io.Reader) ([]measurement, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q in header", c)
		}
	}

	var out []measurement
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		m := measurement{
			station: strings.TrimSpace(rec[idx["station"]]),
			date:    strings.TrimSpace(rec[idx["date"]]),
		}
		if m.station == "" {
			return nil, fmt.Errorf("line %d: empty station", line)
		}
		if _, err := time.Parse("2006-01-02", m.date); err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q (expected YYYY-MM-DD)", line, m.date)
		}
		if s := strings.TrimSpace(rec[idx["prcp"]]); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid prcp %q", line, s)
			}
			m.prcp = sql.NullFloat64{Float64: v, Valid: true}
		}
		s := strings.TrimSpace(rec[idx["tobs"]])
		m.tobs, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid tobs %q", line, s)
		}
		out = append(out, m)
	}
	return out, nil
}

// insertMeasurements writes rows and their distinct stations in one transaction.
func insertMeasurements(ctx context.Context, db *sql.DB, rows []measurement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stationStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO station (station) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare station insert: %w", err)
	}
	defer func() { _ = stationStmt.Close() }()

	measurementStmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer func() { _ = measurementStmt.Close() }()

	seen := make(map[string]bool)
	for _, m := range rows {
		if !seen[m.station] {
			if _, err := stationStmt.ExecContext(ctx, m.station); err != nil {
				return fmt.Errorf("insert station %s: %w", m.station, err)
			}
			seen[m.station] = true
		}
		if _, err := measurementStmt.ExecContext(ctx, m.station, m.date, m.prcp, m.tobs); err != nil {
			return fmt.Errorf("insert measurement %s %s: %w", m.station, m.date, err)
		}
	}
	return tx.Commit()
}
