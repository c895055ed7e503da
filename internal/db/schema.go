package db

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersion is the only mapping version this build understands.
const SupportedSchemaVersion = 1

//go:embed schema.yaml
var defaultSchemaYAML []byte

var (
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema maps the observation dataset onto table and column names. It is loaded once at
// startup and replaces any live introspection of the external database.
type Schema struct {
	Version     int              `yaml:"version"`
	Measurement MeasurementTable `yaml:"measurement"`
	Station     StationTable     `yaml:"station"`
}

type MeasurementTable struct {
	Table   string             `yaml:"table"`
	Columns MeasurementColumns `yaml:"columns"`
}

type MeasurementColumns struct {
	Station string `yaml:"station"`
	Date    string `yaml:"date"`
	Prcp    string `yaml:"prcp"`
	Tobs    string `yaml:"tobs"`
}

type StationTable struct {
	Table   string         `yaml:"table"`
	Columns StationColumns `yaml:"columns"`
}

type StationColumns struct {
	Station string `yaml:"station"`
}

// DefaultSchema returns the embedded mapping.
func DefaultSchema() (Schema, error) {
	return ParseSchema(defaultSchemaYAML)
}

// LoadSchema reads a mapping file, or the embedded mapping when path is empty.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := ParseSchema(b)
	if err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

func ParseSchema(b []byte) (Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var s Schema
	if err := dec.Decode(&s); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func (s Schema) Validate() error {
	if s.Version != SupportedSchemaVersion {
		return fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedSchemaVersion, s.Version, SupportedSchemaVersion)
	}
	fields := []struct {
		name  string
		value string
	}{
		{"measurement.table", s.Measurement.Table},
		{"measurement.columns.station", s.Measurement.Columns.Station},
		{"measurement.columns.date", s.Measurement.Columns.Date},
		{"measurement.columns.prcp", s.Measurement.Columns.Prcp},
		{"measurement.columns.tobs", s.Measurement.Columns.Tobs},
		{"station.table", s.Station.Table},
		{"station.columns.station", s.Station.Columns.Station},
	}
	for _, f := range fields {
		if !identifierRe.MatchString(f.value) {
			return fmt.Errorf("%w for %s: %q", ErrInvalidIdentifier, f.name, f.value)
		}
	}
	return nil
}

// Verify probes every mapped table and column with a zero-row select so a mismatch
// between the mapping and the live store fails at startup instead of on first request.
func (s Schema) Verify(ctx context.Context, db *sql.DB) error {
	probes := []struct {
		table   string
		columns []string
	}{
		{
			table: s.Measurement.Table,
			columns: []string{
				s.Measurement.Columns.Station,
				s.Measurement.Columns.Date,
				s.Measurement.Columns.Prcp,
				s.Measurement.Columns.Tobs,
			},
		},
		{
			table:   s.Station.Table,
			columns: []string{s.Station.Columns.Station},
		},
	}
	for _, p := range probes {
		q := "SELECT " + strings.Join(p.columns, ", ") + " FROM " + p.table + " WHERE 1 = 0"
		rows, err := db.QueryContext(ctx, q)
		if err != nil {
			return fmt.Errorf("verify table %s (%s): %w", p.table, strings.Join(p.columns, ", "), err)
		}
		err = rows.Err()
		if closeErr := rows.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("verify table %s: %w", p.table, err)
		}
	}
	return nil
}
