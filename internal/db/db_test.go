package db

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"climate-server/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "sqlite plain path is read-only",
			cfg:  config.Config{DBDriver: "sqlite3", SQLitePath: "Resources/hawaii.sqlite"},
			want: "file:Resources/hawaii.sqlite?mode=ro&_busy_timeout=5000",
		},
		{
			name: "sqlite file uri keeps existing params",
			cfg:  config.Config{DBDriver: "sqlite3", SQLitePath: "file:/data/hawaii.sqlite?cache=shared"},
			want: "file:/data/hawaii.sqlite?cache=shared&mode=ro&_busy_timeout=5000",
		},
		{
			name: "sqlite explicit dsn wins",
			cfg:  config.Config{DBDriver: "sqlite3", DBDSN: ":memory:", SQLitePath: "ignored.db"},
			want: ":memory:",
		},
		{
			name: "postgres passes dsn through",
			cfg:  config.Config{DBDriver: "postgres", DBDSN: "postgres://u:p@db:5432/hawaii"},
			want: "postgres://u:p@db:5432/hawaii",
		},
		{
			name: "mysql passes valid dsn through",
			cfg:  config.Config{DBDriver: "mysql", DBDSN: "u:p@tcp(db:3306)/hawaii"},
			want: "u:p@tcp(db:3306)/hawaii",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN() err = %v; want nil", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDSN_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "empty sqlite path", cfg: config.Config{DBDriver: "sqlite3"}},
		{name: "malformed mysql dsn", cfg: config.Config{DBDriver: "mysql", DBDSN: "u:p@db:3306/hawaii"}},
		{name: "postgres without dsn", cfg: config.Config{DBDriver: "postgres"}},
		{name: "unknown driver", cfg: config.Config{DBDriver: "oracle", DBDSN: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildDSN(tt.cfg); err == nil {
				t.Fatal("buildDSN() err = nil; want error")
			}
		})
	}
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	rw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	defer func() { _ = rw.Close() }()
	if _, err := rw.Exec(`
		CREATE TABLE measurement (id INTEGER PRIMARY KEY, station TEXT, date TEXT, prcp REAL, tobs REAL);
		CREATE TABLE station (id INTEGER PRIMARY KEY, station TEXT, name TEXT);
		INSERT INTO measurement (station, date, prcp, tobs) VALUES ('USC00519397', '2010-01-01', 0.08, 65.0);
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return path
}

func TestOpen_sqliteReadOnly(t *testing.T) {
	path := writeDataset(t)
	cfg := config.Config{DBDriver: "sqlite3", SQLitePath: path, DBMaxOpenConns: 2, DBMaxIdleConns: 1}

	conn, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	defer func() { _ = Close(conn) }()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d; want 1", n)
	}

	if _, err := conn.Exec(`DELETE FROM measurement`); err == nil {
		t.Fatal("DELETE on read-only dataset succeeded; want error")
	}
}

func TestOpen_sqliteWithStatementLogging(t *testing.T) {
	path := writeDataset(t)
	handler := &captureHandler{}
	cfg := config.Config{DBDriver: "sqlite3", SQLitePath: path, DBLogSQL: true}

	conn, err := Open(context.Background(), cfg, slog.New(handler))
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	defer func() { _ = Close(conn) }()

	var station string
	if err := conn.QueryRow(`SELECT station FROM measurement`).Scan(&station); err != nil {
		t.Fatalf("select: %v", err)
	}
	got := handler.last(t, "sql")
	if !strings.Contains(got["sql"].String(), "SELECT station FROM measurement") {
		t.Errorf("sql = %q", got["sql"].String())
	}
}

func TestOpen_missingSQLiteFile(t *testing.T) {
	cfg := config.Config{DBDriver: "sqlite3", SQLitePath: filepath.Join(t.TempDir(), "absent.sqlite")}
	conn, err := Open(context.Background(), cfg, nil)
	if err == nil {
		_ = Close(conn)
		t.Fatal("Open() err = nil for missing file; want error")
	}
	if !strings.Contains(err.Error(), "db ping") {
		t.Errorf("err = %q; want db ping error", err.Error())
	}
}

func TestClose_nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v; want nil", err)
	}
}
