package climate

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"climate-server/internal/db"
	"climate-server/internal/migrate"
	"climate-server/internal/modules/climate/service"
	"climate-server/internal/modules/climate/views"

	_ "github.com/mattn/go-sqlite3"
)

const hawaiiRows = `
	('USC00519397', '2016-08-22', 0.40, 76),
	('USC00519397', '2016-08-23', 0.00, 81),
	('USC00519281', '2016-08-24', NULL, 77),
	('USC00519281', '2016-08-25', 0.06, 80),
	('USC00513117', '2017-08-20', 0.01, 79),
	('USC00519281', '2017-08-23', NULL, 81)
`

func newServer(t *testing.T, rows string) *httptest.Server {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := migrate.Run(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if rows != "" {
		if _, err := conn.Exec(`INSERT INTO measurement (station, date, prcp, tobs) VALUES ` + rows); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	schema, err := db.DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}

	mux := http.NewServeMux()
	if err := RegisterFeature(mux, conn, schema, db.DialectFor("sqlite3"), nil); err != nil {
		t.Fatalf("RegisterFeature: %v", err)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestRangeEndDateIsInclusive(t *testing.T) {
	srv := newServer(t, `('USC001', '2017-08-20', 0.0, 79), ('USC001', '2017-08-23', 0.0, 81)`)

	code, body := get(t, srv, "/api/v1.0/2017-08-20/2017-08-23")
	if code != http.StatusOK {
		t.Fatalf("status = %d; want %d", code, http.StatusOK)
	}
	if body != `{"Min":81,"Max":81,"Avg":81}` {
		t.Errorf("body = %s; want {\"Min\":81,\"Max\":81,\"Avg\":81}", body)
	}
}

func TestPrecipitationCoversLastYear(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	code, body := get(t, srv, "/api/v1.0/precipitation")
	if code != http.StatusOK {
		t.Fatalf("status = %d; want %d", code, http.StatusOK)
	}
	want := `[{"date":"2016-08-24","prcp":null},{"date":"2016-08-25","prcp":0.06},{"date":"2017-08-20","prcp":0.01},{"date":"2017-08-23","prcp":null}]`
	if body != want {
		t.Errorf("body = %s; want %s", body, want)
	}
}

func TestStationsAreDistinct(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	code, body := get(t, srv, "/api/v1.0/stations")
	if code != http.StatusOK {
		t.Fatalf("status = %d; want %d", code, http.StatusOK)
	}
	var stations []struct {
		Station string `json:"station"`
	}
	if err := json.Unmarshal([]byte(body), &stations); err != nil {
		t.Fatalf("decode: %v", err)
	}
	seen := map[string]bool{}
	for _, s := range stations {
		if seen[s.Station] {
			t.Errorf("duplicate station %q in %s", s.Station, body)
		}
		seen[s.Station] = true
	}
	if len(stations) != 3 {
		t.Errorf("stations = %d; want 3", len(stations))
	}
}

func TestTobsUsesMostFrequentStation(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	code, body := get(t, srv, "/api/v1.0/tobs")
	if code != http.StatusOK {
		t.Fatalf("status = %d; want %d", code, http.StatusOK)
	}
	want := `[{"date":"2016-08-24","tobs":77},{"date":"2016-08-25","tobs":80},{"date":"2017-08-23","tobs":81}]`
	if body != want {
		t.Errorf("body = %s; want %s", body, want)
	}
}

func TestRangeStartOnly(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	code, body := get(t, srv, "/api/v1.0/2016-08-23")
	if code != http.StatusOK {
		t.Fatalf("status = %d; want %d", code, http.StatusOK)
	}
	// 77, 80, 79, 81
	if body != `{"Min":77,"Max":81,"Avg":79.25}` {
		t.Errorf("body = %s", body)
	}
}

func TestRangeNoRecords(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	code, body := get(t, srv, "/api/v1.0/2020-01-01")
	if code != http.StatusOK || body != service.NoRecordsMessage {
		t.Errorf("GET = %d %q; want 200 %q", code, body, service.NoRecordsMessage)
	}
}

func TestRangeInvalidDate(t *testing.T) {
	srv := newServer(t, hawaiiRows)

	if code, _ := get(t, srv, "/api/v1.0/2016-8-23"); code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", code, http.StatusBadRequest)
	}
}

func TestEmptyDataset(t *testing.T) {
	srv := newServer(t, "")

	for _, path := range []string{"/api/v1.0/precipitation", "/api/v1.0/tobs"} {
		if code, _ := get(t, srv, path); code != http.StatusNotFound {
			t.Errorf("GET %s = %d; want %d", path, code, http.StatusNotFound)
		}
	}
	if code, body := get(t, srv, "/api/v1.0/stations"); code != http.StatusOK || body != "[]" {
		t.Errorf("GET /api/v1.0/stations = %d %s; want 200 []", code, body)
	}
}

func TestWelcome(t *testing.T) {
	srv := newServer(t, "")

	code, body := get(t, srv, "/")
	if code != http.StatusOK || !strings.Contains(body, "/api/v1.0/tobs") {
		t.Errorf("GET / = %d %q", code, body)
	}
}

func TestRegisterFeature_invalidSchema(t *testing.T) {
	schema, err := db.DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}
	schema.Measurement.Columns.Date = "date; DROP TABLE measurement"
	if err := RegisterFeature(http.NewServeMux(), nil, schema, db.DialectFor("sqlite3"), nil); err == nil {
		t.Fatal("RegisterFeature() = nil; want schema error")
	}
}

func TestRangeAvgRoundsHalfToEven(t *testing.T) {
	srv := newServer(t, `
		('USC001', '2017-01-02', 0.0, 72), ('USC001', '2017-01-03', 0.0, 72),
		('USC001', '2017-01-04', 0.0, 72), ('USC001', '2017-01-05', 0.0, 72),
		('USC001', '2017-01-06', 0.0, 72), ('USC001', '2017-01-07', 0.0, 72),
		('USC001', '2017-01-08', 0.0, 72), ('USC001', '2017-01-09', 0.0, 73)`)

	code, body := get(t, srv, "/api/v1.0/2017-01-01")
	if code != http.StatusOK || body != `{"Min":72,"Max":73,"Avg":72.12}` {
		t.Errorf("GET = %d %s; want 200 {\"Min\":72,\"Max\":73,\"Avg\":72.12}", code, body)
	}
}
