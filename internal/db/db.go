package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"climate-server/internal/config"

	mysql "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/snowflakedb/gosnowflake"
)

// Open connects to the configured store and validates connectivity. The dataset is owned
// externally; sqlite files are opened read-only.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	if cfg.DBDriver == "sqlite3" && cfg.DBLogSQL {
		connector, err := NewLoggingConnector(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		conn = sql.OpenDB(connector)
	} else {
		conn, err = sql.Open(cfg.DBDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.DBMaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns >= 0 {
		conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return conn, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(cfg config.Config) (string, error) {
	switch cfg.DBDriver {
	case "sqlite3":
		if cfg.DBDSN != "" {
			return cfg.DBDSN, nil
		}
		return readOnlySQLiteDSN(cfg.SQLitePath)
	case "mysql":
		// Fail on a malformed DSN here rather than on the first query.
		if _, err := mysql.ParseDSN(cfg.DBDSN); err != nil {
			return "", fmt.Errorf("invalid mysql DB_DSN: %w", err)
		}
		return cfg.DBDSN, nil
	case "postgres", "snowflake":
		if cfg.DBDSN == "" {
			return "", fmt.Errorf("DB_DSN is required for driver %q", cfg.DBDriver)
		}
		return cfg.DBDSN, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}

func readOnlySQLiteDSN(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("sqlite path is empty")
	}
	// mode=ro: the server never writes to the dataset, and a missing file fails on ping
	// instead of being created empty.
	params := []string{
		"mode=ro",
		"_busy_timeout=5000",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
