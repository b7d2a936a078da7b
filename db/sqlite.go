package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

func init() {
	if err := Register(string(SQLITE), &sqliteConnector{}); err != nil {
		panic(err)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() DialectName { return SQLITE }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) AddConditionAlloc(column string, values []interface{}, _ int) (string, []interface{}) {
	if len(values) == 0 {
		return "1=0", nil
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), values
}

type sqliteConnector struct{}

func (sqliteConnector) ConnectionPool(cfg Config) (Database, error) {
	dsn := strings.TrimPrefix(cfg.ConnString, "sqlite://")
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: opening sqlite connection: %w", err)
	}
	applyPoolSettings(conn, cfg)

	// SQLite only supports a single writer; force a single connection so
	// concurrent batches don't hit "database is locked" errors, matching
	// the teacher's memmode single-connection handling in db/sql/sqlite.go.
	conn.SetMaxOpenConns(1)

	return &sqlDatabase{conn: conn, dialect: sqliteDialect{}}, nil
}

func (sqliteConnector) DialectName(string) (DialectName, error) { return SQLITE, nil }
