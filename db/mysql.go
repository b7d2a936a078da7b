package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver
)

func init() {
	if err := Register(string(MYSQL), &mysqlConnector{}); err != nil {
		panic(err)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() DialectName { return MYSQL }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) AddConditionAlloc(column string, values []interface{}, _ int) (string, []interface{}) {
	if len(values) == 0 {
		return "1=0", nil
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), values
}

type mysqlConnector struct{}

func (mysqlConnector) ConnectionPool(cfg Config) (Database, error) {
	dsn := strings.TrimPrefix(cfg.ConnString, "mysql://")
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: opening mysql connection: %w", err)
	}
	applyPoolSettings(conn, cfg)

	return &sqlDatabase{conn: conn, dialect: mysqlDialect{}}, nil
}

func (mysqlConnector) DialectName(string) (DialectName, error) { return MYSQL, nil }
