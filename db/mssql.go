package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // mssql driver
)

func init() {
	if err := Register(string(MSSQL), &mssqlConnector{}); err != nil {
		panic(err)
	}
}

type mssqlDialect struct{}

func (mssqlDialect) Name() DialectName { return MSSQL }

func (mssqlDialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (mssqlDialect) AddConditionAlloc(column string, values []interface{}, argOffset int) (string, []interface{}) {
	if len(values) == 0 {
		return "1=0", nil
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "@p" + strconv.Itoa(argOffset+i+1)
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), values
}

type mssqlConnector struct{}

func (mssqlConnector) ConnectionPool(cfg Config) (Database, error) {
	conn, err := sql.Open("sqlserver", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("db: opening mssql connection: %w", err)
	}
	applyPoolSettings(conn, cfg)

	return &sqlDatabase{conn: conn, dialect: mssqlDialect{}}, nil
}

func (mssqlConnector) DialectName(string) (DialectName, error) { return MSSQL, nil }
