package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq" // postgres driver
)

func init() {
	if err := Register(string(POSTGRES), &postgresConnector{}); err != nil {
		panic(err)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() DialectName { return POSTGRES }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) AddConditionAlloc(column string, values []interface{}, argOffset int) (string, []interface{}) {
	if len(values) == 0 {
		return "1=0", nil
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "$" + strconv.Itoa(argOffset+i+1)
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), values
}

type postgresConnector struct{}

func (postgresConnector) ConnectionPool(cfg Config) (Database, error) {
	conn, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("db: opening postgres connection: %w", err)
	}
	applyPoolSettings(conn, cfg)

	return &sqlDatabase{conn: conn, dialect: postgresDialect{}}, nil
}

func (postgresConnector) DialectName(string) (DialectName, error) { return POSTGRES, nil }
