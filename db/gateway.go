package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// questionPlaceholder matches the "?" placeholders every query in this
// module is written with; rebind rewrites them to whatever the underlying
// driver expects. This is the same trick as the teacher's
// updatePlaceholders/rUpdatePlaceholders in acronis-perfkit/db/sql/search.go,
// generalized to also handle MSSQL's @p1-style placeholders.
var questionPlaceholder = regexp.MustCompile(`\?`)

func rebind(name DialectName, query string) string {
	switch name {
	case POSTGRES:
		n := 0
		return questionPlaceholder.ReplaceAllStringFunc(query, func(string) string {
			n++
			return "$" + strconv.Itoa(n)
		})
	case MSSQL:
		n := 0
		return questionPlaceholder.ReplaceAllStringFunc(query, func(string) string {
			n++
			return "@p" + strconv.Itoa(n)
		})
	default: // SQLITE, MYSQL
		return query
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// sqlGateway implements DatabaseAccessor over any execer, parameterized by
// dialect. It is shared by all four dialect packages in this module.
type sqlGateway struct {
	conn    execer
	dialect Dialect
}

func (g *sqlGateway) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := g.conn.QueryContext(ctx, rebind(g.dialect.Name(), query), args...)
	if err != nil {
		return nil, fmt.Errorf("db: query failed: %w", err)
	}
	return &sqlRows{rows: rows}, nil
}

func (g *sqlGateway) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	res, err := g.conn.ExecContext(ctx, rebind(g.dialect.Name(), query), args...)
	if err != nil {
		return nil, fmt.Errorf("db: exec failed: %w", err)
	}
	return res, nil
}

func (g *sqlGateway) SelectOneValue(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	rows, err := g.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.Scan(dest)
}

func (g *sqlGateway) InsertAutoIncrement(ctx context.Context, table string, idColumn string, columns []string, rows [][]interface{}) ([]int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(rows))

	if g.dialect.Name() == POSTGRES {
		var placeholders []string
		var args []interface{}
		offset := 0
		for _, row := range rows {
			ph := make([]string, len(row))
			for i := range row {
				ph[i] = "?"
				offset++
			}
			placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
			args = append(args, row...)
		}

		query := fmt.Sprintf("INSERT INTO %s(%s) VALUES %s RETURNING %s",
			table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), idColumn)

		result, err := g.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("db: bulk insert into %s failed: %w", table, err)
		}
		defer result.Close()

		for result.Next() {
			var id int64
			if err := result.Scan(&id); err != nil {
				return nil, fmt.Errorf("db: scanning inserted id from %s: %w", table, err)
			}
			ids = append(ids, id)
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		return ids, nil
	}

	// SQLite/MySQL/MSSQL: no multi-row RETURNING. Insert row-by-row and
	// collect LastInsertId, which for these drivers reflects exactly the
	// row just inserted.
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	for _, row := range rows {
		res, err := g.Exec(ctx, query, row...)
		if err != nil {
			return nil, fmt.Errorf("db: insert into %s failed: %w", table, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("db: retrieving autoincrement id from %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sqlRows adapts *sql.Rows to the Rows interface.
type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                    { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...interface{}) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Close() error                  { return r.rows.Close() }
func (r *sqlRows) Err() error                    { return r.rows.Err() }
