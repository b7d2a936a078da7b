// Package db is the database abstraction consumed by the rest of this
// module (spec.md §6, "Database (consumed)"). It is deliberately the
// trimmed-down primitive set the spec lists: parameterized query/exec, row
// iteration, a bulk-insert builder that retrieves autoincrement ids, a
// batched multi-statement update discipline, and an IN(...) clause
// allocator — not a general-purpose ORM.
//
// The shape (a Connector registry keyed by connection-string scheme, a
// Dialect abstraction, a Database/Session split where Session adds
// transactional semantics) is adapted from the teacher's
// acronis-perfkit/db package.
package db

import (
	"context"
	"fmt"
	"sync"
)

// DialectName identifies a supported SQL dialect.
type DialectName string

const (
	SQLITE   DialectName = "sqlite"
	POSTGRES DialectName = "postgres"
	MYSQL    DialectName = "mysql"
	MSSQL    DialectName = "mssql"
)

// Config configures a connection pool.
type Config struct {
	ConnString      string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime int // seconds, 0 means driver default
}

// Connector registers a driver-backed connection pool factory for a
// connection-string scheme. See Register.
type Connector interface {
	ConnectionPool(cfg Config) (Database, error)
	DialectName(scheme string) (DialectName, error)
}

var (
	registryLock sync.Mutex
	registry     = make(map[string]Connector)
)

// Register associates a connection-string scheme (e.g. "postgres") with a
// Connector. Dialect packages call this from an init() function.
func Register(scheme string, conn Connector) error {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, exists := registry[scheme]; exists {
		return fmt.Errorf("db: scheme %q already registered", scheme)
	}
	registry[scheme] = conn
	return nil
}

// Open parses cfg.ConnString's scheme and opens a connection pool through
// the registered Connector.
func Open(cfg Config) (Database, error) {
	scheme, err := ParseScheme(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("db: parsing connection string: %w", err)
	}

	registryLock.Lock()
	conn, ok := registry[scheme]
	registryLock.Unlock()
	if !ok {
		return nil, fmt.Errorf("db: no connector registered for scheme %q", scheme)
	}

	return conn.ConnectionPool(cfg)
}

// Rows iterates a result set. It mirrors database/sql.Rows closely enough
// that dialect implementations are thin wrappers.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Result is the outcome of a non-query statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// DatabaseAccessor is the set of operations available both inside and
// outside an explicit transaction.
type DatabaseAccessor interface {
	// Query runs a parameterized SELECT and returns an iterator.
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)

	// Exec runs a parameterized statement that doesn't return rows.
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// SelectOneValue runs a single-row probe query (the DBselectN idiom:
	// "does at least one row matching this predicate exist") and scans its
	// first column into dest. It returns sql.ErrNoRows if the query produced no
	// rows, same semantics as database/sql.Row.Scan.
	SelectOneValue(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// InsertAutoIncrement bulk-inserts rows into table and returns the
	// autoincrement id assigned to each row, in input order. columns lists
	// every non-autoincrement column being written; each element of rows
	// must have len(columns) values in the same order.
	InsertAutoIncrement(ctx context.Context, table string, idColumn string, columns []string, rows [][]interface{}) ([]int64, error)
}

// Session is a DatabaseAccessor bound to a single connection/transaction
// lifecycle.
type Session interface {
	DatabaseAccessor

	// Transact runs fn within a transaction, committing on nil error and
	// rolling back otherwise. All mutations process_actions issues for one
	// batch (new escalations + recovery updates) go through one Transact
	// call so they become visible atomically (spec.md §5).
	Transact(fn func(tx DatabaseAccessor) error) error
}

// Database is a connection pool plus everything needed to start sessions
// and build dialect-aware SQL fragments.
type Database interface {
	// NewSession starts a new Session. Callers are responsible for closing
	// resources via the Session's lifecycle (committing/rolling back
	// Transact, or simply letting a non-transactional Session's underlying
	// connection return to the pool).
	NewSession(ctx context.Context) Session

	// Dialect exposes dialect-specific SQL fragment helpers (placeholder
	// style, IN-clause construction).
	Dialect() Dialect

	// Close releases the underlying connection pool.
	Close() error
}

// Dialect captures the handful of per-database differences this module's
// queries need to account for: parameter placeholder syntax and
// IN(...) clause construction (AddConditionAlloc in spec.md §6).
type Dialect interface {
	Name() DialectName

	// Placeholder returns the parameter placeholder for the nth
	// (1-indexed) bound argument in a statement.
	Placeholder(n int) string

	// AddConditionAlloc builds a "column IN (?, ?, ...)" clause (or its
	// dialect-specific equivalent) for values, along with the argument
	// list to pass alongside the rest of the statement's arguments.
	// argOffset is the number of placeholders already used earlier in the
	// statement (needed by dialects with positional placeholders, e.g.
	// PostgreSQL's $1, $2, ...).
	AddConditionAlloc(column string, values []interface{}, argOffset int) (clause string, args []interface{})
}
