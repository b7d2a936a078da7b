package db

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlDatabase is the Database implementation shared by all four dialects;
// only the *sql.DB handle and Dialect differ between them.
type sqlDatabase struct {
	conn    *sql.DB
	dialect Dialect
}

func (d *sqlDatabase) NewSession(ctx context.Context) Session {
	return &sqlSession{
		ctx:     ctx,
		conn:    d.conn,
		dialect: d.dialect,
		sqlGateway: sqlGateway{
			conn:    d.conn,
			dialect: d.dialect,
		},
	}
}

func (d *sqlDatabase) Dialect() Dialect { return d.dialect }

func (d *sqlDatabase) Close() error { return d.conn.Close() }

// sqlSession implements Session. Transact swaps the embedded gateway's
// connection for a *sql.Tx for the lifetime of the callback.
type sqlSession struct {
	sqlGateway
	ctx     context.Context
	conn    *sql.DB
	dialect Dialect
}

func (s *sqlSession) Transact(fn func(tx DatabaseAccessor) error) error {
	tx, err := s.conn.BeginTx(s.ctx, nil)
	if err != nil {
		return fmt.Errorf("db: beginning transaction: %w", err)
	}

	txGateway := &sqlGateway{conn: tx, dialect: s.dialect}

	if err := fn(txGateway); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("db: transaction failed (%v), rollback also failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: committing transaction: %w", err)
	}
	return nil
}
