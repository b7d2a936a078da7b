package db

import (
	"database/sql"
	"time"
)

func applyPoolSettings(conn *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		conn.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Second)
	}
}
