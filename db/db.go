// Package db holds the optional direct Postgres connection. When
// DATABASE_URL is set, queries bypass the REST data API and run through
// PostgresRunner, which applies the caller's JWT claims to every
// transaction so row-level security still decides what the caller sees.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

// Connect opens a pooled handle and pings it within timeout.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err = conn.PingContext(pingCtx); err != nil {
		pingErr := fmt.Errorf("failed to ping database within %v: %w", timeout, err)
		if closeErr := conn.Close(); closeErr != nil {
			return nil, errors.Join(pingErr, fmt.Errorf("close after failed ping: %w", closeErr))
		}
		return nil, pingErr
	}

	return conn, nil
}
