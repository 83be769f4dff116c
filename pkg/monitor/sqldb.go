package monitor

import (
	"context"
	"database/sql"
)

// Conn is the query surface shared by *sql.DB, *sql.Tx and *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB records every statement sent through it on a Monitor.
// Errors from the underlying connection are returned unchanged.
type DB struct {
	conn Conn
	mon  *Monitor
}

var _ Conn = (*DB)(nil)

// WrapDB returns a recording wrapper around conn.
func WrapDB(conn Conn, m *Monitor) *DB {
	return &DB{conn: conn, mon: m}
}

// ExecContext executes a statement that doesn't return rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := d.mon.now()
	res, err := d.conn.ExecContext(ctx, query, args...)
	d.mon.Record(query, d.mon.now().Sub(start))
	return res, err
}

// QueryContext executes a statement that returns rows. The recorded duration
// covers the round trip to the first row, not the iteration.
//
//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := d.mon.now()
	rows, err := d.conn.QueryContext(ctx, query, args...)
	d.mon.Record(query, d.mon.now().Sub(start))
	return rows, err
}

// QueryRowContext executes a statement expected to return at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := d.mon.now()
	row := d.conn.QueryRowContext(ctx, query, args...)
	d.mon.Record(query, d.mon.now().Sub(start))
	return row
}
