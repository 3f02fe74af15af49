package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// Reader provides read-only access to stored ticks.
type Reader struct {
	db *sql.DB
}

// NewReader opens the database for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadTicks returns the ticks of symbol with ts >= since, oldest first.
// Rows that share a timestamp keep their insertion order.
func (r *Reader) ReadTicks(ctx context.Context, symbol string, since int64) ([]model.Tick, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, price FROM ticks
		WHERE symbol = ? AND ts >= ?
		ORDER BY ts ASC, id ASC
	`, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("sqlite read ticks: %w", err)
	}
	defer rows.Close()

	var out []model.Tick
	for rows.Next() {
		t := model.Tick{Symbol: symbol}
		if err := rows.Scan(&t.Time, &t.Value); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Symbols lists every symbol with stored ticks.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite read symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
