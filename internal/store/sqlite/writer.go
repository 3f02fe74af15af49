// Package sqlite persists raw ticks so a restarted chart can rebuild its
// candles from history instead of starting empty.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond

	dsnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath     string // e.g. "data/ticks.db"
	BatchSize  int
	FlushEvery time.Duration
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db     *sql.DB
	cfg    WriterConfig
	logger *slog.Logger

	// OnCommit is called after every successful batch (optional).
	OnCommit func(rows int, took time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens (or creates) the database in WAL mode and ensures the schema.
func New(cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", cfg.DBPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger.Info("sqlite writer opened", "path", cfg.DBPath)
	return &Writer{db: db, cfg: cfg, logger: logger}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ticks (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			price  REAL    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, ts);
	`)
	return err
}

// Run reads ticks from tickCh and inserts them in batched transactions until
// ctx is cancelled or the channel closes. Pending rows are flushed on exit.
func (w *Writer) Run(ctx context.Context, tickCh <-chan model.Tick) {
	batch := make([]model.Tick, 0, w.cfg.BatchSize)
	timer := time.NewTimer(w.cfg.FlushEvery)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			w.logger.Error("sqlite batch insert failed", "rows", len(batch), "error", err)
		} else {
			took := time.Since(start)
			w.logger.Debug("sqlite batch committed", "rows", len(batch), "took", took)
			if w.OnCommit != nil {
				w.OnCommit(len(batch), took)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case t, ok := <-tickCh:
			if !ok {
				flush()
				return
			}
			if !t.Valid() || t.Symbol == "" {
				continue
			}
			batch = append(batch, t)
			if len(batch) >= w.cfg.BatchSize {
				flush()
				timer.Reset(w.cfg.FlushEvery)
			}
		case <-timer.C:
			flush()
			timer.Reset(w.cfg.FlushEvery)
		}
	}
}

// insertBatch inserts ticks in a single transaction.
func (w *Writer) insertBatch(ticks []model.Tick) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO ticks (symbol, ts, price) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.Exec(t.Symbol, t.Time, t.Value); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Prune deletes ticks older than before for every symbol and returns how
// many rows were removed.
func (w *Writer) Prune(ctx context.Context, before int64) (int64, error) {
	res, err := w.db.ExecContext(ctx, `DELETE FROM ticks WHERE ts < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("sqlite prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
