package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the engine health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool
	LastTickTime   time.Time
	LastBookTime   time.Time
	RedisConnected bool
	RedisEnabled   bool
	SQLiteOK       bool
	SQLiteEnabled  bool
	Symbol         string
	Timeframe      string

	// Liveness probe results
	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastBookTime(t time.Time) {
	h.mu.Lock()
	h.LastBookTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetInstrument(symbol, timeframe string) {
	h.mu.Lock()
	h.Symbol = symbol
	h.Timeframe = timeframe
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the history database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either client may
// be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// HealthReport is the /healthz response body.
type HealthReport struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	Symbol          string  `json:"symbol"`
	Timeframe       string  `json:"timeframe"`
	FeedConnected   bool    `json:"feed_connected"`
	LastTickTime    string  `json:"last_tick_time"`
	TickAge         string  `json:"tick_age"`
	LastBookTime    string  `json:"last_book_time"`
	RedisConnected  bool    `json:"redis_connected"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	LastCheckAt     string  `json:"last_check_at"`
}

// Report summarises the health and returns the HTTP status to serve it
// with. A disconnected feed or a failing enabled dependency degrades the
// engine; the engine is unhealthy when it has no feed and every enabled
// dependency is down.
func (h *HealthStatus) Report(now time.Time) (HealthReport, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	redisDown := h.RedisEnabled && !h.RedisConnected
	sqliteDown := h.SQLiteEnabled && !h.SQLiteOK

	status := "healthy"
	code := http.StatusOK
	if !h.FeedConnected || redisDown || sqliteDown {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if !h.FeedConnected && (redisDown || !h.RedisEnabled) && (sqliteDown || !h.SQLiteEnabled) {
		status = "unhealthy"
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = now.Sub(h.LastTickTime).Round(time.Millisecond).String()
	}

	return HealthReport{
		Status:          status,
		Uptime:          now.Sub(h.StartedAt).Round(time.Second).String(),
		Symbol:          h.Symbol,
		Timeframe:       h.Timeframe,
		FeedConnected:   h.FeedConnected,
		LastTickTime:    formatTime(h.LastTickTime),
		TickAge:         tickAge,
		LastBookTime:    formatTime(h.LastBookTime),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     formatTime(h.LastCheckAt),
	}, code
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
