// Package api serves diagnostics and remote control of a running chart
// engine over HTTP.
//
// Read endpoints return the snapshots the frame loop publishes; write
// endpoints never touch the controller directly but Post a command that
// runs on the frame goroutine before the next frame.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/chart"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/metrics"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// HistorySource loads stored ticks for a symbol, oldest first.
type HistorySource interface {
	ReadTicks(ctx context.Context, symbol string, since int64) ([]model.Tick, error)
}

// Deps are the collaborators of the router. Only Controller is required.
type Deps struct {
	Controller    *chart.Controller
	Health        *metrics.HealthStatus
	Frames        *metrics.FrameTracker
	History       HistorySource
	HistoryWindow time.Duration
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
}

type handler struct {
	Deps
	now func() time.Time
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	h := &handler{Deps: d, now: time.Now}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/candles", h.candles)
		v1.GET("/book", h.book)
		v1.GET("/frames", h.frames)
		v1.GET("/timeframes", h.timeframes)

		v1.POST("/symbol", h.changeSymbol)
		v1.POST("/timeframe", h.changeTimeframe)
		v1.POST("/view/reset", h.resetView)
		v1.POST("/view/zoom", h.zoomCandles)
		v1.POST("/view/pan", h.panCandles)
		v1.POST("/price/wheel", h.wheelPrice)
		v1.POST("/book/scroll", h.scrollBook)
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	if h.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}
	rep, code := h.Health.Report(h.now())
	c.JSON(code, rep)
}

// queryInt reads a non-negative integer query parameter; 0 means absent.
func queryInt(c *gin.Context, key string) (int, bool) {
	s := c.Query(key)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func (h *handler) candles(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	snap := h.Controller.CandlesSnapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	out := *snap
	if limit > 0 && len(out.Candles) > limit {
		out.Candles = out.Candles[len(out.Candles)-limit:]
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) book(c *gin.Context) {
	depth, ok := queryInt(c, "depth")
	if !ok {
		return
	}
	snap := h.Controller.BookSnapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	out := *snap
	if depth > 0 {
		if len(out.Bids) > depth {
			out.Bids = out.Bids[:depth]
		}
		if len(out.Asks) > depth {
			out.Asks = out.Asks[:depth]
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) frames(c *gin.Context) {
	if h.Frames == nil {
		c.JSON(http.StatusOK, metrics.FrameStats{})
		return
	}
	c.JSON(http.StatusOK, h.Frames.Stats())
}

func (h *handler) timeframes(c *gin.Context) {
	tfs := model.Timeframes()
	out := make([]gin.H, len(tfs))
	for i, tf := range tfs {
		out[i] = gin.H{"label": tf.String(), "seconds": tf.Seconds()}
	}
	c.JSON(http.StatusOK, out)
}

// post queues fn on the frame goroutine and answers 202, or 503 when the
// command queue is full.
func (h *handler) post(c *gin.Context, fn func(*chart.Controller)) {
	if !h.Controller.Post(fn) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "command queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"required,max=32"`
}

func (h *handler) changeSymbol(c *gin.Context) {
	var req symbolRequest
	if !bind(c, &req) {
		return
	}

	var history []model.Tick
	if h.History != nil {
		since := int64(0)
		if h.HistoryWindow > 0 {
			since = h.now().Add(-h.HistoryWindow).Unix()
		}
		ticks, err := h.History.ReadTicks(c.Request.Context(), req.Symbol, since)
		if err != nil {
			// a chart without history is still usable
			h.Logger.Warn("history load failed", "symbol", req.Symbol, "error", err)
		} else {
			history = ticks
		}
	}

	h.post(c, func(ctl *chart.Controller) {
		ctl.ChangeSymbol(req.Symbol, history)
		if h.Health != nil {
			h.Health.SetInstrument(req.Symbol, ctl.Timeframe().String())
		}
	})
}

type timeframeRequest struct {
	Timeframe string `json:"timeframe" binding:"required"`
}

func (h *handler) changeTimeframe(c *gin.Context) {
	var req timeframeRequest
	if !bind(c, &req) {
		return
	}
	tf, err := model.ParseTimeframe(req.Timeframe)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.post(c, func(ctl *chart.Controller) {
		ctl.ChangeTimeframe(tf)
		if h.Health != nil {
			h.Health.SetInstrument(ctl.Symbol(), tf.String())
		}
	})
}

func (h *handler) resetView(c *gin.Context) {
	h.post(c, (*chart.Controller).ResetView)
}

type zoomRequest struct {
	Factor float64 `json:"factor" binding:"required,gt=0"`
}

func (h *handler) zoomCandles(c *gin.Context) {
	var req zoomRequest
	if !bind(c, &req) {
		return
	}
	h.post(c, func(ctl *chart.Controller) { ctl.ZoomCandles(req.Factor) })
}

type panRequest struct {
	DeltaPx float64 `json:"delta_px"`
	WidthPx float64 `json:"width_px" binding:"required,gt=0"`
}

func (h *handler) panCandles(c *gin.Context) {
	var req panRequest
	if !bind(c, &req) {
		return
	}
	h.post(c, func(ctl *chart.Controller) { ctl.PanCandles(req.DeltaPx, req.WidthPx) })
}

type wheelRequest struct {
	DeltaY   float64 `json:"delta_y"`
	CursorY  float64 `json:"cursor_y"`
	HeightPx float64 `json:"height_px" binding:"required,gt=0"`
}

func (h *handler) wheelPrice(c *gin.Context) {
	var req wheelRequest
	if !bind(c, &req) {
		return
	}
	h.post(c, func(ctl *chart.Controller) { ctl.WheelPrice(req.DeltaY, req.CursorY, req.HeightPx) })
}

type scrollRequest struct {
	Side string  `json:"side" binding:"required,oneof=bid ask"`
	Top  float64 `json:"top" binding:"gte=0"`
}

func (h *handler) scrollBook(c *gin.Context) {
	var req scrollRequest
	if !bind(c, &req) {
		return
	}
	side := model.Bid
	if req.Side == "ask" {
		side = model.Ask
	}
	h.post(c, func(ctl *chart.Controller) { ctl.ScrollBook(side, req.Top) })
}

// Server wraps an http.Server around the router.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(d),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: d.Logger,
	}
}

// Start serves until Stop is called. It returns nil after a clean stop.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
