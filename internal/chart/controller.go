// Package chart wires the candle chart and the depth book into one
// frame-driven controller.
//
// Every component is owned by the goroutine that calls Frame (normally
// Run). Feed goroutines only touch the controller through Enqueue, and
// other goroutines through Post and the published snapshots.
package chart

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/bookview"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/agg"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/marketdata/feed"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/metrics"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/orderbook"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/pricerange"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/ringbuf"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/viewport"
)

const (
	DefaultMaxRawTicks = 200_000
	DefaultInboxSize   = 4096
	DefaultFPS         = 60
	DefaultBookDepth   = 50
	DefaultSnapCandles = 500

	commandQueueSize = 64
	inboxRetry       = time.Millisecond
)

// Options configures a Controller. Zero values pick the defaults.
type Options struct {
	Symbol         string
	Timeframe      model.Timeframe
	TickSize       float64
	MinLevels      int
	CandlesVisible int
	RowHeight      float64
	Grace          time.Duration
	MaxRawTicks    int
	InboxSize      int
	// BookDepth is how many levels per side BookSnapshot copies.
	BookDepth int
	// SnapshotCandles is how many of the newest candles CandlesSnapshot
	// copies.
	SnapshotCandles int
	Palette         render.Palette
}

func (o *Options) defaults() {
	if o.Timeframe == 0 {
		o.Timeframe = model.TF1m
	}
	if o.MaxRawTicks <= 0 {
		o.MaxRawTicks = DefaultMaxRawTicks
	}
	if o.InboxSize <= 0 {
		o.InboxSize = DefaultInboxSize
	}
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
	if o.BookDepth <= 0 {
		o.BookDepth = DefaultBookDepth
	}
	if o.SnapshotCandles <= 0 {
		o.SnapshotCandles = DefaultSnapCandles
	}
	if o.Palette == (render.Palette{}) {
		o.Palette = render.DefaultPalette
	}
}

// Surfaces are the render targets of one chart. Nil canvases are not
// painted; nil pools and spacers are replaced by in-memory ones.
type Surfaces struct {
	Chart     render.Canvas
	BidDepth  render.Canvas
	AskDepth  render.Canvas
	BidRows   render.RowPool
	AskRows   render.RowPool
	BidSpacer render.Spacer
	AskSpacer render.Spacer
}

// Layout is the pixel size of each panel for a frame.
type Layout struct {
	ChartWidth  float64
	ChartHeight float64
	DepthWidth  float64
	BookHeight  float64
}

// FrameStats describes what one frame did.
type FrameStats struct {
	Events   int
	Stale    int
	Ticks    int
	Books    int
	Candles  int
	Visible  int
	BidRows  int
	AskRows  int
	Reset    string
	Duration time.Duration
}

// CandlesView is the published read-only chart state.
type CandlesView struct {
	Symbol         string              `json:"symbol"`
	Timeframe      string              `json:"timeframe"`
	CandlesVisible int                 `json:"candles_visible"`
	BackOffset     int                 `json:"back_offset"`
	Price          pricerange.Snapshot `json:"price"`
	Candles        []model.Candle      `json:"candles"`
}

// BookView is the published read-only book state.
type BookView struct {
	Symbol string `json:"symbol"`
	orderbook.View
	BidGeometry bookview.Geometry `json:"bid_geometry"`
	AskGeometry bookview.Geometry `json:"ask_geometry"`
}

// Controller owns one instance of every chart component.
type Controller struct {
	opts Options
	log  *slog.Logger
	m    *metrics.Metrics

	prices   *pricerange.State
	agg      *agg.Aggregator
	view     *viewport.Viewport
	book     *orderbook.Store
	bidRows  *bookview.Rows
	askRows  *bookview.Rows
	bidDepth *bookview.Depth
	askDepth *bookview.Depth
	watchdog *Watchdog
	surf     Surfaces

	inbox *ringbuf.Ring[feed.Event]
	cmds  chan func(*Controller)

	symbol string
	tf     model.Timeframe
	raw    []model.Tick

	dragging  bool
	dragY     float64
	bidScroll float64
	askScroll float64

	rangeDirty   bool
	candlesDirty bool
	bookDirty    bool
	bidGeom      bookview.Geometry
	askGeom      bookview.Geometry

	candlesSnap atomic.Pointer[CandlesView]
	bookSnap    atomic.Pointer[BookView]

	// OnFrame is called after every frame (optional).
	OnFrame func(FrameStats)
}

// NewController builds the component graph. logger and m may be nil.
func NewController(opts Options, surf Surfaces, logger *slog.Logger, m *metrics.Metrics) *Controller {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if surf.BidRows == nil {
		surf.BidRows = &render.MemPool{}
	}
	if surf.AskRows == nil {
		surf.AskRows = &render.MemPool{}
	}
	if surf.BidSpacer == nil {
		surf.BidSpacer = &render.MemSpacer{}
	}
	if surf.AskSpacer == nil {
		surf.AskSpacer = &render.MemSpacer{}
	}

	prices := pricerange.New()
	book := orderbook.New(opts.TickSize, opts.MinLevels)
	c := &Controller{
		opts:     opts,
		log:      logger.With("component", "chart"),
		m:        m,
		prices:   prices,
		agg:      agg.New(opts.Timeframe.Seconds()),
		view:     viewport.New(prices, opts.CandlesVisible),
		book:     book,
		bidRows:  bookview.NewRows(model.Bid, book, surf.BidRows, surf.BidSpacer, opts.RowHeight),
		askRows:  bookview.NewRows(model.Ask, book, surf.AskRows, surf.AskSpacer, opts.RowHeight),
		bidDepth: bookview.NewDepth(book, opts.Palette),
		askDepth: bookview.NewDepth(book, opts.Palette),
		surf:     surf,
		inbox:    ringbuf.New[feed.Event](opts.InboxSize),
		cmds:     make(chan func(*Controller), commandQueueSize),
		symbol:   opts.Symbol,
		tf:       opts.Timeframe,

		rangeDirty:   true,
		candlesDirty: true,
		bookDirty:    true,
	}
	c.watchdog = NewWatchdog(prices, c.log)
	c.watchdog.Grace = opts.Grace

	if m != nil {
		c.agg.OnDroppedTick = m.DroppedTicks.Inc
		c.agg.OnClosed = func(model.Candle) { m.CandlesClosed.Inc() }
		c.watchdog.OnReset = func(reason string) { m.WatchdogReset.WithLabelValues(reason).Inc() }
	}
	book.OnExtend = func(side model.Side, added int) {
		c.bookDirty = true
		if m != nil {
			m.LevelsAdded.WithLabelValues(side.String()).Add(float64(added))
		}
	}
	c.publish()
	return c
}

// Enqueue hands a feed event to the frame loop. It must be called from a
// single producer goroutine. It returns false when the inbox is full and
// the event was dropped.
func (c *Controller) Enqueue(ev feed.Event) bool {
	if c.inbox.Push(ev) {
		return true
	}
	if c.m != nil {
		c.m.RingBufOverflow.Inc()
	}
	return false
}

// EnqueueWait is Enqueue for producers that must not lose events, such as
// replay. It waits for the frame loop to drain the inbox and returns
// ctx.Err() if ctx ends first. The single-producer rule still applies.
func (c *Controller) EnqueueWait(ctx context.Context, ev feed.Event) error {
	for !c.inbox.Push(ev) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(inboxRetry):
		}
	}
	return nil
}

// Post schedules fn to run on the frame goroutine before the next frame.
// It is safe for concurrent use and returns false if the queue is full.
func (c *Controller) Post(fn func(*Controller)) bool {
	select {
	case c.cmds <- fn:
		return true
	default:
		return false
	}
}

// Run produces frames at fps until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, fps int, layout Layout) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	c.log.Info("frame loop started", "fps", fps, "symbol", c.symbol, "timeframe", c.tf.String())
	for {
		select {
		case <-ctx.Done():
			c.log.Info("frame loop stopped")
			return nil
		case now := <-ticker.C:
			c.Frame(now, layout)
		}
	}
}

// Frame drains pending commands and events, then lays out and paints
// every panel.
func (c *Controller) Frame(now time.Time, l Layout) FrameStats {
	start := time.Now()
	var st FrameStats

	c.runCommands()
	c.drain(now, &st)

	candles := c.agg.View()
	st.Candles = len(candles)

	visible := c.view.Visible(candles)
	st.Visible = len(visible)
	lo, hi, ok := viewport.Extrema(visible)
	if reason := c.watchdog.Check(now, c.dragging, lo, hi, ok); reason != "" {
		st.Reset = reason
		c.rangeDirty = true
	}
	if c.rangeDirty {
		c.view.ComputeAutoRange(candles)
		c.rangeDirty = false
		c.candlesDirty = true
	}
	if c.surf.Chart != nil {
		c.view.Render(c.surf.Chart, c.opts.Palette, l.ChartWidth, l.ChartHeight, candles)
	}

	z := c.prices.ZoomFactor()
	c.bidRows.SetZoomFactor(z)
	c.askRows.SetZoomFactor(z)
	bg := c.bidRows.Render(c.bidScroll, l.BookHeight)
	ag := c.askRows.Render(c.askScroll, l.BookHeight)
	if bg != c.bidGeom || ag != c.askGeom {
		c.bookDirty = true
	}
	c.bidGeom, c.askGeom = bg, ag
	st.BidRows, st.AskRows = bg.Count, ag.Count
	if c.surf.BidDepth != nil {
		c.bidDepth.Render(c.surf.BidDepth, bg, l.DepthWidth)
	}
	if c.surf.AskDepth != nil {
		c.askDepth.Render(c.surf.AskDepth, ag, l.DepthWidth)
	}

	c.publish()

	st.Duration = time.Since(start)
	if c.m != nil {
		c.m.FrameDur.Observe(st.Duration.Seconds())
		c.m.Candles.Set(float64(st.Candles))
		c.m.VisibleRows.WithLabelValues("bid").Set(float64(bg.Count))
		c.m.VisibleRows.WithLabelValues("ask").Set(float64(ag.Count))
		c.m.BookLevels.WithLabelValues("bid").Set(float64(bg.Total))
		c.m.BookLevels.WithLabelValues("ask").Set(float64(ag.Total))
	}
	if c.OnFrame != nil {
		c.OnFrame(st)
	}
	return st
}

func (c *Controller) runCommands() {
	for {
		select {
		case fn := <-c.cmds:
			fn(c)
		default:
			return
		}
	}
}

// drain applies queued events for the current symbol. Only the newest
// book snapshot of the batch is applied; each one replaces the book.
func (c *Controller) drain(now time.Time, st *FrameStats) {
	var latest *model.BookSnapshot
	c.inbox.Drain(c.inbox.Cap(), func(ev feed.Event) {
		st.Events++
		if ev.Symbol != "" && ev.Symbol != c.symbol {
			st.Stale++
			return
		}
		switch ev.Kind {
		case feed.KindTick:
			if c.applyTick(ev.Tick) {
				st.Ticks++
			}
		case feed.KindBook:
			if ev.Book != nil {
				latest = ev.Book
				st.Books++
			}
		}
		if c.m != nil && !ev.Received.IsZero() {
			c.m.E2ELatency.Observe(now.Sub(ev.Received).Seconds())
		}
	})
	if latest != nil {
		c.book.Update(latest)
		c.bookDirty = true
	}
	if c.m != nil {
		c.m.TicksTotal.Add(float64(st.Ticks))
		c.m.BookUpdates.Add(float64(st.Books))
		c.m.StaleEvents.Add(float64(st.Stale))
	}
}

func (c *Controller) applyTick(t model.Tick) bool {
	if !t.Valid() {
		if c.m != nil {
			c.m.DroppedTicks.Inc()
		}
		return false
	}
	c.appendRaw(t)
	c.agg.Tick(t.Time, t.Value)
	c.rangeDirty = true
	c.candlesDirty = true
	return true
}

// appendRaw keeps the raw tick buffer for timeframe replays. Trimming
// happens in chunks of a quarter of the limit so it stays amortised O(1);
// RawTicks never exposes more than MaxRawTicks.
func (c *Controller) appendRaw(t model.Tick) {
	c.raw = append(c.raw, t)
	limit := c.opts.MaxRawTicks
	if len(c.raw) >= limit+limit/4+1 {
		n := copy(c.raw, c.raw[len(c.raw)-limit:])
		c.raw = c.raw[:n]
	}
}

// RawTicks returns the newest MaxRawTicks raw ticks. The slice aliases the
// controller's buffer. Frame goroutine only.
func (c *Controller) RawTicks() []model.Tick {
	if over := len(c.raw) - c.opts.MaxRawTicks; over > 0 {
		return c.raw[over:]
	}
	return c.raw
}

// ChangeSymbol switches instrument. Every component is cleared before the
// history is replayed, so nothing from the previous symbol survives into
// the next frame. Frame goroutine only.
func (c *Controller) ChangeSymbol(symbol string, history []model.Tick) {
	prev := c.symbol
	c.symbol = symbol
	c.resetComponents()

	c.raw = c.raw[:0]
	for _, t := range history {
		if t.Valid() {
			c.appendRaw(t)
		}
	}
	c.agg.FromHistory(c.RawTicks())

	if c.m != nil {
		c.m.SymbolSwitches.Inc()
	}
	c.log.Info("symbol changed", "from", prev, "to", symbol,
		"history_ticks", len(history), "candles", c.agg.Len())
}

// ChangeTimeframe re-buckets the raw tick buffer at tf and resets the
// view. Frame goroutine only.
func (c *Controller) ChangeTimeframe(tf model.Timeframe) {
	prev := c.tf
	c.tf = tf
	c.resetComponents()
	c.agg.ChangeInterval(tf.Seconds(), c.RawTicks())

	if c.m != nil {
		c.m.TimeframeSwitches.Inc()
	}
	c.log.Info("timeframe changed", "from", prev.String(), "to", tf.String(), "candles", c.agg.Len())
}

func (c *Controller) resetComponents() {
	c.prices.Reset()
	c.view.Reset()
	c.agg.Reset()
	c.book.Reset()
	c.bidRows.Reset()
	c.askRows.Reset()
	c.bidScroll, c.askScroll = 0, 0
	c.dragging = false
	c.bidGeom, c.askGeom = bookview.Geometry{}, bookview.Geometry{}
	c.rangeDirty, c.candlesDirty, c.bookDirty = true, true, true
}

// Input handlers. Frame goroutine only; other goroutines go through Post.

// WheelPrice zooms the price axis; positive deltaY zooms out.
func (c *Controller) WheelPrice(deltaY, cursorY, heightPx float64) {
	ratio := 0.5
	if heightPx > 0 {
		ratio = cursorY / heightPx
	}
	c.prices.ApplyManualZoom(deltaY, ratio)
	c.candlesDirty = true
}

// DragPriceStart begins a drag on the price axis at y.
func (c *Controller) DragPriceStart(y float64) {
	c.dragging = true
	c.dragY = y
}

// DragPrice continues an axis drag; dragging down zooms out.
func (c *Controller) DragPrice(y, axisHeightPx float64) {
	if !c.dragging {
		return
	}
	delta := y - c.dragY
	c.dragY = y
	c.prices.ApplyManualDrag(delta, axisHeightPx)
	c.candlesDirty = true
}

// DragPriceEnd ends an axis drag.
func (c *Controller) DragPriceEnd() { c.dragging = false }

// PanCandles pans the chart by deltaPx; positive moves back in history.
func (c *Controller) PanCandles(deltaPx, widthPx float64) {
	if c.view.Pan(deltaPx, widthPx) {
		c.rangeDirty = true
	}
}

// ZoomCandles scales the number of visible candles.
func (c *Controller) ZoomCandles(factor float64) {
	c.view.Zoom(factor)
	c.rangeDirty = true
}

// ResetView returns to auto-range at the live edge.
func (c *Controller) ResetView() {
	c.prices.ResetZoom()
	c.view.ResetPan()
	c.rangeDirty = true
}

// ScrollBook sets the scroll offset of one side of the book.
func (c *Controller) ScrollBook(side model.Side, top float64) {
	if side == model.Ask {
		c.askScroll = top
	} else {
		c.bidScroll = top
	}
}

// Symbol returns the active symbol. Frame goroutine only.
func (c *Controller) Symbol() string { return c.symbol }

// Timeframe returns the active timeframe. Frame goroutine only.
func (c *Controller) Timeframe() model.Timeframe { return c.tf }

// Prices exposes the shared price state. Frame goroutine only.
func (c *Controller) Prices() *pricerange.State { return c.prices }

// Book exposes the order book store. Frame goroutine only.
func (c *Controller) Book() *orderbook.Store { return c.book }

// Viewport exposes the candle viewport. Frame goroutine only.
func (c *Controller) Viewport() *viewport.Viewport { return c.view }

// CandlesSnapshot returns the chart state published by the last frame.
// Safe for concurrent use; the result must not be modified.
func (c *Controller) CandlesSnapshot() *CandlesView { return c.candlesSnap.Load() }

// BookSnapshot returns the book state published by the last frame.
// Safe for concurrent use; the result must not be modified.
func (c *Controller) BookSnapshot() *BookView { return c.bookSnap.Load() }

func (c *Controller) tailCandles() []model.Candle {
	all := c.agg.View()
	if n := len(all) - c.opts.SnapshotCandles; n > 0 {
		all = all[n:]
	}
	out := make([]model.Candle, len(all))
	copy(out, all)
	return out
}

func (c *Controller) publish() {
	if c.candlesDirty {
		c.candlesSnap.Store(&CandlesView{
			Symbol:         c.symbol,
			Timeframe:      c.tf.String(),
			CandlesVisible: c.view.CandlesVisible(),
			BackOffset:     c.view.BackOffset(),
			Price:          c.prices.Snapshot(),
			Candles:        c.tailCandles(),
		})
		c.candlesDirty = false
	}
	if c.bookDirty {
		c.bookSnap.Store(&BookView{
			Symbol:      c.symbol,
			View:        c.book.Snapshot(c.opts.BookDepth),
			BidGeometry: c.bidGeom,
			AskGeometry: c.askGeom,
		})
		c.bookDirty = false
	}
}
