package bookview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/orderbook"
	"github.com/Rick-more-Rick/donTrading-sub000/internal/render"
)

func newBook(t *testing.T) *orderbook.Store {
	t.Helper()
	s := orderbook.New(0.01, 100)
	s.Update(&model.BookSnapshot{
		Bids:    []model.BookEntry{{Price: 100, Size: 3}, {Price: 99.95, Size: 1}},
		Asks:    []model.BookEntry{{Price: 100.01, Size: 2}},
		BestBid: 100,
		BestAsk: 100.01,
	})
	return s
}

func TestRows_WindowAtTop(t *testing.T) {
	store := newBook(t)
	pool := &render.MemPool{}
	spacer := &render.MemSpacer{}
	r := NewRows(model.Bid, store, pool, spacer, 18)

	g := r.Render(0, 360)

	assert.Equal(t, 0, g.StartIdx)
	assert.Equal(t, 25, g.Count) // 20 rows + lookahead
	assert.Equal(t, 100, g.Total)
	assert.Equal(t, 0.0, g.PoolTopPx)
	assert.Equal(t, 3600.0, spacer.Height)

	rows := pool.VisibleRows()
	require.Len(t, rows, 25)
	assert.True(t, rows[0].Best)
	assert.Equal(t, 100.0, rows[0].Level.Price)
	assert.False(t, rows[1].Best)
	assert.True(t, rows[5].Level.Real)
	assert.Equal(t, 99.95, rows[5].Level.Price)
}

func TestRows_ScrollTriggersExtension(t *testing.T) {
	store := newBook(t)
	spacer := &render.MemSpacer{}
	r := NewRows(model.Bid, store, &render.MemPool{}, spacer, 18)
	r.Render(0, 360)

	g := r.Render(900, 360)

	assert.Equal(t, 48, g.StartIdx) // floor(900/18) - 2
	assert.Equal(t, 48*18.0, g.PoolTopPx)
	assert.Equal(t, 173, g.Total) // 48 + 25 + 2*EdgeBuffer
	assert.Equal(t, 173, store.Len(model.Bid))
	assert.Equal(t, 173, store.MaxLevelsSeen())
	assert.Equal(t, 273*18.0, spacer.Height)
	assert.Equal(t, 2, spacer.Updates)
}

func TestRows_NoExtensionAwayFromEdge(t *testing.T) {
	store := newBook(t)
	r := NewRows(model.Ask, store, &render.MemPool{}, &render.MemSpacer{}, 18)

	g := r.Render(0, 360)
	assert.Equal(t, 100, g.Total)
	assert.Zero(t, store.MaxLevelsSeen())
}

func TestRows_SpacerHysteresis(t *testing.T) {
	store := newBook(t)
	spacer := &render.MemSpacer{}
	r := NewRows(model.Bid, store, &render.MemPool{}, spacer, 18)

	r.Render(0, 360)
	r.Render(10, 360)
	assert.Equal(t, 1, spacer.Updates)

	// 200 rows * 0.05px is less than a row
	r.SetRowHeight(18.05)
	r.Render(0, 360)
	assert.Equal(t, 1, spacer.Updates)
	assert.Equal(t, 3600.0, spacer.Height)

	r.SetRowHeight(20)
	r.Render(0, 360)
	assert.Equal(t, 2, spacer.Updates)
	assert.Equal(t, 4000.0, spacer.Height)
}

func TestRows_PoolOnlyGrows(t *testing.T) {
	store := newBook(t)
	pool := &render.MemPool{}
	r := NewRows(model.Bid, store, pool, &render.MemSpacer{}, 18)

	r.Render(0, 360)
	require.Equal(t, 25, pool.Len())

	g := r.Render(0, 90)
	assert.Equal(t, 10, g.Count)
	assert.Equal(t, 25, pool.Len())
	assert.Len(t, pool.VisibleRows(), 10)

	r.Render(0, 360)
	assert.Equal(t, int64(25), pool.Allocated())
}

func TestRows_EmptySide(t *testing.T) {
	store := orderbook.New(0.01, 100)
	store.Update(&model.BookSnapshot{BestBid: 0, BestAsk: 100})
	pool := &render.MemPool{}
	r := NewRows(model.Bid, store, pool, &render.MemSpacer{}, 18)

	g := r.Render(0, 360)
	assert.Zero(t, g.Count)
	assert.Zero(t, g.Total)
	assert.Empty(t, pool.VisibleRows())
	assert.Zero(t, store.MaxLevelsSeen())
}

func TestRows_DeepScrollSurvivesSnapshot(t *testing.T) {
	store := newBook(t)
	spacer := &render.MemSpacer{}
	r := NewRows(model.Bid, store, &render.MemPool{}, spacer, 10)
	for top := 0.0; top <= 10000; top += 500 {
		r.Render(top, 400)
	}
	deep := store.Len(model.Bid)
	require.Greater(t, deep, 1000)
	height := spacer.Height

	store.Update(&model.BookSnapshot{BestBid: 100.5, BestAsk: 100.51})
	g := r.Render(10000, 400)

	assert.GreaterOrEqual(t, g.Total, deep)
	assert.GreaterOrEqual(t, spacer.Height, height)
}

func TestRows_SetZoomFactor(t *testing.T) {
	r := NewRows(model.Bid, orderbook.New(0.01, 10), &render.MemPool{}, &render.MemSpacer{}, 18)

	r.SetZoomFactor(2)
	assert.InDelta(t, 9, r.RowHeight(), 1e-9)
	r.SetZoomFactor(0.1)
	assert.InDelta(t, 90, r.RowHeight(), 1e-9)
	r.SetZoomFactor(100)
	assert.InDelta(t, 5.4, r.RowHeight(), 1e-9)
	r.SetZoomFactor(0)
	assert.InDelta(t, 18, r.RowHeight(), 1e-9)

	r.SetRowHeight(-3)
	assert.InDelta(t, 18, r.RowHeight(), 1e-9)
}

func TestRows_Reset(t *testing.T) {
	store := newBook(t)
	pool := &render.MemPool{}
	spacer := &render.MemSpacer{}
	r := NewRows(model.Bid, store, pool, spacer, 18)
	r.Render(0, 360)

	r.Reset()
	assert.Empty(t, pool.VisibleRows())
	assert.Equal(t, 25, pool.Len())

	r.Render(0, 360)
	assert.Equal(t, 2, spacer.Updates)
}
