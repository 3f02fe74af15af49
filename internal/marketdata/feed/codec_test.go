package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

var recv = time.Unix(1718000000, 0)

func TestDecode_Tick(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"tick","symbol":"AAPL","time":1718000001,"value":191.25}`), "", recv)
	require.NoError(t, err)
	assert.Equal(t, KindTick, ev.Kind)
	assert.Equal(t, "AAPL", ev.Symbol)
	assert.Equal(t, model.Tick{Symbol: "AAPL", Time: 1718000001, Value: 191.25}, ev.Tick)
	assert.Equal(t, recv, ev.Received)
	assert.Nil(t, ev.Book)
}

func TestDecode_BareTickUsesDefaultSymbol(t *testing.T) {
	ev, err := Decode([]byte(`{"time":60,"value":10.5}`), "MSFT", recv)
	require.NoError(t, err)
	assert.Equal(t, KindTick, ev.Kind)
	assert.Equal(t, "MSFT", ev.Symbol)
	assert.Equal(t, "MSFT", ev.Tick.Symbol)
}

func TestDecode_Book(t *testing.T) {
	raw := `{"type":"book","symbol":"AAPL",
		"bids":[{"price":100,"size":2},{"price":99.99,"size":1}],
		"asks":[{"price":100.01,"size":3}],
		"best_bid":100,"best_ask":100.01,"spread":0.01,"mid_price":100.005}`
	ev, err := Decode([]byte(raw), "", recv)
	require.NoError(t, err)
	require.Equal(t, KindBook, ev.Kind)
	require.NotNil(t, ev.Book)
	assert.Equal(t, "AAPL", ev.Book.Symbol)
	assert.Len(t, ev.Book.Bids, 2)
	assert.Equal(t, model.BookEntry{Price: 100.01, Size: 3}, ev.Book.Asks[0])
	assert.Equal(t, 100.005, ev.Book.MidPrice)
}

func TestDecode_BareBookInferred(t *testing.T) {
	ev, err := Decode([]byte(`{"bids":[],"asks":[],"best_bid":0,"best_ask":5}`), "X", recv)
	require.NoError(t, err)
	assert.Equal(t, KindBook, ev.Kind)
	assert.Equal(t, "X", ev.Book.Symbol)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"unknown type", `{"type":"trade","price":1}`, ErrUnknownMessage},
		{"empty object", `{}`, ErrUnknownMessage},
		{"zero price", `{"type":"tick","time":1,"value":0}`, ErrInvalidTick},
		{"negative price", `{"time":1,"value":-3}`, ErrInvalidTick},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw), "", recv)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := Decode([]byte(`{"type":`), "", recv)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownMessage))
}

func TestEncode_DecodesBack(t *testing.T) {
	raw, err := EncodeTick(model.Tick{Symbol: "AAPL", Time: 120, Value: 5.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tick","symbol":"AAPL","time":120,"value":5.5}`, string(raw))

	book := &model.BookSnapshot{Symbol: "AAPL", BestBid: 1, BestAsk: 2}
	raw, err = EncodeBook(book)
	require.NoError(t, err)
	ev, err := Decode(raw, "", recv)
	require.NoError(t, err)
	assert.Equal(t, book, ev.Book)
}

func TestDecodeChannel(t *testing.T) {
	ev, err := DecodeChannel(TickChannel("TSLA"), []byte(`{"time":1,"value":2}`), recv)
	require.NoError(t, err)
	assert.Equal(t, KindTick, ev.Kind)
	assert.Equal(t, "TSLA", ev.Symbol)

	// an empty snapshot still decodes as a book on the book channel
	ev, err = DecodeChannel(BookChannel("TSLA"), []byte(`{}`), recv)
	require.NoError(t, err)
	assert.Equal(t, KindBook, ev.Kind)
	assert.Equal(t, "TSLA", ev.Book.Symbol)

	_, err = DecodeChannel(BookChannel("TSLA"), []byte(`{"type":"tick","time":1,"value":2}`), recv)
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeChannel("pub:ind:TSLA", []byte(`{}`), recv)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestChanSink_DropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	var dropped int
	sink := ChanSink(ch, func(Event) { dropped++ })

	sink(TickEvent(model.Tick{Value: 1}, recv))
	sink(TickEvent(model.Tick{Value: 2}, recv))

	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1.0, (<-ch).Tick.Value)
}

func TestBlockingSink_WaitsForRoom(t *testing.T) {
	ch := make(chan Event, 1)
	sink := BlockingSink(context.Background(), ch)
	sink(TickEvent(model.Tick{Value: 1}, recv))

	sent := make(chan struct{})
	go func() {
		sink(TickEvent(model.Tick{Value: 2}, recv))
		close(sent)
	}()
	select {
	case <-sent:
		t.Fatal("sink returned while the channel was full")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 1.0, (<-ch).Tick.Value)
	<-sent
	assert.Equal(t, 2.0, (<-ch).Tick.Value)
}

func TestBlockingSink_ReturnsOnCancel(t *testing.T) {
	ch := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	BlockingSink(ctx, ch)(TickEvent(model.Tick{Value: 1}, recv))
	assert.Len(t, ch, 0)
}
