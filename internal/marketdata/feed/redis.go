package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// Redis channel prefixes. The symbol follows the prefix.
const (
	TickChannelPrefix = "pub:tick:"
	BookChannelPrefix = "pub:book:"
)

// TickChannel returns the Pub/Sub channel carrying ticks for symbol.
func TickChannel(symbol string) string { return TickChannelPrefix + symbol }

// BookChannel returns the Pub/Sub channel carrying book snapshots for symbol.
func BookChannel(symbol string) string { return BookChannelPrefix + symbol }

// RedisSource subscribes to the tick and book channels of every symbol and
// forwards decoded events.
type RedisSource struct {
	rdb *goredis.Client
	log *slog.Logger

	OnBadFrame func(err error)
}

// NewRedisSource creates a source on rdb.
func NewRedisSource(rdb *goredis.Client, logger *slog.Logger) *RedisSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSource{rdb: rdb, log: logger.With("component", "redis_feed")}
}

// Run pattern-subscribes to all tick and book channels and streams events
// into sink. Blocks until ctx is cancelled.
func (s *RedisSource) Run(ctx context.Context, sink Sink) error {
	pubsub := s.rdb.PSubscribe(ctx, TickChannelPrefix+"*", BookChannelPrefix+"*")
	defer pubsub.Close()

	// Receive waits for the subscription confirmation so connection errors
	// surface here instead of as a silently closed channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	s.log.Info("subscribed to feed channels")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis pubsub channel closed")
			}
			ev, err := DecodeChannel(msg.Channel, []byte(msg.Payload), time.Now())
			if err != nil {
				if !errors.Is(err, ErrUnknownMessage) && s.OnBadFrame != nil {
					s.OnBadFrame(err)
				}
				continue
			}
			sink(ev)
		}
	}
}

// DecodeChannel decodes a payload received on a feed channel. The channel
// name decides the message kind and supplies the symbol when the payload
// has none.
func DecodeChannel(channel string, payload []byte, received time.Time) (Event, error) {
	var symbol, typ string
	switch {
	case strings.HasPrefix(channel, TickChannelPrefix):
		symbol, typ = strings.TrimPrefix(channel, TickChannelPrefix), "tick"
	case strings.HasPrefix(channel, BookChannelPrefix):
		symbol, typ = strings.TrimPrefix(channel, BookChannelPrefix), "book"
	default:
		return Event{}, fmt.Errorf("%w: channel %s", ErrUnknownMessage, channel)
	}
	ev, err := decode(payload, symbol, typ, received)
	if err != nil {
		return Event{}, err
	}
	if ev.Kind.String() != typ {
		return Event{}, fmt.Errorf("%w: %s payload on %s", ErrUnknownMessage, ev.Kind, channel)
	}
	return ev, nil
}

// RedisPublisher publishes ticks and snapshots to the feed channels.
// Publishing goes through a Breaker so a dead Redis costs one failed call
// per cooldown instead of one per message.
type RedisPublisher struct {
	rdb     *goredis.Client
	breaker *Breaker
}

// NewRedisPublisher creates a publisher on rdb that opens after 5
// consecutive failures for 10s.
func NewRedisPublisher(rdb *goredis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, breaker: NewBreaker(5, 10*time.Second)}
}

// Breaker exposes the publisher's circuit breaker.
func (p *RedisPublisher) Breaker() *Breaker { return p.breaker }

// PublishTick publishes t on its symbol's tick channel.
func (p *RedisPublisher) PublishTick(ctx context.Context, t model.Tick) error {
	b, err := EncodeTick(t)
	if err != nil {
		return err
	}
	return p.publish(ctx, TickChannel(t.Symbol), b)
}

// PublishBook publishes b on its symbol's book channel.
func (p *RedisPublisher) PublishBook(ctx context.Context, b *model.BookSnapshot) error {
	raw, err := EncodeBook(b)
	if err != nil {
		return err
	}
	return p.publish(ctx, BookChannel(b.Symbol), raw)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, payload []byte) error {
	return p.breaker.Do(func() error {
		return p.rdb.Publish(ctx, channel, payload).Err()
	})
}
