package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Publisher is the side of the channel that HTTP handlers and services see.
// Publish is fire-and-forget: it must never fail the originating request,
// so it returns nothing and implementations log their own errors.
type Publisher interface {
	Publish(ctx context.Context, event string, data any)
}

// RedisPublisher publishes event envelopes to a Redis pub/sub channel.
// Running the fan-out through Redis keeps the Hub decoupled from the
// request path and lets multiple server replicas share one event stream.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher targeting the given channel.
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Publish marshals the envelope and publishes it. Failures are logged and
// swallowed: a dropped event only means a viewer misses one update, and
// clients reconcile by re-fetching state.
func (p *RedisPublisher) Publish(ctx context.Context, event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		slog.Error("marshaling broadcast event",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("publishing broadcast event",
			slog.String("event", event),
			slog.Any("error", err),
		)
	}
}
