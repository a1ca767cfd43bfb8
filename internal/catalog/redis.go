package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Invalidator is implemented by *Catalog.
type Invalidator interface {
	Invalidate()
}

// RedisNotifier broadcasts catalog invalidations over a Redis pub/sub channel so
// every process sharing the database drops its cache after a write.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

type invalidationMessage struct {
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

func NewRedisNotifier(rdb *goredis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "curriculum.catalog"
	}
	return &RedisNotifier{rdb: rdb, channel: channel, origin: uuid.NewString(), logger: logger}
}

// Publish announces that the catalog changed.
func (n *RedisNotifier) Publish(ctx context.Context) error {
	raw, err := json.Marshal(invalidationMessage{Origin: n.origin, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

// Listen subscribes to the channel and invalidates target on every message sent by
// another process. It returns once the subscription is live; the forwarding
// goroutine stops when ctx is cancelled.
func (n *RedisNotifier) Listen(ctx context.Context, target Invalidator) error {
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	n.logger.Info("catalog.listen.started", "channel", n.channel)

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg invalidationMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					n.logger.Warn("catalog.listen.bad_payload", "error", err)
					continue
				}
				if msg.Origin == n.origin {
					continue
				}
				target.Invalidate()
			}
		}
	}()
	return nil
}
