// Package realtime bridges service-layer events to connected WebSocket
// clients. With Redis configured, events travel through a pub/sub channel so
// every server instance delivers to its own connections; without Redis the
// bridge short-circuits straight into the local hub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Sink is the local delivery target, implemented by the WS hub.
type Sink interface {
	BroadcastListingUpdate(summary domain.ListingSummary)
	SendNotification(n *domain.Notification)
}

// Event is the wire envelope carried on the Redis channel.
type Event struct {
	Kind         string                 `json:"kind"` // "listing_update" | "notification"
	Listing      *domain.ListingSummary `json:"listing,omitempty"`
	Notification *domain.Notification   `json:"notification,omitempty"`
}

const (
	eventListingUpdate = "listing_update"
	eventNotification  = "notification"

	publishTimeout = 5 * time.Second
)

// Bridge implements the service layer's EventPublisher. Safe for concurrent
// use.
type Bridge struct {
	rdb     *redis.Client // nil = local-only mode
	channel string
	sink    Sink
	logger  *slog.Logger
}

// NewBridge builds a bridge from the Redis configuration. An empty Addr
// yields a local-only bridge; otherwise the connection is verified with a
// ping before use.
func NewBridge(ctx context.Context, cfg config.RedisConfig, sink Sink, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{channel: cfg.Channel, sink: sink, logger: logger}
	if cfg.Addr == "" {
		logger.Info("realtime: redis disabled, using local delivery")
		return b, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("realtime.NewBridge: ping: %w", err)
	}
	b.rdb = rdb
	logger.Info("realtime: redis connected", "addr", cfg.Addr, "channel", cfg.Channel)
	return b, nil
}

// PublishListingUpdate fans a listing state change out to all instances.
func (b *Bridge) PublishListingUpdate(summary domain.ListingSummary) {
	b.publish(Event{Kind: eventListingUpdate, Listing: &summary})
}

// PublishNotification fans a user notification out to all instances.
func (b *Bridge) PublishNotification(n *domain.Notification) {
	b.publish(Event{Kind: eventNotification, Notification: n})
}

func (b *Bridge) publish(ev Event) {
	if b.rdb == nil {
		b.deliver(ev)
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("realtime: marshal failed", "kind", ev.Kind, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("realtime: publish failed", "kind", ev.Kind, "error", err)
		// Fall back to local delivery so this instance's clients still see it.
		b.deliver(ev)
	}
}

// deliver hands an event to the local sink.
func (b *Bridge) deliver(ev Event) {
	switch ev.Kind {
	case eventListingUpdate:
		if ev.Listing != nil {
			b.sink.BroadcastListingUpdate(*ev.Listing)
		}
	case eventNotification:
		if ev.Notification != nil {
			b.sink.SendNotification(ev.Notification)
		}
	default:
		b.logger.Warn("realtime: unknown event kind", "kind", ev.Kind)
	}
}

// Run subscribes to the Redis channel and feeds received events into the
// local sink until ctx is cancelled. No-op in local-only mode. Call it once
// as a goroutine.
func (b *Bridge) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Error("realtime: bad payload", "error", err)
				continue
			}
			b.deliver(ev)
		}
	}
}

// Close releases the Redis connection.
func (b *Bridge) Close() error {
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
