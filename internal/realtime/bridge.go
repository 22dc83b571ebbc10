package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quayside/taskhub-api/internal/events"
)

// resubscribeDelay spaces out reconnection attempts after a lost
// subscription.
const resubscribeDelay = time.Second

// Bridge relays events between instances over a Redis pub/sub channel so
// connections held by other processes still see every update. Local
// fan-out never depends on it: publishing is best-effort and consumption
// re-subscribes until its context ends.
type Bridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *slog.Logger
}

// bridgeEnvelope wraps an event with its origin instance so publishers
// can skip their own messages when Redis echoes them back.
type bridgeEnvelope struct {
	Origin string       `json:"origin"`
	Event  events.Event `json:"event"`
}

// NewBridge creates a bridge publishing to and consuming from the given
// channel. Each bridge gets a unique instance ID for echo suppression.
func NewBridge(client *redis.Client, channel string, logger *slog.Logger) *Bridge {
	return &Bridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.New().String(),
		logger:     logger.With(slog.String("component", "event_bridge")),
	}
}

// Publish forwards an event to the other instances. Failures are logged
// and swallowed; the local fan-out has already happened and must not be
// rolled back or retried.
func (b *Bridge) Publish(ctx context.Context, event events.Event) {
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.instanceID, Event: event})
	if err != nil {
		b.logger.Error("failed to marshal bridge envelope",
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()))
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("failed to publish event to bridge",
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()))
	}
}

// Run consumes the bridge channel until ctx is canceled, passing every
// foreign event to deliver. A lost subscription is re-established after a
// short delay.
func (b *Bridge) Run(ctx context.Context, deliver func(events.Event)) {
	for {
		if err := b.consume(ctx, deliver); err != nil && ctx.Err() == nil {
			b.logger.Warn("bridge subscription lost, reconnecting",
				slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (b *Bridge) consume(ctx context.Context, deliver func(events.Event)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	// Receive blocks until the server confirms the subscription, so
	// events published after this point are guaranteed to arrive.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription channel closed")
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("dropping malformed bridge message", slog.String("error", err.Error()))
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			deliver(env.Event)
		}
	}
}
