package events

import (
	"context"
	"log/slog"
)

// Broadcaster delivers domain events to the live connections joined to the
// event's board room.
//
// Emit is fire-and-forget. Implementations log delivery problems but never
// return them; a mutation that committed must not be failed by fan-out.
type Broadcaster interface {
	// Emit delivers the given event to every connection currently joined
	// to the event's board room. Connections that join later receive
	// nothing; there is no backlog.
	Emit(ctx context.Context, event Event)
}

// NoopBroadcaster discards every event.
//
// It stands in wherever a real dispatcher is not wired (tests, one-shot
// tools), keeping call sites free of nil checks.
type NoopBroadcaster struct {
	logger *slog.Logger
}

// NewNoopBroadcaster creates a NoopBroadcaster that records discarded
// events at debug level.
func NewNoopBroadcaster(logger *slog.Logger) *NoopBroadcaster {
	return &NoopBroadcaster{
		logger: logger.With(slog.String("component", "noop_broadcaster")),
	}
}

// Emit discards the event.
func (b *NoopBroadcaster) Emit(_ context.Context, event Event) {
	b.logger.Debug("discarding event",
		slog.String("event_id", event.ID.String()),
		slog.String("kind", string(event.Kind)),
		slog.String("board_id", event.BoardID.String()))
}

// Ensure NoopBroadcaster implements the Broadcaster interface.
var _ Broadcaster = (*NoopBroadcaster)(nil)
