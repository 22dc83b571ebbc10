package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/redact"
)

// emitEvent constructs a domain event and hands it to the broadcaster.
// Fan-out must never fail a mutation that already committed, so problems
// are logged and swallowed here.
func emitEvent(
	ctx context.Context,
	broadcaster events.Broadcaster,
	log *slog.Logger,
	kind events.Kind,
	boardID uuid.UUID,
	payload interface{},
) {
	event, err := events.New(kind, boardID, payload)
	if err != nil {
		log.Warn("dropping undeliverable event",
			slog.String("kind", string(kind)),
			slog.String("board_id", boardID.String()),
			slog.String("error", redact.Error(err)))
		return
	}
	broadcaster.Emit(ctx, event)
}
