package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of a domain event.
//
// The set of kinds is closed. Consumers may switch over it exhaustively;
// adding a kind means revisiting every such switch.
type Kind string

const (
	KindListCreated Kind = "list:created"
	KindListUpdated Kind = "list:updated"
	KindListDeleted Kind = "list:deleted"

	KindTaskCreated Kind = "task:created"
	KindTaskUpdated Kind = "task:updated"
	KindTaskDeleted Kind = "task:deleted"

	KindBoardUpdated       Kind = "board:updated"
	KindBoardMemberAdded   Kind = "board:member-added"
	KindBoardMemberRemoved Kind = "board:member-removed"
)

// Valid reports whether k is one of the declared event kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindListCreated, KindListUpdated, KindListDeleted,
		KindTaskCreated, KindTaskUpdated, KindTaskDeleted,
		KindBoardUpdated, KindBoardMemberAdded, KindBoardMemberRemoved:
		return true
	}
	return false
}

// Event is a notification that a board's contents changed.
//
// BoardID routes the event to that board's room. Payload carries the
// mutated resource serialized exactly as the REST API returned it, so
// connected clients see the same representation either way.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Kind indicates which mutation produced the event
	Kind Kind `json:"kind"`

	// BoardID addresses the board whose room receives the event
	BoardID uuid.UUID `json:"board_id"`

	// Payload contains the mutated resource serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// EmittedAt is the timestamp when the event was created
	EmittedAt time.Time `json:"emitted_at"`
}

// New creates an Event of the given kind for the given board, serializing
// payload to JSON. It rejects kinds outside the declared set.
func New(kind Kind, boardID uuid.UUID, payload interface{}) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling %s payload: %w", kind, err)
	}

	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		BoardID:   boardID,
		Payload:   payloadBytes,
		EmittedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
