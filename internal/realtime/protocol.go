package realtime

import "encoding/json"

// Client-initiated actions. Anything else in the action field earns an
// error frame and leaves the connection open.
const (
	actionJoin  = "join"
	actionLeave = "leave"
)

// Control events the hub emits alongside fanned-out domain events. They
// share the serverMessage shape so clients parse a single frame format.
const (
	eventJoined = "board:joined"
	eventLeft   = "board:left"
	eventError  = "error"
)

// clientMessage is an inbound frame: {"action":"join","board_id":"..."}.
type clientMessage struct {
	Action  string `json:"action"`
	BoardID string `json:"board_id"`
}

// serverMessage is every outbound frame. Domain events carry event,
// board_id and payload; control acks carry event and board_id; error
// frames carry event and message.
type serverMessage struct {
	Event   string          `json:"event"`
	BoardID string          `json:"board_id,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
