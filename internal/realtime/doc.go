// Package realtime implements the live update path: WebSocket connection
// handling, room membership tracking, join authorization, and event fan-out
// to subscribed connections.
//
// The package is organized around four pieces:
//
//   - Registry tracks which connections exist and which rooms each one has
//     joined, keeping both directions of the relation consistent.
//   - Gate authorizes join requests against current board membership. It
//     consults the store on every request and never caches a decision.
//   - Hub owns the WebSocket lifecycle and implements events.Broadcaster,
//     fanning each event out to the connections joined to its board's room.
//   - Bridge optionally relays events between instances over Redis pub/sub
//     so fan-out works when connections are spread across processes.
//
// Rooms are derived from board IDs and exist only while at least one
// connection has joined them; there is no standalone room state to manage.
package realtime
