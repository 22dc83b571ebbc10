package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ConnID uniquely identifies a live connection for the registry's lifetime.
// IDs are opaque; the hub assigns a fresh one per accepted connection.
type ConnID string

// RoomID names a fan-out room. Every board maps to exactly one room and
// RoomForBoard is the only way to construct one.
type RoomID string

const roomPrefix = "board:"

// RoomForBoard returns the room that carries the given board's events.
func RoomForBoard(boardID uuid.UUID) RoomID {
	return RoomID(roomPrefix + boardID.String())
}

// ErrAlreadyRegistered is returned by Register when the connection ID is
// already in use. Callers must treat it as fatal for the new connection.
var ErrAlreadyRegistered = errors.New("connection already registered")

// Sink receives the frames fanned out to a connection. Push must not
// block: an implementation that cannot accept a frame immediately returns
// false and the frame is dropped for that connection only.
type Sink interface {
	Push(frame []byte) bool
}

// connState is everything the registry tracks per connection.
type connState struct {
	identity uuid.UUID
	sink     Sink
	rooms    map[RoomID]struct{}
}

// Registry tracks live connections, the authenticated identity behind each
// one, and the rooms each has joined. The room relation is stored in both
// directions so fan-out (room to connections) and disconnect cleanup
// (connection to rooms) are each a couple of map operations. Every mutation
// takes the write lock and updates both maps together, so they never
// disagree and a removed connection can never linger inside a room.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*connState
	rooms map[RoomID]map[ConnID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*connState),
		rooms: make(map[RoomID]map[ConnID]struct{}),
	}
}

// Register adds a connection with its authenticated identity and delivery
// sink. The connection starts with no room subscriptions. Returns
// ErrAlreadyRegistered if the ID is already in use.
func (r *Registry) Register(id ConnID, identity uuid.UUID, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; exists {
		return ErrAlreadyRegistered
	}
	r.conns[id] = &connState{
		identity: identity,
		sink:     sink,
		rooms:    make(map[RoomID]struct{}),
	}
	return nil
}

// Unregister removes a connection and purges it from every room it joined,
// deleting rooms that become empty. Unregistering an unknown connection is
// a no-op, so disconnect paths may call it more than once.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.conns[id]
	if !exists {
		return
	}
	for room := range state.rooms {
		r.removeFromRoom(id, room)
	}
	delete(r.conns, id)
}

// JoinRoom subscribes a connection to a room. Joining a room the
// connection is already in is a no-op. It reports false when the
// connection is not registered, which happens when the connection dropped
// while its join was still being authorized; callers discard the join.
func (r *Registry) JoinRoom(id ConnID, room RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.conns[id]
	if !exists {
		return false
	}
	state.rooms[room] = struct{}{}

	members, exists := r.rooms[room]
	if !exists {
		members = make(map[ConnID]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	return true
}

// LeaveRoom removes a connection from a room. Leaving a room the
// connection never joined is a no-op.
func (r *Registry) LeaveRoom(id ConnID, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.conns[id]
	if !exists {
		return
	}
	delete(state.rooms, room)
	r.removeFromRoom(id, room)
}

// removeFromRoom deletes the membership edge and drops the room entirely
// once its last member leaves. Callers must hold the write lock.
func (r *Registry) removeFromRoom(id ConnID, room RoomID) {
	members, exists := r.rooms[room]
	if !exists {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// SinksFor returns a snapshot of the sinks subscribed to a room. The slice
// is safe to iterate without holding any lock; a connection that drops
// after the snapshot simply rejects the push.
func (r *Registry) SinksFor(room RoomID) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[room]
	if !exists {
		return nil
	}
	sinks := make([]Sink, 0, len(members))
	for id := range members {
		if state, ok := r.conns[id]; ok {
			sinks = append(sinks, state.sink)
		}
	}
	return sinks
}

// MembersOf returns a snapshot of the connection IDs subscribed to a room.
func (r *Registry) MembersOf(room RoomID) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[room]
	if !exists {
		return nil
	}
	ids := make([]ConnID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// JoinedRooms returns a snapshot of the rooms a connection has joined.
func (r *Registry) JoinedRooms(id ConnID) []RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.conns[id]
	if !exists {
		return nil
	}
	rooms := make([]RoomID, 0, len(state.rooms))
	for room := range state.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// IdentityOf returns the authenticated identity bound to a connection.
func (r *Registry) IdentityOf(id ConnID) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.conns[id]
	if !exists {
		return uuid.Nil, false
	}
	return state.identity, true
}

// Registered reports whether a connection is currently registered.
func (r *Registry) Registered(id ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.conns[id]
	return exists
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
