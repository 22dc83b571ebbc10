package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects pushed frames for assertions.
type recordingSink struct {
	frames [][]byte
	full   bool
}

func (s *recordingSink) Push(frame []byte) bool {
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func TestRoomForBoard(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	assert.Equal(t, RoomID("board:"+boardID.String()), RoomForBoard(boardID))
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	identity := uuid.New()
	sink := &recordingSink{}

	require.NoError(t, r.Register("c1", identity, sink))
	assert.True(t, r.Registered("c1"))
	assert.Equal(t, 1, r.Len())

	got, ok := r.IdentityOf("c1")
	require.True(t, ok)
	assert.Equal(t, identity, got)

	// A second registration under the same ID must be refused.
	err := r.Register("c1", uuid.New(), &recordingSink{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	r.Unregister("c1")
	assert.False(t, r.Registered("c1"))
	assert.Equal(t, 0, r.Len())

	_, ok = r.IdentityOf("c1")
	assert.False(t, ok)

	// Unregistering again must be a no-op.
	r.Unregister("c1")
	assert.Equal(t, 0, r.Len())
}

func TestRegistryJoinAndLeave(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("c1", uuid.New(), &recordingSink{}))
	room := RoomForBoard(uuid.New())

	assert.True(t, r.JoinRoom("c1", room))
	assert.Equal(t, []ConnID{"c1"}, r.MembersOf(room))
	assert.Equal(t, []RoomID{room}, r.JoinedRooms("c1"))

	// Joining the same room again must not duplicate membership.
	assert.True(t, r.JoinRoom("c1", room))
	assert.Len(t, r.MembersOf(room), 1)

	r.LeaveRoom("c1", room)
	assert.Empty(t, r.MembersOf(room))
	assert.Empty(t, r.JoinedRooms("c1"))

	// Leaving a room the connection is not in must be a no-op.
	r.LeaveRoom("c1", room)
	assert.Empty(t, r.MembersOf(room))
}

func TestRegistryJoinUnknownConnection(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	room := RoomForBoard(uuid.New())

	// A join from a connection that already disconnected is discarded
	// rather than creating an orphaned room entry.
	assert.False(t, r.JoinRoom("ghost", room))
	assert.Empty(t, r.MembersOf(room))
}

func TestRegistryUnregisterPurgesRoomMemberships(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("c1", uuid.New(), &recordingSink{}))
	require.NoError(t, r.Register("c2", uuid.New(), &recordingSink{}))

	shared := RoomForBoard(uuid.New())
	private := RoomForBoard(uuid.New())
	require.True(t, r.JoinRoom("c1", shared))
	require.True(t, r.JoinRoom("c1", private))
	require.True(t, r.JoinRoom("c2", shared))

	r.Unregister("c1")

	// c1 must be gone from every room; c2's membership is untouched.
	assert.Equal(t, []ConnID{"c2"}, r.MembersOf(shared))
	assert.Empty(t, r.MembersOf(private))
	assert.Empty(t, r.JoinedRooms("c1"))
	assert.True(t, r.Registered("c2"))
}

func TestRegistrySinksFor(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s1 := &recordingSink{}
	s2 := &recordingSink{}
	require.NoError(t, r.Register("c1", uuid.New(), s1))
	require.NoError(t, r.Register("c2", uuid.New(), s2))

	room := RoomForBoard(uuid.New())
	require.True(t, r.JoinRoom("c1", room))
	require.True(t, r.JoinRoom("c2", room))

	sinks := r.SinksFor(room)
	assert.Len(t, sinks, 2)

	r.LeaveRoom("c2", room)
	sinks = r.SinksFor(room)
	require.Len(t, sinks, 1)

	sinks[0].Push([]byte("frame"))
	assert.Len(t, s1.frames, 1)
	assert.Empty(t, s2.frames)

	assert.Nil(t, r.SinksFor(RoomForBoard(uuid.New())))
}
