package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/store"
)

const testChannel = "taskhub:events"

func newBridgeRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// eventRecorder is a thread-safe deliver target.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *eventRecorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) contains(id uuid.UUID) bool {
	for _, event := range r.snapshot() {
		if event.ID == id {
			return true
		}
	}
	return false
}

func TestBridgeDeliversForeignEvents(t *testing.T) {
	t.Parallel()

	_, pubClient := newBridgeRedis(t)
	subClient := redis.NewClient(&redis.Options{Addr: pubClient.Options().Addr})
	t.Cleanup(func() { _ = subClient.Close() })

	publisher := NewBridge(pubClient, testChannel, discardLogger())
	consumer := NewBridge(subClient, testChannel, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &eventRecorder{}
	go consumer.Run(ctx, rec.record)

	event := mustEvent(t, events.KindTaskCreated, uuid.New(), map[string]string{"title": "sync me"})

	// The first publishes may race the consumer's subscription; keep
	// publishing until one lands.
	require.Eventually(t, func() bool {
		publisher.Publish(ctx, event)
		return rec.len() > 0
	}, 2*time.Second, 20*time.Millisecond)

	got := rec.snapshot()[0]
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Kind, got.Kind)
	assert.Equal(t, event.BoardID, got.BoardID)
	assert.JSONEq(t, `{"title":"sync me"}`, string(got.Payload))
}

func TestBridgeSkipsOwnPublications(t *testing.T) {
	t.Parallel()

	_, client := newBridgeRedis(t)
	rawClient := redis.NewClient(&redis.Options{Addr: client.Options().Addr})
	t.Cleanup(func() { _ = rawClient.Close() })

	bridge := NewBridge(client, testChannel, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &eventRecorder{}
	go bridge.Run(ctx, rec.record)

	publishEnvelope := func(origin string, event events.Event) {
		payload, err := json.Marshal(bridgeEnvelope{Origin: origin, Event: event})
		require.NoError(t, err)
		require.NoError(t, rawClient.Publish(ctx, testChannel, payload).Err())
	}

	warmup := mustEvent(t, events.KindBoardUpdated, uuid.New(), map[string]string{"title": "warmup"})
	require.Eventually(t, func() bool {
		publishEnvelope("some-other-instance", warmup)
		return rec.len() > 0
	}, 2*time.Second, 20*time.Millisecond)

	// Deliveries are ordered, so once the sentinel arrives the bridge has
	// already decided about the event carrying its own origin.
	own := mustEvent(t, events.KindTaskCreated, uuid.New(), map[string]string{"title": "mine"})
	sentinel := mustEvent(t, events.KindTaskDeleted, uuid.New(), map[string]string{"title": "sentinel"})
	publishEnvelope(bridge.instanceID, own)
	publishEnvelope("some-other-instance", sentinel)

	require.Eventually(t, func() bool { return rec.contains(sentinel.ID) },
		2*time.Second, 20*time.Millisecond)
	assert.False(t, rec.contains(own.ID), "bridge delivered its own publication")
}

func TestBridgePublishToleratesRedisOutage(t *testing.T) {
	t.Parallel()

	mr, client := newBridgeRedis(t)
	bridge := NewBridge(client, testChannel, discardLogger())
	mr.Close()

	// Publishing into a dead Redis must only log; emit paths never fail.
	bridge.Publish(context.Background(),
		mustEvent(t, events.KindTaskCreated, uuid.New(), map[string]string{"title": "lost"}))
}

// syncSink is a thread-safe Sink for cross-goroutine assertions.
type syncSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *syncSink) Push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return true
}

func (s *syncSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *syncSink) first() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[0]
}

func TestBridgeFansOutAcrossHubs(t *testing.T) {
	t.Parallel()

	_, clientA := newBridgeRedis(t)
	clientB := redis.NewClient(&redis.Options{Addr: clientA.Options().Addr})
	t.Cleanup(func() { _ = clientB.Close() })

	owner := uuid.New()
	boardID := uuid.New()

	membership := newFakeMembership()
	membership.set(boardID, store.BoardACL{OwnerID: owner})

	registryA := NewRegistry()
	hubA := NewHub(registryA, NewGate(membership, discardLogger()), &fakeTokens{}, discardLogger())
	hubA.AttachBridge(NewBridge(clientA, testChannel, discardLogger()))

	registryB := NewRegistry()
	hubB := NewHub(registryB, NewGate(membership, discardLogger()), &fakeTokens{}, discardLogger())
	hubB.AttachBridge(NewBridge(clientB, testChannel, discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hubB.Run(ctx)

	// A connection on instance B is subscribed to the board's room.
	sink := &syncSink{}
	require.NoError(t, registryB.Register("remote-conn", owner, sink))
	require.True(t, registryB.JoinRoom("remote-conn", RoomForBoard(boardID)))

	// Emitting on instance A must reach the subscriber on instance B.
	event := mustEvent(t, events.KindListCreated, boardID, map[string]string{"title": "shared"})
	require.Eventually(t, func() bool {
		hubA.Emit(ctx, event)
		return sink.count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	var frame serverMessage
	require.NoError(t, json.Unmarshal(sink.first(), &frame))
	assert.Equal(t, string(events.KindListCreated), frame.Event)
	assert.Equal(t, boardID.String(), frame.BoardID)
	assert.JSONEq(t, `{"title":"shared"}`, string(frame.Payload))
}
