package mocks

import (
	"context"
	"sync"

	"github.com/quayside/taskhub-api/internal/events"
)

// MockBroadcaster implements events.Broadcaster for testing
type MockBroadcaster struct {
	// EmitFn allows test cases to mock the Emit behavior
	EmitFn func(ctx context.Context, event events.Event)

	mu      sync.Mutex
	emitted []events.Event
}

// Emit implements the events.Broadcaster interface. The default
// implementation records the event for later inspection.
func (m *MockBroadcaster) Emit(ctx context.Context, event events.Event) {
	if m.EmitFn != nil {
		m.EmitFn(ctx, event)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, event)
}

// Events returns a snapshot of every event recorded by the default Emit.
func (m *MockBroadcaster) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Event, len(m.emitted))
	copy(out, m.emitted)
	return out
}

// Kinds returns the kinds of the recorded events in emit order.
func (m *MockBroadcaster) Kinds() []events.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]events.Kind, 0, len(m.emitted))
	for _, event := range m.emitted {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

// Ensure MockBroadcaster implements the Broadcaster interface.
var _ events.Broadcaster = (*MockBroadcaster)(nil)
