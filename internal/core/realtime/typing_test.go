package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
)

// eventSink collects published events from timer callbacks.
type eventSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *eventSink) publish(event domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *eventSink) snapshot() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// waitForEvents polls until the sink holds n events or the timeout hits.
func (s *eventSink) waitForEvents(t *testing.T, n int) []domain.Event {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if events := s.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", n, len(s.snapshot()))
	return nil
}

func typingPayload(t *testing.T, event domain.Event) domain.TypingPayload {
	t.Helper()
	payload, ok := event.Payload.(domain.TypingPayload)
	require.True(t, ok, "expected a typing payload")
	return payload
}

func TestTypingCoordinator_StartAndAutoExpire(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(50*time.Millisecond, sink.publish, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	c.SetTyping(s, 1, 10, true)
	assert.Equal(t, 1, c.ActiveCount())

	events := sink.waitForEvents(t, 2)
	require.Len(t, events, 2)

	start := typingPayload(t, events[0])
	assert.True(t, start.IsTyping)
	assert.Equal(t, int64(10), start.TaskID)
	assert.Equal(t, s.UserID, start.UserID)

	stop := typingPayload(t, events[1])
	assert.False(t, stop.IsTyping)
	assert.Equal(t, s.UserID, stop.UserID)

	// The stop carries the typist's connection so self-exclusion holds.
	assert.Equal(t, s.ID, events[1].Originator)
	assert.Equal(t, 0, c.ActiveCount())
}

func TestTypingCoordinator_RapidSignalsCoalesce(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(50*time.Millisecond, sink.publish, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	// Five keystrokes in quick succession.
	for i := 0; i < 5; i++ {
		c.SetTyping(s, 1, 10, true)
		time.Sleep(5 * time.Millisecond)
	}

	events := sink.waitForEvents(t, 2)
	// Exactly one start and, after the window expires, one stop.
	require.Len(t, events, 2)
	assert.True(t, typingPayload(t, events[0]).IsTyping)
	assert.False(t, typingPayload(t, events[1]).IsTyping)
}

func TestTypingCoordinator_ExplicitStop(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(time.Minute, sink.publish, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	c.SetTyping(s, 1, 10, true)
	c.SetTyping(s, 1, 10, false)

	events := sink.snapshot()
	require.Len(t, events, 2)
	assert.True(t, typingPayload(t, events[0]).IsTyping)
	assert.False(t, typingPayload(t, events[1]).IsTyping)
	assert.Equal(t, 0, c.ActiveCount())

	// A stop with no active indicator publishes nothing.
	c.SetTyping(s, 1, 10, false)
	assert.Len(t, sink.snapshot(), 2)
}

func TestTypingCoordinator_IndependentPerTask(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(time.Minute, sink.publish, testLogger())
	alice := NewSession(uuid.New(), "Alice", 8)
	bob := NewSession(uuid.New(), "Bob", 8)

	c.SetTyping(alice, 1, 10, true)
	c.SetTyping(alice, 1, 11, true)
	c.SetTyping(bob, 1, 10, true)
	assert.Equal(t, 3, c.ActiveCount())

	// Stopping one indicator leaves the others armed.
	c.SetTyping(alice, 1, 10, false)
	assert.Equal(t, 2, c.ActiveCount())
}

func TestTypingCoordinator_ClearUser(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(time.Minute, sink.publish, testLogger())
	alice := NewSession(uuid.New(), "Alice", 8)
	bob := NewSession(uuid.New(), "Bob", 8)

	c.SetTyping(alice, 1, 10, true)
	c.SetTyping(alice, 2, 20, true)
	c.SetTyping(bob, 1, 10, true)

	c.ClearUser(alice.UserID)

	// Two stops went out for Alice; Bob's indicator is untouched.
	assert.Equal(t, 1, c.ActiveCount())

	var stops int
	for _, event := range sink.snapshot() {
		if payload := typingPayload(t, event); !payload.IsTyping {
			assert.Equal(t, alice.UserID, payload.UserID)
			stops++
		}
	}
	assert.Equal(t, 2, stops)
}

func TestTypingCoordinator_ShutdownSilencesTimers(t *testing.T) {
	sink := &eventSink{}
	c := NewTypingCoordinator(30*time.Millisecond, sink.publish, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	c.SetTyping(s, 1, 10, true)
	c.Shutdown()

	time.Sleep(60 * time.Millisecond)

	// Only the start was published; shutdown suppressed the stop.
	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.True(t, typingPayload(t, events[0]).IsTyping)

	// Signals after shutdown are dropped.
	c.SetTyping(s, 1, 10, true)
	assert.Len(t, sink.snapshot(), 1)
	assert.Equal(t, 0, c.ActiveCount())
}
