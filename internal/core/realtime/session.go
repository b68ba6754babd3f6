package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
)

// Session is one authenticated live connection. It owns the bounded
// outbound queue the transport drains; the room manager references
// sessions but never owns them. A session is created on successful
// authentication and destroyed exactly once on disconnect.
type Session struct {
	// ID uniquely identifies this physical connection.
	ID uuid.UUID

	// UserID is the authenticated identity behind the connection.
	UserID uuid.UUID

	// DisplayName is carried in presence and typing payloads.
	DisplayName string

	// send is the bounded outbound queue. Enqueue is always
	// non-blocking; a full queue is a delivery failure.
	send chan domain.Event

	// mu protects rooms, lastSeen and the closed flag.
	mu       sync.RWMutex
	rooms    map[int64]struct{}
	lastSeen time.Time
	closed   bool

	closeOnce sync.Once
}

// NewSession creates a session with a bounded send queue of the given size.
func NewSession(userID uuid.UUID, displayName string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Session{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: displayName,
		send:        make(chan domain.Event, queueSize),
		rooms:       make(map[int64]struct{}),
		lastSeen:    time.Now(),
	}
}

// Events returns the outbound queue for the transport's write loop.
// The channel is closed when the session is destroyed.
func (s *Session) Events() <-chan domain.Event {
	return s.send
}

// TrySend enqueues an event without blocking. It returns false if the
// queue is full or the session is already closed; the caller treats
// that as a delivery failure for this connection only.
func (s *Session) TrySend(event domain.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}

// Close closes the send queue exactly once. Safe to call concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()
	})
}

// IsClosed reports whether the session has been destroyed. The room
// manager checks this under its own lock before inserting, so a
// membership entry can never outlive its session.
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Touch records client activity for liveness tracking.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded client activity.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// addRoom records the joined room on the session side. Callers hold the
// room manager's lock, which makes the two membership records move
// together.
func (s *Session) addRoom(projectID int64) {
	s.mu.Lock()
	s.rooms[projectID] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeRoom(projectID int64) {
	s.mu.Lock()
	delete(s.rooms, projectID)
	s.mu.Unlock()
}

// InRoom reports whether this connection has joined the project's room.
func (s *Session) InRoom(projectID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[projectID]
	return ok
}

// RoomIDs returns a copy of the joined room IDs.
func (s *Session) RoomIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Keys(s.rooms)
}
