package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// PresenceRegistry tracks which sessions exist and which users are
// online. A user is online iff they have at least one registered
// session; the 0->1 and 1->0 transitions are computed under the
// registry lock so two near-simultaneous connects can never both
// observe an empty connection set.
type PresenceRegistry struct {
	mu sync.RWMutex

	// sessions maps connection IDs to their sessions.
	sessions map[uuid.UUID]*Session

	// byUser maps user IDs to that user's active sessions.
	byUser map[uuid.UUID]map[uuid.UUID]*Session

	logger *slog.Logger
}

// NewPresenceRegistry creates an empty presence registry.
func NewPresenceRegistry(logger *slog.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[uuid.UUID]*Session),
		byUser:   make(map[uuid.UUID]map[uuid.UUID]*Session),
		logger:   logger.With("component", "presence_registry"),
	}
}

// Register adds a session and reports whether the user transitioned
// from offline to online.
func (r *PresenceRegistry) Register(s *Session) (wentOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s

	userSessions := r.byUser[s.UserID]
	if userSessions == nil {
		userSessions = make(map[uuid.UUID]*Session)
		r.byUser[s.UserID] = userSessions
	}
	wentOnline = len(userSessions) == 0
	userSessions[s.ID] = s

	r.logger.Info("session registered",
		"session_id", s.ID,
		"user_id", s.UserID,
		"total_connections", len(userSessions),
	)
	return wentOnline
}

// Unregister removes a session and reports whether the user
// transitioned from online to offline. It is idempotent: removing an
// unknown session returns (nil, false), which is how duplicate
// disconnect signals are collapsed into exactly one cleanup.
func (r *PresenceRegistry) Unregister(sessionID uuid.UUID) (s *Session, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sessionID)

	if userSessions, ok := r.byUser[s.UserID]; ok {
		delete(userSessions, sessionID)
		if len(userSessions) == 0 {
			delete(r.byUser, s.UserID)
			wentOffline = true
		}
	}

	r.logger.Info("session unregistered",
		"session_id", s.ID,
		"user_id", s.UserID,
		"went_offline", wentOffline,
	)
	return s, wentOffline
}

// Get returns the session for a connection ID.
func (r *PresenceRegistry) Get(sessionID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// IsOnline reports whether the user has at least one active session.
func (r *PresenceRegistry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ActiveConnections returns the connection IDs of a user's sessions.
func (r *PresenceRegistry) ActiveConnections(userID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		ids = append(ids, id)
	}
	return ids
}

// SessionsOf returns a snapshot of a user's sessions.
func (r *PresenceRegistry) SessionsOf(userID uuid.UUID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byUser[userID]))
	for _, s := range r.byUser[userID] {
		sessions = append(sessions, s)
	}
	return sessions
}

// Touch updates the session's last-seen time for heartbeat tracking.
func (r *PresenceRegistry) Touch(sessionID uuid.UUID) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if ok {
		s.Touch()
	}
}

// ConnectionCount returns the total number of registered sessions.
func (r *PresenceRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineUserCount returns the number of distinct online users.
func (r *PresenceRegistry) OnlineUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Snapshot returns all registered sessions, used for shutdown.
func (r *PresenceRegistry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
