package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	apperrors "github.com/taskboardhq/taskboard-backend/internal/core/errors"
	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// RoomManager maps project IDs to the sessions subscribed to them.
// Rooms exist implicitly: one is created on first join and deleted when
// its last member leaves. Authorization is delegated to the data layer
// and re-checked on every join attempt, since project membership can
// change at any time.
//
// The access check runs before the room lock is taken; the lock only
// ever protects in-memory set mutation.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[int64]map[uuid.UUID]*Session
	access ports.ProjectAccessRepository
	logger *slog.Logger
}

// NewRoomManager creates a room manager backed by the given
// authorization repository.
func NewRoomManager(access ports.ProjectAccessRepository, logger *slog.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[int64]map[uuid.UUID]*Session),
		access: access,
		logger: logger.With("component", "room_manager"),
	}
}

// Join subscribes a session to a project's room. It fails with
// ErrProjectNotFound if the project does not exist, ErrForbidden if the
// user is neither owner nor member, and ErrSessionClosed if the session
// was destroyed while the access check was in flight. Joining an
// already-joined room is a no-op returning success with joined false.
// userJoined reports whether this is the user's first session in the
// room, so callers announce a user once rather than once per tab.
func (m *RoomManager) Join(ctx context.Context, s *Session, projectID int64) (joined, userJoined bool, err error) {
	exists, err := m.access.ProjectExists(ctx, projectID)
	if err != nil {
		return false, false, err
	}
	if !exists {
		return false, false, apperrors.ErrProjectNotFound
	}

	owner, err := m.access.IsProjectOwner(ctx, s.UserID, projectID)
	if err != nil {
		return false, false, err
	}
	if !owner {
		member, err := m.access.IsProjectMember(ctx, s.UserID, projectID)
		if err != nil {
			return false, false, err
		}
		if !member {
			return false, false, apperrors.ErrForbidden
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The access check above is a round-trip; the session may have been
	// torn down in the meantime. Disconnect closes the session before
	// sweeping rooms under this lock, so a closed check here guarantees
	// no membership entry ever references a destroyed session.
	if s.IsClosed() {
		return false, false, apperrors.ErrSessionClosed
	}

	room := m.rooms[projectID]
	if room == nil {
		room = make(map[uuid.UUID]*Session)
		m.rooms[projectID] = room
	}
	if _, already := room[s.ID]; already {
		return false, false, nil
	}

	userJoined = true
	for _, other := range room {
		if other.UserID == s.UserID {
			userJoined = false
			break
		}
	}

	room[s.ID] = s
	s.addRoom(projectID)

	m.logger.Debug("session joined room",
		"session_id", s.ID,
		"user_id", s.UserID,
		"project_id", projectID,
		"room_size", len(room),
	)
	return true, userJoined, nil
}

// Leave removes a session from a project's room. Leaving a room that
// was never joined is a no-op.
func (m *RoomManager) Leave(s *Session, projectID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(s, projectID)
}

// LeaveAll removes a session from every room it joined and returns the
// project IDs it was removed from. Called exactly once on disconnect.
// The room set is read under the room lock so a join that raced the
// disconnect is still swept.
func (m *RoomManager) LeaveAll(s *Session) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	joined := s.RoomIDs()
	left := make([]int64, 0, len(joined))
	for _, projectID := range joined {
		if m.removeLocked(s, projectID) {
			left = append(left, projectID)
		}
	}
	return left
}

// removeLocked drops the session from one room and collects the room if
// it became empty. Caller holds m.mu.
func (m *RoomManager) removeLocked(s *Session, projectID int64) bool {
	room, ok := m.rooms[projectID]
	if !ok {
		s.removeRoom(projectID)
		return false
	}
	if _, present := room[s.ID]; !present {
		s.removeRoom(projectID)
		return false
	}
	delete(room, s.ID)
	s.removeRoom(projectID)
	if len(room) == 0 {
		delete(m.rooms, projectID)
	}

	m.logger.Debug("session left room",
		"session_id", s.ID,
		"project_id", projectID,
	)
	return true
}

// MembersOf returns a snapshot of the sessions in a project's room.
// The snapshot is taken under the lock; iteration and delivery happen
// outside it.
func (m *RoomManager) MembersOf(projectID int64) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[projectID]
	if !ok {
		return nil
	}
	return lo.Values(room)
}

// OnlineUsersIn returns the distinct users with at least one session in
// the project's room.
func (m *RoomManager) OnlineUsersIn(projectID int64) []domain.OnlineUser {
	members := m.MembersOf(projectID)
	users := lo.UniqBy(
		lo.Map(members, func(s *Session, _ int) domain.OnlineUser {
			return domain.OnlineUser{UserID: s.UserID, DisplayName: s.DisplayName}
		}),
		func(u domain.OnlineUser) uuid.UUID { return u.UserID },
	)
	return users
}

// RoomCount returns the number of non-empty rooms.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// MemberCount returns the number of sessions in a project's room.
func (m *RoomManager) MemberCount(projectID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[projectID])
}
