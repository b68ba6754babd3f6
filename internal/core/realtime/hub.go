package realtime

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	apperrors "github.com/taskboardhq/taskboard-backend/internal/core/errors"
	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	// SendQueueSize bounds each session's outbound queue.
	SendQueueSize int

	// TypingDebounce is the typing indicator auto-clear window.
	TypingDebounce time.Duration
}

// Hub is the realtime collaboration engine: it owns the presence
// registry, the room manager, the broadcaster and the typing
// coordinator, and exposes the connection lifecycle, the client message
// operations and the mutation-layer notify surface. It is explicitly
// constructed and injected, never ambient state.
type Hub struct {
	presence  *PresenceRegistry
	rooms     *RoomManager
	broadcast *Broadcaster
	typing    *TypingCoordinator

	queueSize int
	closed    atomic.Bool
	logger    *slog.Logger
}

// Ensure Hub implements the notifier and status ports.
var (
	_ ports.RealtimeNotifier = (*Hub)(nil)
	_ ports.RealtimeStatus   = (*Hub)(nil)
)

// NewHub assembles the engine over the given authorization repository.
func NewHub(access ports.ProjectAccessRepository, logger *slog.Logger, opts Options) *Hub {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 256
	}

	h := &Hub{
		presence:  NewPresenceRegistry(logger),
		rooms:     NewRoomManager(access, logger),
		queueSize: opts.SendQueueSize,
		logger:    logger.With("component", "hub"),
	}
	h.broadcast = NewBroadcaster(h.rooms, logger)
	h.broadcast.SetEvictFunc(func(s *Session) {
		h.Disconnect(s.ID)
	})
	h.typing = NewTypingCoordinator(opts.TypingDebounce, h.broadcast.Publish, logger)
	return h
}

// --- Connection lifecycle ---

// Connect creates and registers a session for an authenticated user.
// The caller (the transport) starts draining Session.Events afterwards.
func (h *Hub) Connect(userID uuid.UUID, displayName string) (*Session, error) {
	if h.closed.Load() {
		return nil, apperrors.ErrHubClosed
	}

	s := NewSession(userID, displayName, h.queueSize)
	h.presence.Register(s)

	h.logger.Info("connection established",
		"session_id", s.ID,
		"user_id", userID,
	)
	return s, nil
}

// Disconnect tears a session down: it is removed from the presence
// registry and every room, presence announcements go out if the user
// went offline, and the send queue is closed. Idempotent; concurrent
// duplicate disconnects collapse into one cleanup.
func (h *Hub) Disconnect(sessionID uuid.UUID) {
	s, wentOffline := h.presence.Unregister(sessionID)
	if s == nil {
		return
	}

	// Close before sweeping rooms: a join racing this disconnect either
	// lands before the sweep and is removed by it, or observes the
	// closed session and is refused.
	s.Close()
	left := h.rooms.LeaveAll(s)

	if wentOffline {
		h.typing.ClearUser(s.UserID)
		for _, projectID := range left {
			h.broadcast.Publish(domain.NewUserDisconnectedEvent(projectID, s.UserID, s.DisplayName))
		}
	}

	h.logger.Info("connection closed",
		"session_id", s.ID,
		"user_id", s.UserID,
		"rooms_left", len(left),
		"went_offline", wentOffline,
	)
}

// --- Client operations (one per inbound message type) ---

// JoinProject subscribes the session to a project room after
// re-checking authorization, then announces the user to the room and
// sends the joiner the current online roster. A redundant join is a
// silent no-op, and a user's additional connections do not re-announce
// an already-present user.
func (h *Hub) JoinProject(ctx context.Context, s *Session, projectID int64) error {
	joined, userJoined, err := h.rooms.Join(ctx, s, projectID)
	if err != nil {
		return err
	}
	if !joined {
		return nil
	}

	if userJoined {
		h.broadcast.Publish(domain.NewUserConnectedEvent(projectID, s.UserID, s.DisplayName, s.ID))
	}
	h.broadcast.SendToSession(s, domain.NewOnlineUsersEvent(projectID, h.rooms.OnlineUsersIn(projectID)))
	return nil
}

// LeaveProject unsubscribes the session from a project room. No-op if
// the room was never joined.
func (h *Hub) LeaveProject(s *Session, projectID int64) {
	h.rooms.Leave(s, projectID)
}

// Typing processes a typing signal. The session must have joined the
// project's room; signals for unjoined rooms are dropped.
func (h *Hub) Typing(s *Session, projectID, taskID int64, isTyping bool) error {
	if !s.InRoom(projectID) {
		return apperrors.ErrRoomNotJoined
	}
	h.typing.SetTyping(s, projectID, taskID, isTyping)
	return nil
}

// Heartbeat records client liveness.
func (h *Hub) Heartbeat(s *Session) {
	h.presence.Touch(s.ID)
}

// OnlineUsers sends the requesting session the distinct online users in
// a project room it has joined.
func (h *Hub) OnlineUsers(s *Session, projectID int64) error {
	if !s.InRoom(projectID) {
		return apperrors.ErrRoomNotJoined
	}
	h.broadcast.SendToSession(s, domain.NewOnlineUsersEvent(projectID, h.rooms.OnlineUsersIn(projectID)))
	return nil
}

// SendError delivers an error frame to a single connection without
// closing it. Used for denied joins and malformed requests.
func (h *Hub) SendError(s *Session, err error) {
	h.broadcast.SendToSession(s, domain.NewErrorEvent(apperrors.CodeFor(err), err.Error()))
}

// --- Mutation-layer notifications (ports.RealtimeNotifier) ---

func (h *Hub) NotifyTaskCreated(task *domain.Task, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewTaskCreatedEvent(task, origin))
}

func (h *Hub) NotifyTaskUpdated(task *domain.Task, changes []string, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewTaskUpdatedEvent(task, changes, origin))
}

func (h *Hub) NotifyTaskDeleted(projectID, taskID int64, title string, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewTaskDeletedEvent(projectID, taskID, title, origin))
}

func (h *Hub) NotifyStatusChanged(projectID, taskID int64, oldStatus, newStatus domain.TaskStatus, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewStatusChangedEvent(projectID, taskID, oldStatus, newStatus, origin))
}

func (h *Hub) NotifyCommentAdded(comment *domain.Comment, projectID int64, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewCommentAddedEvent(comment, projectID, origin))
}

func (h *Hub) NotifyProjectUpdated(project *domain.Project, origin uuid.UUID) {
	h.broadcast.Publish(domain.NewProjectUpdatedEvent(project, origin))
}

// NotifyUser sends a notification event to all of a user's connections.
func (h *Hub) NotifyUser(userID uuid.UUID, message, kind string) {
	event := domain.NewNotificationEvent(message, kind)
	for _, s := range h.presence.SessionsOf(userID) {
		h.broadcast.SendToSession(s, event)
	}
}

// --- Introspection (ports.RealtimeStatus) ---

func (h *Hub) ConnectionCount() int { return h.presence.ConnectionCount() }
func (h *Hub) OnlineUserCount() int { return h.presence.OnlineUserCount() }
func (h *Hub) RoomCount() int       { return h.rooms.RoomCount() }

// IsOnline reports whether the user has any active connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	return h.presence.IsOnline(userID)
}

// Session looks up a live session by connection ID.
func (h *Hub) Session(sessionID uuid.UUID) (*Session, bool) {
	return h.presence.Get(sessionID)
}

// Shutdown force-closes every live session and stops the typing
// coordinator. New connections are rejected afterwards.
func (h *Hub) Shutdown() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	sessions := h.presence.Snapshot()
	for _, s := range sessions {
		h.Disconnect(s.ID)
	}
	h.typing.Shutdown()

	h.logger.Info("hub shut down", "sessions_closed", len(sessions))
}
