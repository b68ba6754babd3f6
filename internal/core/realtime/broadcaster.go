package realtime

import (
	"log/slog"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	apperrors "github.com/taskboardhq/taskboard-backend/internal/core/errors"
)

// selfExcluded lists the event types whose originator does not receive
// their own broadcast. Typing indicators and drag-and-drop status
// changes are redundant for the actor; collaborative mutations such as
// comments are echoed back so every client converges on the same view.
// Presence announcements skip the connection that caused them.
var selfExcluded = map[domain.EventType]bool{
	domain.EventTypingIndicator:   true,
	domain.EventTaskStatusChanged: true,
	domain.EventUserConnected:     true,
}

// Broadcaster fans domain events out to the members of the relevant
// project room. Publish never blocks and never reports failure to the
// caller: a recipient whose queue is full is evicted through the
// configured hook, as if it had disconnected.
type Broadcaster struct {
	rooms  *RoomManager
	logger *slog.Logger

	// evict is invoked outside all locks for each session whose queue
	// rejected an event. Wired to the hub's disconnect path.
	evict func(*Session)
}

// NewBroadcaster creates a broadcaster over the given room manager.
func NewBroadcaster(rooms *RoomManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		rooms:  rooms,
		logger: logger.With("component", "broadcaster"),
	}
}

// SetEvictFunc installs the forced-disconnect hook for failed
// recipients. Must be set before the first Publish.
func (b *Broadcaster) SetEvictFunc(fn func(*Session)) {
	b.evict = fn
}

// Publish delivers an event to every member of the event's project
// room, minus the originator when the event type's policy says so.
// Delivery failure to one connection never aborts delivery to the
// others. Fire-and-forget from the caller's perspective.
func (b *Broadcaster) Publish(event domain.Event) {
	members := b.rooms.MembersOf(event.ProjectID)
	if len(members) == 0 {
		return
	}

	b.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"project_id", event.ProjectID,
		"member_count", len(members),
	)

	var failed []*Session
	for _, s := range members {
		if selfExcluded[event.Type] && s.ID == event.Originator {
			continue
		}
		if !s.TrySend(event) {
			b.logger.Warn("evicting session",
				"error", apperrors.ErrDeliveryFailure,
				"session_id", s.ID,
				"user_id", s.UserID,
				"event_type", event.Type,
			)
			failed = append(failed, s)
		}
	}

	// Evict after the fan-out loop so one stuck consumer cannot delay
	// delivery to the rest. No locks are held here.
	for _, s := range failed {
		if b.evict != nil {
			b.evict(s)
		}
	}
}

// SendToSession delivers an event to a single connection. Failure is
// handled the same way as a broadcast delivery failure.
func (b *Broadcaster) SendToSession(s *Session, event domain.Event) {
	if s.TrySend(event) {
		return
	}
	b.logger.Warn("send queue full, evicting session",
		"error", apperrors.ErrDeliveryFailure,
		"session_id", s.ID,
		"user_id", s.UserID,
		"event_type", event.Type,
	)
	if b.evict != nil {
		b.evict(s)
	}
}
