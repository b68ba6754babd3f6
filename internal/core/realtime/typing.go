package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
)

// DefaultTypingDebounce is how long a typing indicator stays armed
// after the last typing signal before a stop is broadcast.
const DefaultTypingDebounce = 3 * time.Second

type typingKey struct {
	taskID int64
	userID uuid.UUID
}

type typingEntry struct {
	timer       *time.Timer
	gen         uint64
	projectID   int64
	sessionID   uuid.UUID
	displayName string
}

// TypingCoordinator owns the ephemeral who-is-typing state. A first
// typing signal broadcasts typing-start and arms a debounce timer;
// repeated signals within the window only reset the timer, so rapid
// keystrokes produce a single start. An explicit stop or timer expiry
// broadcasts exactly one typing-stop. Nothing is persisted.
type TypingCoordinator struct {
	mu       sync.Mutex
	entries  map[typingKey]*typingEntry
	debounce time.Duration
	publish  func(domain.Event)
	stopped  bool
	logger   *slog.Logger
}

// NewTypingCoordinator creates a coordinator publishing through the
// given function, normally Broadcaster.Publish.
func NewTypingCoordinator(debounce time.Duration, publish func(domain.Event), logger *slog.Logger) *TypingCoordinator {
	if debounce <= 0 {
		debounce = DefaultTypingDebounce
	}
	return &TypingCoordinator{
		entries:  make(map[typingKey]*typingEntry),
		debounce: debounce,
		publish:  publish,
		logger:   logger.With("component", "typing_coordinator"),
	}
}

// SetTyping processes a typing signal from a session for a task in the
// given project room.
func (c *TypingCoordinator) SetTyping(s *Session, projectID, taskID int64, isTyping bool) {
	key := typingKey{taskID: taskID, userID: s.UserID}

	var start, stop bool

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	entry, active := c.entries[key]
	switch {
	case isTyping && !active:
		entry = &typingEntry{
			projectID:   projectID,
			sessionID:   s.ID,
			displayName: s.DisplayName,
		}
		c.entries[key] = entry
		c.armLocked(key, entry)
		start = true

	case isTyping && active:
		// Coalesce: reset the window, no re-broadcast.
		entry.timer.Stop()
		entry.sessionID = s.ID
		c.armLocked(key, entry)

	case !isTyping && active:
		entry.timer.Stop()
		delete(c.entries, key)
		stop = true

	default:
		// Stop signal with no active indicator: no-op.
	}
	c.mu.Unlock()

	if start {
		c.publish(domain.NewTypingEvent(projectID, taskID, s.UserID, s.DisplayName, true, s.ID))
	}
	if stop {
		c.publish(domain.NewTypingEvent(projectID, taskID, s.UserID, s.DisplayName, false, s.ID))
	}
}

// armLocked schedules the debounce expiry for an entry. Caller holds
// c.mu. The generation guard discards stale timer callbacks that lost
// a race against a reset.
func (c *TypingCoordinator) armLocked(key typingKey, entry *typingEntry) {
	entry.gen++
	gen := entry.gen
	entry.timer = time.AfterFunc(c.debounce, func() {
		c.expire(key, gen)
	})
}

func (c *TypingCoordinator) expire(key typingKey, gen uint64) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok || entry.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	projectID := entry.projectID
	sessionID := entry.sessionID
	displayName := entry.displayName
	c.mu.Unlock()

	c.logger.Debug("typing indicator expired",
		"task_id", key.taskID,
		"user_id", key.userID,
	)
	c.publish(domain.NewTypingEvent(projectID, key.taskID, key.userID, displayName, false, sessionID))
}

// ClearUser drops every active indicator for a user and broadcasts the
// corresponding stops. Called when the user's last connection drops.
func (c *TypingCoordinator) ClearUser(userID uuid.UUID) {
	type cleared struct {
		key         typingKey
		projectID   int64
		sessionID   uuid.UUID
		displayName string
	}

	c.mu.Lock()
	var dropped []cleared
	for key, entry := range c.entries {
		if key.userID != userID {
			continue
		}
		entry.timer.Stop()
		delete(c.entries, key)
		dropped = append(dropped, cleared{key: key, projectID: entry.projectID, sessionID: entry.sessionID, displayName: entry.displayName})
	}
	c.mu.Unlock()

	for _, d := range dropped {
		c.publish(domain.NewTypingEvent(d.projectID, d.key.taskID, userID, d.displayName, false, d.sessionID))
	}
}

// Shutdown cancels all pending timers without broadcasting stops.
func (c *TypingCoordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	for key, entry := range c.entries {
		entry.timer.Stop()
		delete(c.entries, key)
	}
}

// ActiveCount returns the number of live typing indicators.
func (c *TypingCoordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
