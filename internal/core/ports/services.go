package ports

import (
	"github.com/google/uuid"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
)

// RealtimeNotifier is the inbound surface the REST/mutation layer calls
// synchronously after a successful persistence operation. Every call is
// fire-and-forget: delivery problems are handled inside the engine and
// never surface to the caller.
//
// The origin argument is the connection that triggered the mutation,
// when the client supplied one; uuid.Nil means unknown. It only matters
// for event types whose delivery policy excludes the originator.
type RealtimeNotifier interface {
	NotifyTaskCreated(task *domain.Task, origin uuid.UUID)
	NotifyTaskUpdated(task *domain.Task, changes []string, origin uuid.UUID)
	NotifyTaskDeleted(projectID, taskID int64, title string, origin uuid.UUID)
	NotifyStatusChanged(projectID, taskID int64, oldStatus, newStatus domain.TaskStatus, origin uuid.UUID)
	NotifyCommentAdded(comment *domain.Comment, projectID int64, origin uuid.UUID)
	NotifyProjectUpdated(project *domain.Project, origin uuid.UUID)

	// NotifyUser delivers a notification event to every connection of a
	// single user, regardless of room membership.
	NotifyUser(userID uuid.UUID, message, kind string)
}

// RealtimeStatus exposes hub counters for monitoring endpoints.
type RealtimeStatus interface {
	ConnectionCount() int
	OnlineUserCount() int
	RoomCount() int
}
