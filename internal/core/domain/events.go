package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of realtime event. The set is closed:
// every type has exactly one payload variant and a constructor below,
// and the broadcaster's delivery policy is keyed on it.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskUpdated       EventType = "task_updated"
	EventTaskDeleted       EventType = "task_deleted"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventCommentAdded      EventType = "comment_added"
	EventProjectUpdated    EventType = "project_updated"
	EventNotification      EventType = "notification"
	EventUserConnected     EventType = "user_connected"
	EventUserDisconnected  EventType = "user_disconnected"
	EventTypingIndicator   EventType = "typing_indicator"
	EventOnlineUsers       EventType = "online_users"
	EventError             EventType = "error"
)

// Event is the payload sent over WebSocket. ProjectID is the routing
// key: the event fans out to the members of that project's room.
// Originator is the connection that triggered the mutation, when known;
// it is never serialized and exists only for self-exclusion routing.
type Event struct {
	Type       EventType   `json:"type"`
	ProjectID  int64       `json:"projectId,omitempty"`
	Payload    interface{} `json:"payload"`
	Timestamp  time.Time   `json:"timestamp"`
	Originator uuid.UUID   `json:"-"`
}

// NewTaskCreatedEvent builds the event broadcast after a task is created.
func NewTaskCreatedEvent(task *Task, originator uuid.UUID) Event {
	return Event{
		Type:       EventTaskCreated,
		ProjectID:  task.ProjectID,
		Payload:    TaskPayload{Task: task},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewTaskUpdatedEvent builds the event broadcast after a task is updated.
// Changes lists the mutated field names, matching the REST layer's diff.
func NewTaskUpdatedEvent(task *Task, changes []string, originator uuid.UUID) Event {
	return Event{
		Type:       EventTaskUpdated,
		ProjectID:  task.ProjectID,
		Payload:    TaskPayload{Task: task, Changes: changes},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewTaskDeletedEvent builds the event broadcast after a task is deleted.
func NewTaskDeletedEvent(projectID, taskID int64, title string, originator uuid.UUID) Event {
	return Event{
		Type:       EventTaskDeleted,
		ProjectID:  projectID,
		Payload:    TaskDeletedPayload{TaskID: taskID, Title: title},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewStatusChangedEvent builds the event broadcast after a task changes status.
func NewStatusChangedEvent(projectID, taskID int64, oldStatus, newStatus TaskStatus, originator uuid.UUID) Event {
	return Event{
		Type:       EventTaskStatusChanged,
		ProjectID:  projectID,
		Payload:    StatusChangedPayload{TaskID: taskID, OldStatus: oldStatus, NewStatus: newStatus},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewCommentAddedEvent builds the event broadcast after a comment is added.
func NewCommentAddedEvent(comment *Comment, projectID int64, originator uuid.UUID) Event {
	return Event{
		Type:       EventCommentAdded,
		ProjectID:  projectID,
		Payload:    CommentPayload{Comment: comment},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewProjectUpdatedEvent builds the event broadcast after project metadata changes.
func NewProjectUpdatedEvent(project *Project, originator uuid.UUID) Event {
	return Event{
		Type:       EventProjectUpdated,
		ProjectID:  project.ID,
		Payload:    ProjectPayload{Project: project},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewNotificationEvent builds a direct notification for a single user.
func NewNotificationEvent(message, kind string) Event {
	return Event{
		Type:      EventNotification,
		Payload:   NotificationPayload{Message: message, Kind: kind},
		Timestamp: time.Now().UTC(),
	}
}

// NewUserConnectedEvent announces a user's presence to a project room.
func NewUserConnectedEvent(projectID int64, userID uuid.UUID, displayName string, originator uuid.UUID) Event {
	return Event{
		Type:       EventUserConnected,
		ProjectID:  projectID,
		Payload:    PresencePayload{UserID: userID, DisplayName: displayName},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewUserDisconnectedEvent announces that a user went offline to a project room.
func NewUserDisconnectedEvent(projectID int64, userID uuid.UUID, displayName string) Event {
	return Event{
		Type:      EventUserDisconnected,
		ProjectID: projectID,
		Payload:   PresencePayload{UserID: userID, DisplayName: displayName},
		Timestamp: time.Now().UTC(),
	}
}

// NewTypingEvent builds a typing indicator for a task within a project room.
func NewTypingEvent(projectID, taskID int64, userID uuid.UUID, displayName string, isTyping bool, originator uuid.UUID) Event {
	return Event{
		Type:       EventTypingIndicator,
		ProjectID:  projectID,
		Payload:    TypingPayload{TaskID: taskID, UserID: userID, DisplayName: displayName, IsTyping: isTyping},
		Timestamp:  time.Now().UTC(),
		Originator: originator,
	}
}

// NewOnlineUsersEvent builds the reply to a get_online_users request.
func NewOnlineUsersEvent(projectID int64, users []OnlineUser) Event {
	return Event{
		Type:      EventOnlineUsers,
		ProjectID: projectID,
		Payload:   OnlineUsersPayload{ProjectID: projectID, Users: users},
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorEvent builds an error frame delivered to a single connection.
// The connection itself stays open.
func NewErrorEvent(code, message string) Event {
	return Event{
		Type:      EventError,
		Payload:   ErrorPayload{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
}
