package domain

import "github.com/google/uuid"

// TaskPayload carries a full task snapshot. Changes is only populated
// for task_updated events.
type TaskPayload struct {
	Task    *Task    `json:"task"`
	Changes []string `json:"changes,omitempty"`
}

// TaskDeletedPayload identifies a removed task. The title survives the
// deletion so clients can render a meaningful message.
type TaskDeletedPayload struct {
	TaskID int64  `json:"taskId"`
	Title  string `json:"title,omitempty"`
}

// StatusChangedPayload describes a task status transition.
type StatusChangedPayload struct {
	TaskID    int64      `json:"taskId"`
	OldStatus TaskStatus `json:"oldStatus"`
	NewStatus TaskStatus `json:"newStatus"`
}

// CommentPayload carries a full comment snapshot.
type CommentPayload struct {
	Comment *Comment `json:"comment"`
}

// ProjectPayload carries a full project snapshot.
type ProjectPayload struct {
	Project *Project `json:"project"`
}

// NotificationPayload is a direct user-facing message.
type NotificationPayload struct {
	Message string `json:"message"`
	Kind    string `json:"type"`
}

// PresencePayload identifies the user behind a connect/disconnect event.
type PresencePayload struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
}

// TypingPayload describes who is typing on which task.
type TypingPayload struct {
	TaskID      int64     `json:"taskId"`
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	IsTyping    bool      `json:"isTyping"`
}

// OnlineUsersPayload lists the distinct online users in a project room.
type OnlineUsersPayload struct {
	ProjectID int64        `json:"projectId"`
	Users     []OnlineUser `json:"users"`
}

// ErrorPayload is the error frame sent to a single connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
