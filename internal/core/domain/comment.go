package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment is the snapshot of a task comment as carried in realtime
// event payloads.
type Comment struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"taskId"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}
