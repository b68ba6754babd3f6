package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole is the role a user holds within a project.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
	RoleViewer MemberRole = "viewer"
)

// IsValid checks if the role is one of the known values.
func (r MemberRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Project is the snapshot of a project as carried in realtime event payloads.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// OnlineUser is one distinct online user within a project room.
type OnlineUser struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
}
