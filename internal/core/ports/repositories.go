package ports

import (
	"context"

	"github.com/google/uuid"
)

// ProjectAccessRepository is the authorization surface of the data
// layer. The realtime engine consults it on every room join attempt;
// membership can change at any time, so results are never cached.
type ProjectAccessRepository interface {
	// ProjectExists reports whether the project is present in storage.
	ProjectExists(ctx context.Context, projectID int64) (bool, error)

	// IsProjectOwner reports whether the user owns the project.
	IsProjectOwner(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error)

	// IsProjectMember reports whether the user holds any role on the
	// project (owner, admin, member or viewer).
	IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error)
}
