package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// MembershipRepository answers project access questions for room joins.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.ProjectAccessRepository = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new repository for project access queries.
func NewMembershipRepository(pool *pgxpool.Pool) ports.ProjectAccessRepository {
	return &MembershipRepository{pool: pool}
}

// ProjectExists reports whether a project with the given ID exists.
func (r *MembershipRepository) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, projectID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// IsProjectOwner reports whether the user owns the given project.
func (r *MembershipRepository) IsProjectOwner(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2)`

	var owner bool
	err := r.pool.QueryRow(ctx, query, projectID, pgtype.UUID{Bytes: userID, Valid: true}).Scan(&owner)
	if err != nil {
		return false, err
	}

	return owner, nil
}

// IsProjectMember reports whether the user is the owner of or a member
// of the given project, regardless of role.
func (r *MembershipRepository) IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2
			UNION
			SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2
		)
	`

	var member bool
	err := r.pool.QueryRow(ctx, query, projectID, pgtype.UUID{Bytes: userID, Valid: true}).Scan(&member)
	if err != nil {
		return false, err
	}

	return member, nil
}
