package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// seedUser inserts a user row and returns its ID.
func seedUser(t *testing.T, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO users (id, email, full_name) VALUES ($1, $2, $3)`,
		id, fmt.Sprintf("%s-%s@example.com", name, id.String()[:8]), name,
	)
	require.NoError(t, err, "Failed to seed user")
	return id
}

// seedProject inserts a project row and returns its ID.
func seedProject(t *testing.T, name string, ownerID uuid.UUID) int64 {
	t.Helper()

	var id int64
	err := testPool.QueryRow(context.Background(),
		`INSERT INTO projects (name, owner_id) VALUES ($1, $2) RETURNING id`,
		name, ownerID,
	).Scan(&id)
	require.NoError(t, err, "Failed to seed project")
	return id
}

// seedMember inserts a project membership row.
func seedMember(t *testing.T, projectID int64, userID uuid.UUID, role domain.MemberRole) {
	t.Helper()

	require.True(t, role.IsValid(), "invalid role %q", role)
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		projectID, userID, string(role),
	)
	require.NoError(t, err, "Failed to seed project member")
}

func newMembershipRepo(t *testing.T) ports.ProjectAccessRepository {
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	return NewMembershipRepository(testPool)
}

func TestMembershipRepository_ProjectExists(t *testing.T) {
	ctx := context.Background()
	repo := newMembershipRepo(t)

	owner := seedUser(t, "Existence Owner")
	projectID := seedProject(t, "Existing Project", owner)

	exists, err := repo.ProjectExists(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ProjectExists(ctx, projectID+100000)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMembershipRepository_IsProjectOwner(t *testing.T) {
	ctx := context.Background()
	repo := newMembershipRepo(t)

	owner := seedUser(t, "Project Owner")
	other := seedUser(t, "Other User")
	projectID := seedProject(t, "Owned Project", owner)

	isOwner, err := repo.IsProjectOwner(ctx, owner, projectID)
	require.NoError(t, err)
	assert.True(t, isOwner)

	isOwner, err = repo.IsProjectOwner(ctx, other, projectID)
	require.NoError(t, err)
	assert.False(t, isOwner)
}

func TestMembershipRepository_IsProjectMember(t *testing.T) {
	ctx := context.Background()
	repo := newMembershipRepo(t)

	owner := seedUser(t, "Member Owner")
	member := seedUser(t, "Project Member")
	viewer := seedUser(t, "Project Viewer")
	outsider := seedUser(t, "Outsider")
	projectID := seedProject(t, "Shared Project", owner)
	seedMember(t, projectID, member, domain.RoleMember)
	seedMember(t, projectID, viewer, domain.RoleViewer)

	// The owner counts as a member even without an explicit membership row.
	isMember, err := repo.IsProjectMember(ctx, owner, projectID)
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = repo.IsProjectMember(ctx, member, projectID)
	require.NoError(t, err)
	assert.True(t, isMember)

	// Any role grants room access, including read-only viewers.
	isMember, err = repo.IsProjectMember(ctx, viewer, projectID)
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = repo.IsProjectMember(ctx, outsider, projectID)
	require.NoError(t, err)
	assert.False(t, isMember)
}
