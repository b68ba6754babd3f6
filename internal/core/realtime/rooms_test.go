package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/taskboardhq/taskboard-backend/internal/core/errors"
)

func TestRoomManager_JoinAndLeave(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner)

	rooms := NewRoomManager(access, testLogger())
	s := NewSession(owner, "Alice", 8)

	joined, userJoined, err := rooms.Join(ctx, s, 1)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.True(t, userJoined)
	assert.True(t, s.InRoom(1))
	assert.Equal(t, 1, rooms.RoomCount())
	assert.Equal(t, 1, rooms.MemberCount(1))

	// Joining again is a no-op returning success.
	joined, userJoined, err = rooms.Join(ctx, s, 1)
	require.NoError(t, err)
	assert.False(t, joined)
	assert.False(t, userJoined)
	assert.Equal(t, 1, rooms.MemberCount(1))

	rooms.Leave(s, 1)
	assert.False(t, s.InRoom(1))

	// The room is collected once its last member leaves.
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestRoomManager_JoinUnknownProject(t *testing.T) {
	access := newFakeAccessRepo()
	rooms := NewRoomManager(access, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	_, _, err := rooms.Join(context.Background(), s, 42)
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
	assert.False(t, s.InRoom(42))
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestRoomManager_JoinForbidden(t *testing.T) {
	owner := uuid.New()
	outsider := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner)

	rooms := NewRoomManager(access, testLogger())
	s := NewSession(outsider, "Mallory", 8)

	_, _, err := rooms.Join(context.Background(), s, 1)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// A denied join leaves the membership state untouched.
	assert.False(t, s.InRoom(1))
	assert.Equal(t, 0, rooms.MemberCount(1))
}

func TestRoomManager_MemberJoins(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	member := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner, member)

	rooms := NewRoomManager(access, testLogger())
	s := NewSession(member, "Bob", 8)

	joined, userJoined, err := rooms.Join(ctx, s, 1)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.True(t, userJoined)
	assert.True(t, s.InRoom(1))
}

func TestRoomManager_JoinClosedSession(t *testing.T) {
	owner := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner)

	rooms := NewRoomManager(access, testLogger())
	s := NewSession(owner, "Alice", 8)
	s.Close()

	// A session torn down while the access check was in flight must not
	// end up as a room member.
	joined, _, err := rooms.Join(context.Background(), s, 1)
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
	assert.False(t, joined)
	assert.False(t, s.InRoom(1))
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestRoomManager_LeaveNeverJoined(t *testing.T) {
	access := newFakeAccessRepo()
	rooms := NewRoomManager(access, testLogger())
	s := NewSession(uuid.New(), "Alice", 8)

	// Leaving a room that was never joined is a silent no-op.
	rooms.Leave(s, 7)
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestRoomManager_LeaveAll(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner)
	access.addProject(2, owner)
	access.addProject(3, owner)

	rooms := NewRoomManager(access, testLogger())
	s := NewSession(owner, "Alice", 8)
	other := NewSession(uuid.New(), "Bob", 8)
	access.addProject(2, owner, other.UserID)
	_, _, err := rooms.Join(ctx, other, 2)
	require.NoError(t, err)

	for _, projectID := range []int64{1, 2, 3} {
		_, _, err := rooms.Join(ctx, s, projectID)
		require.NoError(t, err)
	}

	left := rooms.LeaveAll(s)
	assert.ElementsMatch(t, []int64{1, 2, 3}, left)
	assert.Empty(t, s.RoomIDs())

	// Rooms with remaining members survive, empty ones are collected.
	assert.Equal(t, 1, rooms.RoomCount())
	assert.Equal(t, 1, rooms.MemberCount(2))
}

func TestRoomManager_OnlineUsersDeduplicatesConnections(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	member := uuid.New()

	access := newFakeAccessRepo()
	access.addProject(1, owner, member)

	rooms := NewRoomManager(access, testLogger())

	o1 := NewSession(owner, "Alice", 8)
	o2 := NewSession(owner, "Alice", 8)
	m1 := NewSession(member, "Bob", 8)

	joined, userJoined, err := rooms.Join(ctx, o1, 1)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.True(t, userJoined)

	// A second connection of the same user joins the room but does not
	// make the user newly present.
	joined, userJoined, err = rooms.Join(ctx, o2, 1)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.False(t, userJoined)

	joined, userJoined, err = rooms.Join(ctx, m1, 1)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.True(t, userJoined)

	users := rooms.OnlineUsersIn(1)
	assert.Len(t, users, 2)

	names := make(map[string]bool)
	for _, u := range users {
		names[u.DisplayName] = true
	}
	assert.True(t, names["Alice"])
	assert.True(t, names["Bob"])

	assert.Equal(t, 3, rooms.MemberCount(1))
}
