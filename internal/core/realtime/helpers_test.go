package realtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
)

// fakeAccessRepo is an in-memory access repository. Projects map to
// their owner; members holds explicit memberships.
type fakeAccessRepo struct {
	owners  map[int64]uuid.UUID
	members map[int64][]uuid.UUID
	err     error
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{
		owners:  make(map[int64]uuid.UUID),
		members: make(map[int64][]uuid.UUID),
	}
}

func (f *fakeAccessRepo) addProject(projectID int64, ownerID uuid.UUID, memberIDs ...uuid.UUID) {
	f.owners[projectID] = ownerID
	f.members[projectID] = memberIDs
}

func (f *fakeAccessRepo) ProjectExists(_ context.Context, projectID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.owners[projectID]
	return ok, nil
}

func (f *fakeAccessRepo) IsProjectOwner(_ context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.owners[projectID] == userID, nil
}

func (f *fakeAccessRepo) IsProjectMember(_ context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.owners[projectID] == userID {
		return true, nil
	}
	for _, id := range f.members[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// receiveEvent reads the next queued event or fails the test.
func receiveEvent(t *testing.T, s *Session) domain.Event {
	t.Helper()

	select {
	case event, ok := <-s.Events():
		require.True(t, ok, "send queue closed while waiting for an event")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return domain.Event{}
	}
}

// requireNoEvent asserts the session's queue is currently empty.
func requireNoEvent(t *testing.T, s *Session) {
	t.Helper()

	select {
	case event := <-s.Events():
		t.Fatalf("unexpected event %q in queue", event.Type)
	default:
	}
}

// drainUntil reads events until one of the given type arrives, failing
// the test if it does not show up within the timeout.
func drainUntil(t *testing.T, s *Session, eventType domain.EventType) domain.Event {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case event, ok := <-s.Events():
			require.True(t, ok, "send queue closed while draining")
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a %q event", eventType)
			return domain.Event{}
		}
	}
}
