package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/taskboardhq/taskboard-backend/internal/adapters/primary/http/middleware"
	"github.com/taskboardhq/taskboard-backend/internal/auth"
	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	"github.com/taskboardhq/taskboard-backend/internal/core/mocks"
	"github.com/taskboardhq/taskboard-backend/internal/core/realtime"
)

// notifyFixture wires a hub with one member session in project 1 behind
// a JWT-protected notify route.
type notifyFixture struct {
	hub     *realtime.Hub
	session *realtime.Session
	router  chi.Router
	token   string
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()

	userID := uuid.New()

	access := mocks.NewMockProjectAccessRepository()
	access.On("ProjectExists", mock.Anything, int64(1)).Return(true, nil)
	access.On("IsProjectOwner", mock.Anything, userID, int64(1)).Return(true, nil)

	logger := discardLogger()
	hub := realtime.NewHub(access, logger, realtime.Options{})
	t.Cleanup(hub.Shutdown)

	session, err := hub.Connect(userID, "Alice")
	require.NoError(t, err)
	require.NoError(t, hub.JoinProject(context.Background(), session, 1))
	<-session.Events() // roster reply

	tm := auth.NewTokenManager("test-secret-key-for-notify-tests", time.Hour)
	token, err := tm.GenerateToken(uuid.New(), "crud-service")
	require.NoError(t, err)

	errorHandler := NewErrorHandler(logger)
	notifyHandler := NewNotifyHandler(hub, errorHandler, logger)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tm))
		r.Post("/api/v1/internal/notify", notifyHandler.HandleNotify)
	})

	return &notifyFixture{hub: hub, session: session, router: router, token: token}
}

func (f *notifyFixture) post(t *testing.T, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/internal/notify", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

// nextEvent reads the next queued event for the fixture session.
func (f *notifyFixture) nextEvent(t *testing.T) domain.Event {
	t.Helper()

	select {
	case event, ok := <-f.session.Events():
		require.True(t, ok, "send queue closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return domain.Event{}
	}
}

func TestNotifyHandler_TaskCreated(t *testing.T) {
	f := newNotifyFixture(t)

	recorder := f.post(t, NotifyRequest{
		Type:      "task_created",
		ProjectID: 1,
		Task:      &domain.Task{ID: 10, ProjectID: 1, Title: "Ship it", Status: domain.TaskStatusPending},
	}, f.token)

	require.Equal(t, stdhttp.StatusAccepted, recorder.Code)

	event := f.nextEvent(t)
	assert.Equal(t, domain.EventTaskCreated, event.Type)
	assert.Equal(t, int64(1), event.ProjectID)
}

func TestNotifyHandler_StatusChangedExcludesOrigin(t *testing.T) {
	f := newNotifyFixture(t)

	recorder := f.post(t, NotifyRequest{
		Type:      "task_status_changed",
		ProjectID: 1,
		TaskID:    10,
		OldStatus: domain.TaskStatusPending,
		NewStatus: domain.TaskStatusInProgress,
		Origin:    f.session.ID,
	}, f.token)

	require.Equal(t, stdhttp.StatusAccepted, recorder.Code)

	// The mutation came from this connection, so it hears nothing.
	select {
	case event := <-f.session.Events():
		t.Fatalf("unexpected event %q for the originating connection", event.Type)
	default:
	}
}

func TestNotifyHandler_DirectNotification(t *testing.T) {
	f := newNotifyFixture(t)

	recorder := f.post(t, NotifyRequest{
		Type:    "notification",
		UserID:  f.session.UserID,
		Message: "You were assigned a task",
		Kind:    "assignment",
	}, f.token)

	require.Equal(t, stdhttp.StatusAccepted, recorder.Code)

	event := f.nextEvent(t)
	assert.Equal(t, domain.EventNotification, event.Type)
}

func TestNotifyHandler_RejectsInvalidRequests(t *testing.T) {
	f := newNotifyFixture(t)

	tests := []struct {
		name string
		body NotifyRequest
		want int
	}{
		{
			name: "unknown type",
			body: NotifyRequest{Type: "task_exploded", ProjectID: 1},
			want: stdhttp.StatusUnprocessableEntity,
		},
		{
			name: "missing project",
			body: NotifyRequest{Type: "task_deleted", TaskID: 10},
			want: stdhttp.StatusUnprocessableEntity,
		},
		{
			name: "task_created without task",
			body: NotifyRequest{Type: "task_created", ProjectID: 1},
			want: stdhttp.StatusBadRequest,
		},
		{
			name: "notification without user",
			body: NotifyRequest{Type: "notification", Message: "hi"},
			want: stdhttp.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := f.post(t, tt.body, f.token)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestNotifyHandler_RequiresAuthentication(t *testing.T) {
	f := newNotifyFixture(t)

	recorder := f.post(t, NotifyRequest{Type: "task_deleted", ProjectID: 1, TaskID: 10}, "")
	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	recorder = f.post(t, NotifyRequest{Type: "task_deleted", ProjectID: 1, TaskID: 10}, "not-a-token")
	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}
