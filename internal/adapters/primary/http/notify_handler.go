package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskboardhq/taskboard-backend/internal/core/domain"
	apperrors "github.com/taskboardhq/taskboard-backend/internal/core/errors"
	"github.com/taskboardhq/taskboard-backend/internal/core/ports"
)

// NotifyRequest is the payload accepted by the internal notify endpoint.
// The CRUD service posts one of these after committing a change, so the
// variant fields required depend on Type.
type NotifyRequest struct {
	Type      string    `json:"type" validate:"required,oneof=task_created task_updated task_deleted task_status_changed comment_added project_updated notification"`
	ProjectID int64     `json:"projectId" validate:"required_unless=Type notification"`
	Origin    uuid.UUID `json:"origin"`

	Task      *domain.Task      `json:"task,omitempty"`
	Changes   []string          `json:"changes,omitempty"`
	TaskID    int64             `json:"taskId,omitempty"`
	Title     string            `json:"title,omitempty"`
	OldStatus domain.TaskStatus `json:"oldStatus,omitempty"`
	NewStatus domain.TaskStatus `json:"newStatus,omitempty"`
	Comment   *domain.Comment   `json:"comment,omitempty"`
	Project   *domain.Project   `json:"project,omitempty"`
	UserID    uuid.UUID         `json:"userId,omitempty"`
	Message   string            `json:"message,omitempty"`
	Kind      string            `json:"kind,omitempty"`
}

// NotifyHandler accepts change notifications from the CRUD service and
// fans them out to connected clients.
type NotifyHandler struct {
	notifier     ports.RealtimeNotifier
	validate     *validator.Validate
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewNotifyHandler creates a new notify handler
func NewNotifyHandler(notifier ports.RealtimeNotifier, errorHandler *ErrorHandler, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		notifier:     notifier,
		validate:     validator.New(),
		errorHandler: errorHandler,
		logger:       logger.With("component", "notify_handler"),
	}
}

// HandleNotify handles POST /api/v1/internal/notify
func (h *NotifyHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err, "invalid notification request", nil))
		return
	}

	if err := h.dispatch(&req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Debug("notification dispatched",
		"type", req.Type,
		"project_id", req.ProjectID,
	)
	WriteAccepted(w, "notification dispatched")
}

// dispatch maps a validated request to the matching notifier call. It
// rejects requests whose variant fields are missing for their type.
func (h *NotifyHandler) dispatch(req *NotifyRequest) error {
	switch domain.EventType(req.Type) {
	case domain.EventTaskCreated:
		if req.Task == nil {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "task is required for task_created")
		}
		h.notifier.NotifyTaskCreated(req.Task, req.Origin)

	case domain.EventTaskUpdated:
		if req.Task == nil {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "task is required for task_updated")
		}
		h.notifier.NotifyTaskUpdated(req.Task, req.Changes, req.Origin)

	case domain.EventTaskDeleted:
		if req.TaskID <= 0 {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "taskId is required for task_deleted")
		}
		h.notifier.NotifyTaskDeleted(req.ProjectID, req.TaskID, req.Title, req.Origin)

	case domain.EventTaskStatusChanged:
		if req.TaskID <= 0 || !req.NewStatus.IsValid() {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "taskId and a valid newStatus are required for task_status_changed")
		}
		h.notifier.NotifyStatusChanged(req.ProjectID, req.TaskID, req.OldStatus, req.NewStatus, req.Origin)

	case domain.EventCommentAdded:
		if req.Comment == nil {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "comment is required for comment_added")
		}
		h.notifier.NotifyCommentAdded(req.Comment, req.ProjectID, req.Origin)

	case domain.EventProjectUpdated:
		if req.Project == nil {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "project is required for project_updated")
		}
		h.notifier.NotifyProjectUpdated(req.Project, req.Origin)

	case domain.EventNotification:
		if req.UserID == uuid.Nil || req.Message == "" {
			return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "userId and message are required for notification")
		}
		h.notifier.NotifyUser(req.UserID, req.Message, req.Kind)

	default:
		return apperrors.NewBadRequestError(apperrors.ErrBadRequest, "unknown notification type")
	}

	return nil
}
