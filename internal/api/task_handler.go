package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/marketing-jobs/internal/api/shared"
	"github.com/phrazzld/marketing-jobs/internal/platform/logger"
	"github.com/phrazzld/marketing-jobs/internal/task"
)

// SubmitTaskRequest represents the request body for submitting a task
type SubmitTaskRequest struct {
	Type       string         `json:"type" validate:"required,max=64"`
	Priority   string         `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Parameters map[string]any `json:"parameters"`
}

// SubmitTaskResponse is returned with 202 Accepted after a successful submission
type SubmitTaskResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// CancelTaskResponse reports whether a cancellation signal was delivered
type CancelTaskResponse struct {
	TaskID    string `json:"task_id"`
	Cancelled bool   `json:"cancelled"`
}

// TaskListResponse wraps the tasks belonging to the requesting owner
type TaskListResponse struct {
	Tasks []task.ProgressRecord `json:"tasks"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	tasks     task.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks task.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		validator: validator.New(),
		logger:    logger.With("component", "task_handler"),
	}
}

// Routes registers the task endpoints on r
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/", h.SubmitTask)
	r.Get("/", h.ListTasks)
	r.Get("/stats", h.GetStats)
	r.Get("/{id}", h.GetProgress)
	r.Get("/{id}/result", h.GetResult)
	r.Post("/{id}/cancel", h.CancelTask)
}

// SubmitTask handles POST /api/tasks requests
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := getOwnerID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found")
		return
	}

	var req SubmitTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	priority, err := task.ParsePriority(req.Priority)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	id, err := h.tasks.Submit(r.Context(), task.SubmitRequest{
		Type:       req.Type,
		Parameters: req.Parameters,
		OwnerID:    ownerID,
		Priority:   priority,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("task accepted",
		"task_id", id,
		"task_type", req.Type,
		"owner_id", ownerID)

	w.Header().Set("Location", "/api/tasks/"+id)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		TaskID:   id,
		Status:   string(task.StatusQueued),
		Priority: priority.String(),
	})
}

// GetProgress handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupOwned(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// GetResult handles GET /api/tasks/{id}/result requests.
// A task that has not finished yet yields 409 Conflict.
func (h *TaskHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupOwned(w, r)
	if !ok {
		return
	}

	result, err := h.tasks.GetResult(rec.TaskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) && !rec.Status.IsTerminal() {
			shared.RespondWithError(w, r, http.StatusConflict, "Task has not finished")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// CancelTask handles POST /api/tasks/{id}/cancel requests
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupOwned(w, r)
	if !ok {
		return
	}

	cancelled := h.tasks.Cancel(rec.TaskID)
	status := http.StatusOK
	if !cancelled {
		status = http.StatusConflict
	}
	shared.RespondWithJSON(w, r, status, CancelTaskResponse{TaskID: rec.TaskID, Cancelled: cancelled})
}

// GetStats handles GET /api/tasks/stats requests
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.tasks.QueueStats())
}

// ListTasks handles GET /api/tasks requests for the requesting owner
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := getOwnerID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found")
		return
	}
	if q := r.URL.Query().Get("owner_id"); q != "" && q != ownerID {
		shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, "Cannot list another owner's tasks",
			nil, shared.WithElevatedLogLevel())
		return
	}

	tasks := h.tasks.ListByOwner(ownerID)
	if tasks == nil {
		tasks = []task.ProgressRecord{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// lookupOwned resolves the {id} path parameter to a progress record owned by
// the caller, writing an error response when it cannot.
func (h *TaskHandler) lookupOwned(w http.ResponseWriter, r *http.Request) (task.ProgressRecord, bool) {
	if _, ok := getOwnerID(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found")
		return task.ProgressRecord{}, false
	}
	id, ok := getPathTaskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return task.ProgressRecord{}, false
	}

	rec, err := h.tasks.GetProgress(id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return task.ProgressRecord{}, false
	}
	if !requireOwnedTask(w, r, rec.OwnerID) {
		return task.ProgressRecord{}, false
	}
	return rec, true
}

// HealthHandler reports liveness along with the queue snapshot
func HealthHandler(tasks task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC(),
			"queue":  tasks.QueueStats(),
		})
	}
}
