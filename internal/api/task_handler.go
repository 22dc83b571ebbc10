package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/realtime"
	"github.com/quayside/taskhub-api/internal/store"
)

// TaskResponse represents the response data for a task
type TaskResponse struct {
	ID          string    `json:"id"`
	BoardID     string    `json:"board_id"`
	ListID      string    `json:"list_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListTasksResponse carries a list's tasks in position order. It doubles as
// the payload of the single event a reorder emits.
type ListTasksResponse struct {
	BoardID string         `json:"board_id"`
	ListID  string         `json:"list_id"`
	Tasks   []TaskResponse `json:"tasks"`
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateTaskRequest represents the request body for updating a task
type UpdateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ReorderTasksRequest represents the request body for reordering a list's
// tasks. The slice must name every task in the list exactly once.
type ReorderTasksRequest struct {
	TaskIDs []uuid.UUID `json:"task_ids" validate:"required,min=1"`
}

// MoveTaskRequest represents the request body for moving a task to another
// list or position. Out-of-range positions are clamped, not rejected.
type MoveTaskRequest struct {
	ListID   uuid.UUID `json:"list_id" validate:"required"`
	Position int       `json:"position"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskStore   store.TaskStore
	listStore   store.ListStore
	gate        *realtime.Gate
	broadcaster events.Broadcaster
	db          *sql.DB
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. db is needed because reorders
// and moves run inside an explicit transaction.
func NewTaskHandler(
	taskStore store.TaskStore,
	listStore store.ListStore,
	gate *realtime.Gate,
	broadcaster events.Broadcaster,
	db *sql.DB,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskStore:   taskStore,
		listStore:   listStore,
		gate:        gate,
		broadcaster: broadcaster,
		db:          db,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// GetTasks godoc
// @Summary Get a list's tasks
// @Description Returns the list's tasks in position order.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param listID path string true "List ID"
// @Success 200 {object} ListTasksResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /lists/{listID}/tasks [get]
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, listID, ok := handleUserIDAndPathUUID(w, r, "listID", log)
	if !ok {
		return
	}

	list, err := h.listStore.GetByID(r.Context(), listID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get list")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, list.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	tasks, err := h.taskStore.ListForList(r.Context(), listID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(list.BoardID, listID, tasks))
}

// CreateTask godoc
// @Summary Create a task
// @Description Creates a task appended at the end of the list.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param listID path string true "List ID"
// @Param request body CreateTaskRequest true "Task payload"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /lists/{listID}/tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, listID, ok := handleUserIDAndPathUUID(w, r, "listID", log)
	if !ok {
		return
	}

	list, err := h.listStore.GetByID(r.Context(), listID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get list")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, list.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req CreateTaskRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	task, err := domain.NewTask(list.BoardID, listID, req.Title, req.Description)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data: "+err.Error())
		return
	}

	if err := h.taskStore.Create(r.Context(), task); err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	response := taskToResponse(task)
	emitEvent(r.Context(), h.broadcaster, log, events.KindTaskCreated, task.BoardID, response)

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("list_id", listID.String()),
		slog.String("board_id", task.BoardID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, response)
}

// GetTask godoc
// @Summary Get a task
// @Description Returns one task by id.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /tasks/{taskID} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "taskID", log)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, task.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask godoc
// @Summary Update a task
// @Description Updates the task's title and description.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body UpdateTaskRequest true "Task payload"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /tasks/{taskID} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "taskID", log)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, task.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req UpdateTaskRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	if err := task.Update(req.Title, req.Description); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data: "+err.Error())
		return
	}

	if err := h.taskStore.Update(r.Context(), task); err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	response := taskToResponse(task)
	emitEvent(r.Context(), h.broadcaster, log, events.KindTaskUpdated, task.BoardID, response)

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Deletes the task; sibling positions close up behind it.
// @Tags tasks
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 204 "No Content"
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /tasks/{taskID} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "taskID", log)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, task.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	if err := h.taskStore.Delete(r.Context(), taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	// The payload is the task's last known state so clients can drop it
	// without a refetch.
	emitEvent(r.Context(), h.broadcaster, log, events.KindTaskDeleted, task.BoardID, taskToResponse(task))

	log.Debug("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("board_id", task.BoardID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTasks godoc
// @Summary Reorder a list's tasks
// @Description Rewrites task positions to the given order inside one transaction. The request must name every task in the list exactly once.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param listID path string true "List ID"
// @Param request body ReorderTasksRequest true "Complete task order"
// @Success 200 {object} ListTasksResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /lists/{listID}/tasks/reorder [put]
func (h *TaskHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, listID, ok := handleUserIDAndPathUUID(w, r, "listID", log)
	if !ok {
		return
	}

	list, err := h.listStore.GetByID(r.Context(), listID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get list")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, list.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req ReorderTasksRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	err = store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		return h.taskStore.WithTx(tx).Reorder(ctx, listID, req.TaskIDs)
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reorder tasks")
		return
	}

	tasks, err := h.taskStore.ListForList(r.Context(), listID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	response := tasksToResponse(list.BoardID, listID, tasks)
	// One event for the whole reorder rather than one per touched task.
	emitEvent(r.Context(), h.broadcaster, log, events.KindTaskUpdated, list.BoardID, response)

	log.Debug("tasks reordered",
		slog.String("list_id", listID.String()),
		slog.Int("count", len(req.TaskIDs)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// MoveTask godoc
// @Summary Move a task
// @Description Moves the task to the requested list and position; source and destination positions are rewritten inside one transaction. Positions beyond the end of the destination clamp to the end.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body MoveTaskRequest true "Destination list and position"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /tasks/{taskID}/move [post]
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "taskID", log)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, task.BoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req MoveTaskRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	err = store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		return h.taskStore.WithTx(tx).Move(ctx, taskID, req.ListID, req.Position)
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to move task")
		return
	}

	moved, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	response := taskToResponse(moved)
	emitEvent(r.Context(), h.broadcaster, log, events.KindTaskUpdated, moved.BoardID, response)

	log.Debug("task moved",
		slog.String("task_id", taskID.String()),
		slog.String("from_list_id", task.ListID.String()),
		slog.String("to_list_id", req.ListID.String()),
		slog.Int("position", moved.Position))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// taskToResponse converts a domain.Task to a TaskResponse
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		BoardID:     task.BoardID.String(),
		ListID:      task.ListID.String(),
		Title:       task.Title,
		Description: task.Description,
		Position:    task.Position,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// tasksToResponse converts a list's tasks to a ListTasksResponse
func tasksToResponse(boardID, listID uuid.UUID, tasks []*domain.Task) ListTasksResponse {
	return ListTasksResponse{
		BoardID: boardID.String(),
		ListID:  listID.String(),
		Tasks: lo.Map(tasks, func(t *domain.Task, _ int) TaskResponse {
			return taskToResponse(t)
		}),
	}
}
