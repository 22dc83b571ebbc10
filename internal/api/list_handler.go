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

// ListResponse represents the response data for a list
type ListResponse struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoardListsResponse carries a board's lists in position order. It doubles
// as the payload of the single event a reorder emits.
type BoardListsResponse struct {
	BoardID string         `json:"board_id"`
	Lists   []ListResponse `json:"lists"`
}

// CreateListRequest represents the request body for creating a list
type CreateListRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// UpdateListRequest represents the request body for renaming a list
type UpdateListRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// ReorderListsRequest represents the request body for reordering a board's
// lists. The slice must name every list on the board exactly once.
type ReorderListsRequest struct {
	ListIDs []uuid.UUID `json:"list_ids" validate:"required,min=1"`
}

// ListHandler handles list-related HTTP requests
type ListHandler struct {
	listStore   store.ListStore
	gate        *realtime.Gate
	broadcaster events.Broadcaster
	db          *sql.DB
	logger      *slog.Logger
}

// NewListHandler creates a new ListHandler. db is needed because reorders
// run inside an explicit transaction.
func NewListHandler(
	listStore store.ListStore,
	gate *realtime.Gate,
	broadcaster events.Broadcaster,
	db *sql.DB,
	logger *slog.Logger,
) *ListHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ListHandler")
	}

	return &ListHandler{
		listStore:   listStore,
		gate:        gate,
		broadcaster: broadcaster,
		db:          db,
		logger:      logger.With(slog.String("component", "list_handler")),
	}
}

// GetLists godoc
// @Summary Get a board's lists
// @Description Returns the board's lists in position order.
// @Tags lists
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Success 200 {object} BoardListsResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID}/lists [get]
func (h *ListHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	lists, err := h.listStore.ListForBoard(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lists")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, listsToResponse(boardID, lists))
}

// CreateList godoc
// @Summary Create a list
// @Description Creates a list appended at the end of the board.
// @Tags lists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Param request body CreateListRequest true "List payload"
// @Success 201 {object} ListResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID}/lists [post]
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req CreateListRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	list, err := domain.NewList(boardID, req.Title)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid list data: "+err.Error())
		return
	}

	if err := h.listStore.Create(r.Context(), list); err != nil {
		HandleAPIError(w, r, err, "Failed to create list")
		return
	}

	response := listToResponse(list)
	emitEvent(r.Context(), h.broadcaster, log, events.KindListCreated, boardID, response)

	log.Debug("list created",
		slog.String("list_id", list.ID.String()),
		slog.String("board_id", boardID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, response)
}

// UpdateList godoc
// @Summary Rename a list
// @Description Renames the list.
// @Tags lists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param listID path string true "List ID"
// @Param request body UpdateListRequest true "New title"
// @Success 200 {object} ListResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /lists/{listID} [put]
func (h *ListHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateListRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	if err := list.Rename(req.Title); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid list data: "+err.Error())
		return
	}

	if err := h.listStore.Update(r.Context(), list); err != nil {
		HandleAPIError(w, r, err, "Failed to update list")
		return
	}

	response := listToResponse(list)
	emitEvent(r.Context(), h.broadcaster, log, events.KindListUpdated, list.BoardID, response)

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// DeleteList godoc
// @Summary Delete a list
// @Description Deletes the list and its tasks; sibling positions close up.
// @Tags lists
// @Security BearerAuth
// @Param listID path string true "List ID"
// @Success 204 "No Content"
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /lists/{listID} [delete]
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
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

	if err := h.listStore.Delete(r.Context(), listID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete list")
		return
	}

	// The payload is the list's last known state so clients can drop it
	// without a refetch.
	emitEvent(r.Context(), h.broadcaster, log, events.KindListDeleted, list.BoardID, listToResponse(list))

	log.Debug("list deleted",
		slog.String("list_id", listID.String()),
		slog.String("board_id", list.BoardID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ReorderLists godoc
// @Summary Reorder a board's lists
// @Description Rewrites list positions to the given order inside one transaction. The request must name every list on the board exactly once.
// @Tags lists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Param request body ReorderListsRequest true "Complete list order"
// @Success 200 {object} BoardListsResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID}/lists/reorder [put]
func (h *ListHandler) ReorderLists(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req ReorderListsRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	err := store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		return h.listStore.WithTx(tx).Reorder(ctx, boardID, req.ListIDs)
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reorder lists")
		return
	}

	lists, err := h.listStore.ListForBoard(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lists")
		return
	}

	response := listsToResponse(boardID, lists)
	// One event for the whole reorder rather than one per touched list.
	emitEvent(r.Context(), h.broadcaster, log, events.KindListUpdated, boardID, response)

	log.Debug("lists reordered",
		slog.String("board_id", boardID.String()),
		slog.Int("count", len(req.ListIDs)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// listToResponse converts a domain.List to a ListResponse
func listToResponse(list *domain.List) ListResponse {
	return ListResponse{
		ID:        list.ID.String(),
		BoardID:   list.BoardID.String(),
		Title:     list.Title,
		Position:  list.Position,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
}

// listsToResponse converts a board's lists to a BoardListsResponse
func listsToResponse(boardID uuid.UUID, lists []*domain.List) BoardListsResponse {
	return BoardListsResponse{
		BoardID: boardID.String(),
		Lists: lo.Map(lists, func(l *domain.List, _ int) ListResponse {
			return listToResponse(l)
		}),
	}
}
