package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/realtime"
	"github.com/quayside/taskhub-api/internal/store"

	"github.com/google/uuid"
)

// BoardResponse represents the response data for a board
type BoardResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberResponse represents a board membership change
type MemberResponse struct {
	BoardID string `json:"board_id"`
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
}

// CreateBoardRequest represents the request body for creating a board
type CreateBoardRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// UpdateBoardRequest represents the request body for renaming a board
type UpdateBoardRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// AddMemberRequest represents the request body for inviting a user to a board
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// BoardHandler handles board-related HTTP requests
type BoardHandler struct {
	boardStore  store.BoardStore
	userStore   store.UserStore
	gate        *realtime.Gate
	broadcaster events.Broadcaster
	logger      *slog.Logger
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(
	boardStore store.BoardStore,
	userStore store.UserStore,
	gate *realtime.Gate,
	broadcaster events.Broadcaster,
	logger *slog.Logger,
) *BoardHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BoardHandler")
	}

	return &BoardHandler{
		boardStore:  boardStore,
		userStore:   userStore,
		gate:        gate,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "board_handler")),
	}
}

// ListBoards godoc
// @Summary List boards
// @Description Returns every board the authenticated user owns or is a member of.
// @Tags boards
// @Produce json
// @Security BearerAuth
// @Success 200 {array} BoardResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 500 {object} shared.ErrorResponse
// @Router /boards [get]
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserIDFromContext(w, r, log)
	if !ok {
		return
	}

	boards, err := h.boardStore.ListForUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list boards")
		return
	}

	response := lo.Map(boards, func(b *domain.Board, _ int) BoardResponse {
		return boardToResponse(b)
	})

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CreateBoard godoc
// @Summary Create a board
// @Description Creates a board owned by the authenticated user.
// @Tags boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBoardRequest true "Board payload"
// @Success 201 {object} BoardResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 500 {object} shared.ErrorResponse
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserIDFromContext(w, r, log)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	board, err := domain.NewBoard(userID, req.Title)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid board data: "+err.Error())
		return
	}

	if err := h.boardStore.Create(r.Context(), board); err != nil {
		HandleAPIError(w, r, err, "Failed to create board")
		return
	}

	// No event here: the board has no members besides its creator yet and
	// nobody can have joined its room before it existed.
	log.Debug("board created",
		slog.String("board_id", board.ID.String()),
		slog.String("owner_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, boardToResponse(board))
}

// GetBoard godoc
// @Summary Get a board
// @Description Returns one board by id. Only members can see it.
// @Tags boards
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Success 200 {object} BoardResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID} [get]
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	board, err := h.boardStore.GetByID(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get board")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, boardToResponse(board))
}

// UpdateBoard godoc
// @Summary Rename a board
// @Description Renames the board. Any board member may rename it.
// @Tags boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Param request body UpdateBoardRequest true "New title"
// @Success 200 {object} BoardResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID} [put]
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeBoard(r.Context(), userID, boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize board access")
		return
	}

	var req UpdateBoardRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	board, err := h.boardStore.GetByID(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get board")
		return
	}

	if err := board.Rename(req.Title); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid board data: "+err.Error())
		return
	}

	if err := h.boardStore.Update(r.Context(), board); err != nil {
		HandleAPIError(w, r, err, "Failed to update board")
		return
	}

	response := boardToResponse(board)
	emitEvent(r.Context(), h.broadcaster, log, events.KindBoardUpdated, board.ID, response)

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// DeleteBoard godoc
// @Summary Delete a board
// @Description Deletes the board with its lists and tasks. Owner only.
// @Tags boards
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Success 204 "No Content"
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID} [delete]
func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	board, err := h.boardStore.GetByID(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get board")
		return
	}

	if board.OwnerID != userID {
		shared.RespondWithError(w, r, http.StatusForbidden, "Only the board owner can perform this action")
		return
	}

	if err := h.boardStore.Delete(r.Context(), boardID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete board")
		return
	}

	log.Debug("board deleted",
		slog.String("board_id", boardID.String()),
		slog.String("owner_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// AddMember godoc
// @Summary Add a board member
// @Description Adds a registered user to the board by email. Owner only.
// @Tags boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Param request body AddMemberRequest true "Member email"
// @Success 201 {object} MemberResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Failure 409 {object} shared.ErrorResponse
// @Router /boards/{boardID}/members [post]
func (h *BoardHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	board, err := h.boardStore.GetByID(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get board")
		return
	}

	if board.OwnerID != userID {
		shared.RespondWithError(w, r, http.StatusForbidden, "Only the board owner can perform this action")
		return
	}

	var req AddMemberRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	member, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to look up user")
		return
	}

	if err := h.boardStore.AddMember(r.Context(), boardID, member.ID); err != nil {
		HandleAPIError(w, r, err, "Failed to add member")
		return
	}

	response := MemberResponse{
		BoardID: boardID.String(),
		UserID:  member.ID.String(),
		Email:   member.Email,
	}
	emitEvent(r.Context(), h.broadcaster, log, events.KindBoardMemberAdded, boardID, response)

	log.Debug("member added",
		slog.String("board_id", boardID.String()),
		slog.String("member_id", member.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, response)
}

// RemoveMember godoc
// @Summary Remove a board member
// @Description Removes a member from the board. Owner only. Existing room subscriptions of the removed user survive until they disconnect; new joins are refused immediately.
// @Tags boards
// @Security BearerAuth
// @Param boardID path string true "Board ID"
// @Param userID path string true "User ID of the member"
// @Success 204 "No Content"
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /boards/{boardID}/members/{userID} [delete]
func (h *BoardHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, boardID, ok := handleUserIDAndPathUUID(w, r, "boardID", log)
	if !ok {
		return
	}

	memberID, err := getPathUUID(r, "userID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	board, err := h.boardStore.GetByID(r.Context(), boardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get board")
		return
	}

	if board.OwnerID != userID {
		shared.RespondWithError(w, r, http.StatusForbidden, "Only the board owner can perform this action")
		return
	}

	if err := h.boardStore.RemoveMember(r.Context(), boardID, memberID); err != nil {
		HandleAPIError(w, r, err, "Failed to remove member")
		return
	}

	emitEvent(r.Context(), h.broadcaster, log, events.KindBoardMemberRemoved, boardID, MemberResponse{
		BoardID: boardID.String(),
		UserID:  memberID.String(),
	})

	log.Debug("member removed",
		slog.String("board_id", boardID.String()),
		slog.String("member_id", memberID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// boardToResponse converts a domain.Board to a BoardResponse
func boardToResponse(board *domain.Board) BoardResponse {
	return BoardResponse{
		ID:      board.ID.String(),
		Title:   board.Title,
		OwnerID: board.OwnerID.String(),
		MemberIDs: lo.Map(board.MemberIDs, func(id uuid.UUID, _ int) string {
			return id.String()
		}),
		CreatedAt: board.CreatedAt,
		UpdatedAt: board.UpdatedAt,
	}
}
