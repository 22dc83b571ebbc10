package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/mocks"
	"github.com/quayside/taskhub-api/internal/realtime"
)

// listFixture wires a ListHandler against in-memory stores holding one board
// with three lists in position order: Todo, Doing, Done.
type listFixture struct {
	handler     *ListHandler
	listStore   *mocks.MockListStore
	boardStore  *mocks.MockBoardStore
	broadcaster *mocks.MockBroadcaster
	sqlMock     sqlmock.Sqlmock
	db          *sql.DB
	owner       uuid.UUID
	outsider    uuid.UUID
	board       *domain.Board
	todo        *domain.List
	doing       *domain.List
	done        *domain.List
}

func newListFixture(t *testing.T) *listFixture {
	t.Helper()

	listStore := mocks.NewMockListStore()
	boardStore := mocks.NewMockBoardStore()
	broadcaster := &mocks.MockBroadcaster{}
	log := newTestLogger()

	owner := uuid.New()
	board, err := domain.NewBoard(owner, "Launch prep")
	require.NoError(t, err)
	boardStore.Boards[board.ID] = board

	fx := &listFixture{
		listStore:   listStore,
		boardStore:  boardStore,
		broadcaster: broadcaster,
		owner:       owner,
		outsider:    uuid.New(),
		board:       board,
	}

	for _, title := range []string{"Todo", "Doing", "Done"} {
		list, err := domain.NewList(board.ID, title)
		require.NoError(t, err)
		require.NoError(t, listStore.Create(context.Background(), list))
		switch title {
		case "Todo":
			fx.todo = list
		case "Doing":
			fx.doing = list
		case "Done":
			fx.done = list
		}
	}

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	fx.db = db
	fx.sqlMock = sqlMock

	gate := realtime.NewGate(boardStore, log)
	fx.handler = NewListHandler(listStore, gate, broadcaster, db, log)

	return fx
}

func TestGetLists(t *testing.T) {
	t.Parallel()

	t.Run("member gets lists in position order", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("GET", "/boards/"+fx.board.ID.String()+"/lists", nil,
			fx.owner, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.GetLists(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp BoardListsResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, fx.board.ID.String(), resp.BoardID)
		require.Len(t, resp.Lists, 3)
		assert.Equal(t, "Todo", resp.Lists[0].Title)
		assert.Equal(t, "Doing", resp.Lists[1].Title)
		assert.Equal(t, "Done", resp.Lists[2].Title)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("GET", "/boards/"+fx.board.ID.String()+"/lists", nil,
			fx.outsider, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.GetLists(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown board", func(t *testing.T) {
		fx := newListFixture(t)
		unknown := uuid.New().String()
		req := newAuthedRequest("GET", "/boards/"+unknown+"/lists", nil,
			fx.owner, map[string]string{"boardID": unknown})
		rr := httptest.NewRecorder()

		fx.handler.GetLists(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing user ID", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("GET", "/boards/"+fx.board.ID.String()+"/lists", nil,
			uuid.Nil, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.GetLists(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestCreateList(t *testing.T) {
	t.Parallel()

	t.Run("new list is appended at the end", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("POST", "/boards/"+fx.board.ID.String()+"/lists",
			jsonBody(t, CreateListRequest{Title: "Blocked"}), fx.owner,
			map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.CreateList(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp ListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Blocked", resp.Title)
		assert.Equal(t, 3, resp.Position)

		emitted := fx.broadcaster.Events()
		require.Len(t, emitted, 1)
		assert.Equal(t, events.KindListCreated, emitted[0].Kind)
		assert.Equal(t, fx.board.ID, emitted[0].BoardID)

		var payload ListResponse
		require.NoError(t, emitted[0].UnmarshalPayload(&payload))
		assert.Equal(t, resp.ID, payload.ID)
	})

	t.Run("outsider cannot create", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("POST", "/boards/"+fx.board.ID.String()+"/lists",
			jsonBody(t, CreateListRequest{Title: "Blocked"}), fx.outsider,
			map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.CreateList(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Empty(t, fx.broadcaster.Events())
	})

	t.Run("whitespace-only title fails domain validation", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("POST", "/boards/"+fx.board.ID.String()+"/lists",
			jsonBody(t, CreateListRequest{Title: "  "}), fx.owner,
			map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.CreateList(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, fx.broadcaster.Events())
	})

	t.Run("missing title", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("POST", "/boards/"+fx.board.ID.String()+"/lists",
			jsonBody(t, map[string]interface{}{}), fx.owner,
			map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.CreateList(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpdateList(t *testing.T) {
	t.Parallel()

	t.Run("member renames list", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("PUT", "/lists/"+fx.todo.ID.String(),
			jsonBody(t, UpdateListRequest{Title: "Backlog"}), fx.owner,
			map[string]string{"listID": fx.todo.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.UpdateList(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp ListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Backlog", resp.Title)
		assert.Equal(t, fx.todo.Position, resp.Position)

		emitted := fx.broadcaster.Events()
		require.Len(t, emitted, 1)
		assert.Equal(t, events.KindListUpdated, emitted[0].Kind)
		assert.Equal(t, fx.board.ID, emitted[0].BoardID)
	})

	t.Run("unknown list", func(t *testing.T) {
		fx := newListFixture(t)
		unknown := uuid.New().String()
		req := newAuthedRequest("PUT", "/lists/"+unknown,
			jsonBody(t, UpdateListRequest{Title: "Backlog"}), fx.owner,
			map[string]string{"listID": unknown})
		rr := httptest.NewRecorder()

		fx.handler.UpdateList(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		var errResp shared.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "List not found", errResp.Error)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("PUT", "/lists/"+fx.todo.ID.String(),
			jsonBody(t, UpdateListRequest{Title: "Backlog"}), fx.outsider,
			map[string]string{"listID": fx.todo.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.UpdateList(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "Todo", fx.todo.Title)
		assert.Empty(t, fx.broadcaster.Events())
	})
}

func TestDeleteList(t *testing.T) {
	t.Parallel()

	t.Run("deleting a list compacts sibling positions", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("DELETE", "/lists/"+fx.doing.ID.String(), nil,
			fx.owner, map[string]string{"listID": fx.doing.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.DeleteList(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		_, err := fx.listStore.GetByID(context.Background(), fx.doing.ID)
		assert.Error(t, err)
		assert.Equal(t, 0, fx.todo.Position)
		assert.Equal(t, 1, fx.done.Position)

		emitted := fx.broadcaster.Events()
		require.Len(t, emitted, 1)
		assert.Equal(t, events.KindListDeleted, emitted[0].Kind)

		// The payload is the list's last known state.
		var payload ListResponse
		require.NoError(t, emitted[0].UnmarshalPayload(&payload))
		assert.Equal(t, fx.doing.ID.String(), payload.ID)
		assert.Equal(t, "Doing", payload.Title)
	})

	t.Run("unknown list", func(t *testing.T) {
		fx := newListFixture(t)
		unknown := uuid.New().String()
		req := newAuthedRequest("DELETE", "/lists/"+unknown, nil,
			fx.owner, map[string]string{"listID": unknown})
		rr := httptest.NewRecorder()

		fx.handler.DeleteList(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("outsider cannot delete", func(t *testing.T) {
		fx := newListFixture(t)
		req := newAuthedRequest("DELETE", "/lists/"+fx.doing.ID.String(), nil,
			fx.outsider, map[string]string{"listID": fx.doing.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.DeleteList(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		_, err := fx.listStore.GetByID(context.Background(), fx.doing.ID)
		assert.NoError(t, err)
	})
}

func TestReorderLists(t *testing.T) {
	t.Parallel()

	t.Run("full reorder rewrites positions and emits once", func(t *testing.T) {
		fx := newListFixture(t)
		fx.sqlMock.ExpectBegin()
		fx.sqlMock.ExpectCommit()

		body := jsonBody(t, ReorderListsRequest{
			ListIDs: []uuid.UUID{fx.done.ID, fx.todo.ID, fx.doing.ID},
		})
		req := newAuthedRequest("PUT", "/boards/"+fx.board.ID.String()+"/lists/reorder",
			body, fx.owner, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.ReorderLists(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp BoardListsResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp.Lists, 3)
		assert.Equal(t, fx.done.ID.String(), resp.Lists[0].ID)
		assert.Equal(t, fx.todo.ID.String(), resp.Lists[1].ID)
		assert.Equal(t, fx.doing.ID.String(), resp.Lists[2].ID)

		assert.Equal(t, 0, fx.done.Position)
		assert.Equal(t, 1, fx.todo.Position)
		assert.Equal(t, 2, fx.doing.Position)

		// One event for the whole reorder, carrying the final order.
		require.Equal(t, []events.Kind{events.KindListUpdated}, fx.broadcaster.Kinds())
		var payload BoardListsResponse
		require.NoError(t, fx.broadcaster.Events()[0].UnmarshalPayload(&payload))
		require.Len(t, payload.Lists, 3)
		assert.Equal(t, fx.done.ID.String(), payload.Lists[0].ID)

		assert.NoError(t, fx.sqlMock.ExpectationsWereMet())
	})

	t.Run("partial cover rolls back", func(t *testing.T) {
		fx := newListFixture(t)
		fx.sqlMock.ExpectBegin()
		fx.sqlMock.ExpectRollback()

		body := jsonBody(t, ReorderListsRequest{ListIDs: []uuid.UUID{fx.todo.ID}})
		req := newAuthedRequest("PUT", "/boards/"+fx.board.ID.String()+"/lists/reorder",
			body, fx.owner, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.ReorderLists(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, 0, fx.todo.Position)
		assert.Equal(t, 1, fx.doing.Position)
		assert.Equal(t, 2, fx.done.Position)
		assert.Empty(t, fx.broadcaster.Events())
		assert.NoError(t, fx.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown list ID rolls back", func(t *testing.T) {
		fx := newListFixture(t)
		fx.sqlMock.ExpectBegin()
		fx.sqlMock.ExpectRollback()

		body := jsonBody(t, ReorderListsRequest{
			ListIDs: []uuid.UUID{fx.done.ID, fx.todo.ID, uuid.New()},
		})
		req := newAuthedRequest("PUT", "/boards/"+fx.board.ID.String()+"/lists/reorder",
			body, fx.owner, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.ReorderLists(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Empty(t, fx.broadcaster.Events())
		assert.NoError(t, fx.sqlMock.ExpectationsWereMet())
	})

	t.Run("empty list is rejected before any transaction", func(t *testing.T) {
		fx := newListFixture(t)

		body := jsonBody(t, ReorderListsRequest{ListIDs: []uuid.UUID{}})
		req := newAuthedRequest("PUT", "/boards/"+fx.board.ID.String()+"/lists/reorder",
			body, fx.owner, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.ReorderLists(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.NoError(t, fx.sqlMock.ExpectationsWereMet())
	})

	t.Run("outsider is forbidden before any transaction", func(t *testing.T) {
		fx := newListFixture(t)

		body := jsonBody(t, ReorderListsRequest{
			ListIDs: []uuid.UUID{fx.done.ID, fx.todo.ID, fx.doing.ID},
		})
		req := newAuthedRequest("PUT", "/boards/"+fx.board.ID.String()+"/lists/reorder",
			body, fx.outsider, map[string]string{"boardID": fx.board.ID.String()})
		rr := httptest.NewRecorder()

		fx.handler.ReorderLists(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.NoError(t, fx.sqlMock.ExpectationsWereMet())
	})
}
