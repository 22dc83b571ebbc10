package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/store"
)

func newListStoreMock(t *testing.T) (*PostgresListStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresListStore(db, nil), mock
}

func TestListStoreCreate(t *testing.T) {
	t.Parallel()

	t.Run("appends at the end of the board", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)
		list, err := domain.NewList(uuid.New(), "In Progress")
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO lists").
			WithArgs(list.ID, list.BoardID, list.Title, list.CreatedAt, list.UpdatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(3))

		require.NoError(t, s.Create(context.Background(), list))
		assert.Equal(t, 3, list.Position)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing board maps to ErrBoardNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)
		list, err := domain.NewList(uuid.New(), "In Progress")
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO lists").
			WillReturnError(newPgError(foreignKeyViolationCode, "lists_board_id_fkey"))

		assert.ErrorIs(t, s.Create(context.Background(), list), store.ErrBoardNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListStoreDelete(t *testing.T) {
	t.Parallel()

	t.Run("compacts the remaining positions", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)
		listID := uuid.New()
		boardID := uuid.New()

		mock.ExpectQuery("DELETE FROM lists").
			WithArgs(listID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id", "position"}).
				AddRow(boardID.String(), 1))
		mock.ExpectExec("UPDATE lists SET position = position - 1").
			WithArgs(boardID, 1).
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, s.Delete(context.Background(), listID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing list maps to ErrListNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)
		listID := uuid.New()

		mock.ExpectQuery("DELETE FROM lists").
			WithArgs(listID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id", "position"}))

		assert.ErrorIs(t, s.Delete(context.Background(), listID), store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListStoreReorder(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	listA, listB, listC := uuid.New(), uuid.New(), uuid.New()

	currentRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id"}).
			AddRow(listA.String()).
			AddRow(listB.String()).
			AddRow(listC.String())
	}

	t.Run("rewrites every position in one statement", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)

		mock.ExpectQuery("SELECT id FROM lists").
			WithArgs(boardID).
			WillReturnRows(currentRows())
		mock.ExpectExec("UPDATE lists AS t SET position").
			WithArgs(sqlmock.AnyArg(), boardID, listC, listA, listB).
			WillReturnResult(sqlmock.NewResult(0, 3))

		err := s.Reorder(context.Background(), boardID, []uuid.UUID{listC, listA, listB})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown list rejects the whole reorder", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)

		mock.ExpectQuery("SELECT id FROM lists").
			WithArgs(boardID).
			WillReturnRows(currentRows())

		err := s.Reorder(context.Background(), boardID, []uuid.UUID{listA, listB, uuid.New()})
		assert.ErrorIs(t, err, store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing list in the order rejects the whole reorder", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)

		mock.ExpectQuery("SELECT id FROM lists").
			WithArgs(boardID).
			WillReturnRows(currentRows())

		err := s.Reorder(context.Background(), boardID, []uuid.UUID{listA, listB})
		assert.ErrorIs(t, err, store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate entry rejects the whole reorder", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)

		mock.ExpectQuery("SELECT id FROM lists").
			WithArgs(boardID).
			WillReturnRows(currentRows())

		err := s.Reorder(context.Background(), boardID, []uuid.UUID{listA, listB, listB})
		assert.ErrorIs(t, err, store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty board accepts an empty order", func(t *testing.T) {
		t.Parallel()

		s, mock := newListStoreMock(t)

		mock.ExpectQuery("SELECT id FROM lists").
			WithArgs(boardID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		require.NoError(t, s.Reorder(context.Background(), boardID, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildPositionRewrite(t *testing.T) {
	t.Parallel()

	scopeID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	query, args := buildPositionRewrite("lists", "board_id", scopeID, ids)

	assert.Contains(t, query, "UPDATE lists AS t")
	assert.Contains(t, query, "($3::uuid, 0), ($4::uuid, 1)")
	assert.Contains(t, query, "t.board_id = $2")
	require.Len(t, args, 4)
	assert.Equal(t, scopeID, args[1])
	assert.Equal(t, ids[0], args[2])
	assert.Equal(t, ids[1], args[3])
}
