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

func newTaskStoreMock(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTaskStore(db, nil), mock
}

func TestTaskStoreCreate(t *testing.T) {
	t.Parallel()

	t.Run("appends at the end of the list", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)
		task, err := domain.NewTask(uuid.New(), uuid.New(), "Ship it", "")
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO tasks").
			WithArgs(task.ID, task.BoardID, task.ListID, task.Title, task.Description,
				task.CreatedAt, task.UpdatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(0))

		require.NoError(t, s.Create(context.Background(), task))
		assert.Equal(t, 0, task.Position)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing list maps to ErrListNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)
		task, err := domain.NewTask(uuid.New(), uuid.New(), "Ship it", "")
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO tasks").
			WillReturnError(newPgError(foreignKeyViolationCode, "tasks_list_id_fkey"))

		assert.ErrorIs(t, s.Create(context.Background(), task), store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskStoreMove(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	taskID := uuid.New()
	fromListID := uuid.New()
	toListID := uuid.New()

	expectTaskRead := func(mock sqlmock.Sqlmock, listID uuid.UUID, position int) {
		mock.ExpectQuery("SELECT board_id, list_id, position FROM tasks").
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id", "list_id", "position"}).
				AddRow(boardID.String(), listID.String(), position))
	}

	expectListRead := func(mock sqlmock.Sqlmock, listID uuid.UUID, listBoardID uuid.UUID) {
		mock.ExpectQuery("SELECT board_id FROM lists").
			WithArgs(listID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id"}).
				AddRow(listBoardID.String()))
	}

	t.Run("across lists compacts the source and opens a slot", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 2)
		expectListRead(mock, toListID, boardID)
		mock.ExpectExec("UPDATE tasks SET position = position - 1").
			WithArgs(fromListID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(toListID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec("UPDATE tasks SET position = position \\+ 1").
			WithArgs(toListID, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE tasks SET list_id").
			WithArgs(toListID, 1, sqlmock.AnyArg(), taskID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Move(context.Background(), taskID, toListID, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("position beyond the end clamps to append", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 0)
		expectListRead(mock, toListID, boardID)
		mock.ExpectExec("UPDATE tasks SET position = position - 1").
			WithArgs(fromListID, 0).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(toListID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		// Clamped to 2: appended after the destination's two tasks.
		mock.ExpectExec("UPDATE tasks SET position = position \\+ 1").
			WithArgs(toListID, 2).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE tasks SET list_id").
			WithArgs(toListID, 2, sqlmock.AnyArg(), taskID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Move(context.Background(), taskID, toListID, 99))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("within a list shifts the span between old and new", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 0)
		expectListRead(mock, fromListID, boardID)
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(fromListID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectExec("UPDATE tasks SET position = position - 1").
			WithArgs(fromListID, 0, 2).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("UPDATE tasks SET position =").
			WithArgs(2, sqlmock.AnyArg(), taskID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Move(context.Background(), taskID, fromListID, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same position is a no-op", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 1)
		expectListRead(mock, fromListID, boardID)
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(fromListID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		require.NoError(t, s.Move(context.Background(), taskID, fromListID, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task maps to ErrTaskNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		mock.ExpectQuery("SELECT board_id, list_id, position FROM tasks").
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id", "list_id", "position"}))

		err := s.Move(context.Background(), taskID, toListID, 0)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing destination list maps to ErrListNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 0)
		mock.ExpectQuery("SELECT board_id FROM lists").
			WithArgs(toListID).
			WillReturnRows(sqlmock.NewRows([]string{"board_id"}))

		err := s.Move(context.Background(), taskID, toListID, 0)
		assert.ErrorIs(t, err, store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("destination on another board maps to ErrListNotFound", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		expectTaskRead(mock, fromListID, 0)
		expectListRead(mock, toListID, uuid.New())

		err := s.Move(context.Background(), taskID, toListID, 0)
		assert.ErrorIs(t, err, store.ErrListNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskStoreReorder(t *testing.T) {
	t.Parallel()

	listID := uuid.New()
	taskA, taskB := uuid.New(), uuid.New()

	t.Run("rewrites every position", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		mock.ExpectQuery("SELECT id FROM tasks").
			WithArgs(listID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(taskA.String()).
				AddRow(taskB.String()))
		mock.ExpectExec("UPDATE tasks AS t SET position").
			WithArgs(sqlmock.AnyArg(), listID, taskB, taskA).
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, s.Reorder(context.Background(), listID, []uuid.UUID{taskB, taskA}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown task rejects the whole reorder", func(t *testing.T) {
		t.Parallel()

		s, mock := newTaskStoreMock(t)

		mock.ExpectQuery("SELECT id FROM tasks").
			WithArgs(listID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(taskA.String()).
				AddRow(taskB.String()))

		err := s.Reorder(context.Background(), listID, []uuid.UUID{taskA, uuid.New()})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClampPosition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, clampPosition(-5, 3))
	assert.Equal(t, 2, clampPosition(2, 3))
	assert.Equal(t, 3, clampPosition(99, 3))
	assert.Equal(t, 0, clampPosition(1, -1))
}
