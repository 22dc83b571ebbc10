package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend. Positions are dense
// 0-based indexes per list, maintained the same way PostgresListStore
// maintains list positions.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// The task is appended at the end of its list; the assigned position is
// written back to task.Position. Returns store.ErrListNotFound if the list
// does not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, board_id, list_id, title, description, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE list_id = $3),
			$6, $7)
		RETURNING position
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.ID,
		task.BoardID,
		task.ListID,
		task.Title,
		task.Description,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.Position)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("list_id", task.ListID.String()))
			return fmt.Errorf("%w: %v", store.ErrListNotFound, err)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("list_id", task.ListID.String()),
		slog.Int("position", task.Position))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, list_id, title, description, position, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.BoardID,
		&task.ListID,
		&task.Title,
		&task.Description,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return &task, nil
}

// ListForList implements store.TaskStore.ListForList
// Tasks come back ordered by position.
func (s *PostgresTaskStore) ListForList(ctx context.Context, listID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, board_id, list_id, title, description, position, created_at, updated_at
		FROM tasks
		WHERE list_id = $1
		ORDER BY position
	`
	return s.queryTasks(ctx, query, listID)
}

// ListForBoard implements store.TaskStore.ListForBoard
// Tasks come back grouped by list, each group ordered by position, so a
// whole board renders from one query.
func (s *PostgresTaskStore) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, board_id, list_id, title, description, position, created_at, updated_at
		FROM tasks
		WHERE board_id = $1
		ORDER BY list_id, position
	`
	return s.queryTasks(ctx, query, boardID)
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, arg interface{}) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var tasks []*domain.Task
	for rows.Next() {
		var task domain.Task
		err := rows.Scan(
			&task.ID,
			&task.BoardID,
			&task.ListID,
			&task.Title,
			&task.Description,
			&task.Position,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET title = $1, description = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, task.Title, task.Description, task.UpdatedAt, task.ID)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task updated successfully",
		slog.String("task_id", task.ID.String()))
	return nil
}

// Delete implements store.TaskStore.Delete
// The positions of the remaining tasks in the list are compacted. Callers
// should run it inside a transaction so the delete and the compaction land
// together. Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var listID uuid.UUID
	var position int
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM tasks WHERE id = $1 RETURNING list_id, position`, id).
		Scan(&listID, &position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for delete", slog.String("task_id", id.String()))
			return store.ErrTaskNotFound
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET position = position - 1 WHERE list_id = $1 AND position > $2`,
		listID, position)
	if err != nil {
		log.Error("failed to compact task positions after delete",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return MapError(err)
	}

	log.Info("task deleted successfully",
		slog.String("task_id", id.String()),
		slog.String("list_id", listID.String()))
	return nil
}

// Reorder implements store.TaskStore.Reorder
// It verifies orderedIDs names every task in the list exactly once, then
// rewrites all positions in one statement. Callers should run it inside a
// transaction; the validation read locks the rows so concurrent reorders
// serialize.
func (s *PostgresTaskStore) Reorder(ctx context.Context, listID uuid.UUID, orderedIDs []uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	current, err := s.lockTaskIDs(ctx, listID)
	if err != nil {
		log.Error("failed to read tasks for reorder",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return MapError(err)
	}

	if err := verifyExactCover(current, orderedIDs); err != nil {
		log.Warn("reorder rejected",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}
	if len(orderedIDs) == 0 {
		return nil
	}

	query, args := buildPositionRewrite("tasks", "list_id", listID, orderedIDs)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to rewrite task positions",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return MapError(err)
	}

	log.Info("tasks reordered",
		slog.String("list_id", listID.String()),
		slog.Int("count", len(orderedIDs)))
	return nil
}

func (s *PostgresTaskStore) lockTaskIDs(ctx context.Context, listID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tasks WHERE list_id = $1 FOR UPDATE`, listID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Move implements store.TaskStore.Move
// Callers should run it inside a transaction: it reads the task and the
// destination list, then rewrites sibling positions in both lists.
func (s *PostgresTaskStore) Move(ctx context.Context, taskID, toListID uuid.UUID, position int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var boardID, fromListID uuid.UUID
	var oldPosition int
	err := s.db.QueryRowContext(ctx,
		`SELECT board_id, list_id, position FROM tasks WHERE id = $1 FOR UPDATE`, taskID).
		Scan(&boardID, &fromListID, &oldPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for move", slog.String("task_id", taskID.String()))
			return store.ErrTaskNotFound
		}
		log.Error("failed to read task for move",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	var destBoardID uuid.UUID
	err = s.db.QueryRowContext(ctx,
		`SELECT board_id FROM lists WHERE id = $1 FOR UPDATE`, toListID).
		Scan(&destBoardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("destination list not found for move",
				slog.String("list_id", toListID.String()))
			return store.ErrListNotFound
		}
		log.Error("failed to read destination list for move",
			slog.String("error", err.Error()),
			slog.String("list_id", toListID.String()))
		return MapError(err)
	}
	if destBoardID != boardID {
		log.Warn("move rejected: destination list on different board",
			slog.String("task_id", taskID.String()),
			slog.String("list_id", toListID.String()))
		return fmt.Errorf("%w: list %s belongs to a different board",
			store.ErrListNotFound, toListID)
	}

	if fromListID == toListID {
		return s.moveWithinList(ctx, taskID, fromListID, oldPosition, position)
	}
	return s.moveAcrossLists(ctx, taskID, fromListID, toListID, oldPosition, position)
}

// moveWithinList shifts the tasks between the old and new positions by one
// and drops the task into the freed slot.
func (s *PostgresTaskStore) moveWithinList(ctx context.Context, taskID, listID uuid.UUID, oldPosition, newPosition int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	count, err := s.countTasks(ctx, listID)
	if err != nil {
		return MapError(err)
	}
	newPosition = clampPosition(newPosition, count-1)
	if newPosition == oldPosition {
		return nil
	}

	if newPosition > oldPosition {
		_, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET position = position - 1
			 WHERE list_id = $1 AND position > $2 AND position <= $3`,
			listID, oldPosition, newPosition)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET position = position + 1
			 WHERE list_id = $1 AND position >= $3 AND position < $2`,
			listID, oldPosition, newPosition)
	}
	if err != nil {
		log.Error("failed to shift task positions",
			slog.String("error", err.Error()),
			slog.String("list_id", listID.String()))
		return MapError(err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET position = $1, updated_at = $2 WHERE id = $3`,
		newPosition, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to place moved task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	log.Info("task moved within list",
		slog.String("task_id", taskID.String()),
		slog.String("list_id", listID.String()),
		slog.Int("position", newPosition))
	return nil
}

// moveAcrossLists compacts the source list, opens a slot in the
// destination and re-homes the task.
func (s *PostgresTaskStore) moveAcrossLists(ctx context.Context, taskID, fromListID, toListID uuid.UUID, oldPosition, newPosition int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET position = position - 1 WHERE list_id = $1 AND position > $2`,
		fromListID, oldPosition)
	if err != nil {
		log.Error("failed to compact source list positions",
			slog.String("error", err.Error()),
			slog.String("list_id", fromListID.String()))
		return MapError(err)
	}

	count, err := s.countTasks(ctx, toListID)
	if err != nil {
		return MapError(err)
	}
	// The task may land after the destination's current last slot.
	newPosition = clampPosition(newPosition, count)

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET position = position + 1 WHERE list_id = $1 AND position >= $2`,
		toListID, newPosition)
	if err != nil {
		log.Error("failed to open destination slot",
			slog.String("error", err.Error()),
			slog.String("list_id", toListID.String()))
		return MapError(err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET list_id = $1, position = $2, updated_at = $3 WHERE id = $4`,
		toListID, newPosition, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to place moved task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	log.Info("task moved across lists",
		slog.String("task_id", taskID.String()),
		slog.String("from_list_id", fromListID.String()),
		slog.String("to_list_id", toListID.String()),
		slog.Int("position", newPosition))
	return nil
}

func (s *PostgresTaskStore) countTasks(ctx context.Context, listID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE list_id = $1`, listID).Scan(&count)
	return count, err
}

// clampPosition confines position to [0, max]. A max below zero clamps to
// zero, which only happens for a list whose sole task is the one moving.
func clampPosition(position, max int) int {
	if max < 0 {
		max = 0
	}
	if position < 0 {
		return 0
	}
	if position > max {
		return max
	}
	return position
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}
