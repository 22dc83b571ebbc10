package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/store"
)

// PostgresListStore implements the store.ListStore interface
// using a PostgreSQL database as the storage backend. Positions are dense
// 0-based indexes per board; every write keeps them that way.
type PostgresListStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresListStore creates a new PostgreSQL implementation of the
// ListStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresListStore(db store.DBTX, logger *slog.Logger) *PostgresListStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresListStore{
		db:     db,
		logger: logger.With(slog.String("component", "list_store")),
	}
}

// Ensure PostgresListStore implements store.ListStore interface
var _ store.ListStore = (*PostgresListStore)(nil)

// Create implements store.ListStore.Create
// The list is appended at the end of its board; the assigned position is
// written back to list.Position. Returns store.ErrBoardNotFound if the
// board does not exist.
func (s *PostgresListStore) Create(ctx context.Context, list *domain.List) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := list.Validate(); err != nil {
		log.Warn("list validation failed during create",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return err
	}

	query := `
		INSERT INTO lists (id, board_id, title, position, created_at, updated_at)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM lists WHERE board_id = $2),
			$4, $5)
		RETURNING position
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		list.ID,
		list.BoardID,
		list.Title,
		list.CreatedAt,
		list.UpdatedAt,
	).Scan(&list.Position)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during list creation",
				slog.String("list_id", list.ID.String()),
				slog.String("board_id", list.BoardID.String()))
			return fmt.Errorf("%w: %v", store.ErrBoardNotFound, err)
		}

		log.Error("failed to create list",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return MapError(err)
	}

	log.Info("list created successfully",
		slog.String("list_id", list.ID.String()),
		slog.String("board_id", list.BoardID.String()),
		slog.Int("position", list.Position))
	return nil
}

// GetByID implements store.ListStore.GetByID
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, title, position, created_at, updated_at
		FROM lists
		WHERE id = $1
	`

	var list domain.List
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&list.ID,
		&list.BoardID,
		&list.Title,
		&list.Position,
		&list.CreatedAt,
		&list.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("list not found", slog.String("list_id", id.String()))
			return nil, store.ErrListNotFound
		}
		log.Error("failed to get list by ID",
			slog.String("error", err.Error()),
			slog.String("list_id", id.String()))
		return nil, MapError(err)
	}

	return &list, nil
}

// ListForBoard implements store.ListStore.ListForBoard
// Lists come back ordered by position.
func (s *PostgresListStore) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, title, position, created_at, updated_at
		FROM lists
		WHERE board_id = $1
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, boardID)
	if err != nil {
		log.Error("failed to query lists for board",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var lists []*domain.List
	for rows.Next() {
		var list domain.List
		err := rows.Scan(
			&list.ID,
			&list.BoardID,
			&list.Title,
			&list.Position,
			&list.CreatedAt,
			&list.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan list row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		lists = append(lists, &list)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning list rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if lists == nil {
		lists = []*domain.List{}
	}
	return lists, nil
}

// Update implements store.ListStore.Update
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) Update(ctx context.Context, list *domain.List) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := list.Validate(); err != nil {
		log.Warn("list validation failed during update",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return err
	}

	list.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE lists
		SET title = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, list.Title, list.UpdatedAt, list.ID)
	if err != nil {
		log.Error("failed to update list",
			slog.String("error", err.Error()),
			slog.String("list_id", list.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrListNotFound); err != nil {
		return err
	}

	log.Info("list updated successfully",
		slog.String("list_id", list.ID.String()))
	return nil
}

// Delete implements store.ListStore.Delete
// The list's tasks go with it via ON DELETE CASCADE, and the positions of
// the remaining lists on the board are compacted. Callers should run it
// inside a transaction so the delete and the compaction land together.
// Returns store.ErrListNotFound if the list does not exist.
func (s *PostgresListStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var boardID uuid.UUID
	var position int
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM lists WHERE id = $1 RETURNING board_id, position`, id).
		Scan(&boardID, &position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("list not found for delete", slog.String("list_id", id.String()))
			return store.ErrListNotFound
		}
		log.Error("failed to delete list",
			slog.String("error", err.Error()),
			slog.String("list_id", id.String()))
		return MapError(err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE lists SET position = position - 1 WHERE board_id = $1 AND position > $2`,
		boardID, position)
	if err != nil {
		log.Error("failed to compact list positions after delete",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return MapError(err)
	}

	log.Info("list deleted successfully",
		slog.String("list_id", id.String()),
		slog.String("board_id", boardID.String()))
	return nil
}

// Reorder implements store.ListStore.Reorder
// It verifies orderedIDs names every list on the board exactly once, then
// rewrites all positions in one statement. Callers should run it inside a
// transaction; the validation read locks the rows so concurrent reorders
// serialize.
func (s *PostgresListStore) Reorder(ctx context.Context, boardID uuid.UUID, orderedIDs []uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	current, err := s.lockListIDs(ctx, boardID)
	if err != nil {
		log.Error("failed to read lists for reorder",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return MapError(err)
	}

	if err := verifyExactCover(current, orderedIDs); err != nil {
		log.Warn("reorder rejected",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return fmt.Errorf("%w: %v", store.ErrListNotFound, err)
	}
	if len(orderedIDs) == 0 {
		return nil
	}

	query, args := buildPositionRewrite("lists", "board_id", boardID, orderedIDs)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to rewrite list positions",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return MapError(err)
	}

	log.Info("lists reordered",
		slog.String("board_id", boardID.String()),
		slog.Int("count", len(orderedIDs)))
	return nil
}

// lockListIDs reads the board's list IDs FOR UPDATE.
func (s *PostgresListStore) lockListIDs(ctx context.Context, boardID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM lists WHERE board_id = $1 FOR UPDATE`, boardID)
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

// verifyExactCover checks that ordered names every ID in current exactly
// once, with nothing extra and nothing missing.
func verifyExactCover(current map[uuid.UUID]bool, ordered []uuid.UUID) error {
	if len(ordered) != len(current) {
		return fmt.Errorf("order names %d entries, have %d", len(ordered), len(current))
	}
	seen := make(map[uuid.UUID]bool, len(ordered))
	for _, id := range ordered {
		if !current[id] {
			return fmt.Errorf("unknown entry %s in order", id)
		}
		if seen[id] {
			return fmt.Errorf("entry %s appears twice in order", id)
		}
		seen[id] = true
	}
	return nil
}

// buildPositionRewrite produces a single UPDATE that assigns position i to
// the i-th ID. Positions are loop indexes, so they are inlined; the IDs
// travel as parameters.
func buildPositionRewrite(table, scopeColumn string, scopeID uuid.UUID, orderedIDs []uuid.UUID) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(orderedIDs)+2)
	args = append(args, time.Now().UTC(), scopeID)

	fmt.Fprintf(&b, "UPDATE %s AS t SET position = v.position, updated_at = $1 FROM (VALUES ", table)
	for i, id := range orderedIDs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d::uuid, %d)", i+3, i)
		args = append(args, id)
	}
	fmt.Fprintf(&b, ") AS v(id, position) WHERE t.id = v.id AND t.%s = $2", scopeColumn)

	return b.String(), args
}

// WithTx implements store.ListStore.WithTx
func (s *PostgresListStore) WithTx(tx *sql.Tx) store.ListStore {
	return &PostgresListStore{
		db:     tx,
		logger: s.logger,
	}
}
