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

// PostgresBoardStore implements the store.BoardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBoardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBoardStore creates a new PostgreSQL implementation of the
// BoardStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresBoardStore(db store.DBTX, logger *slog.Logger) *PostgresBoardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBoardStore{
		db:     db,
		logger: logger.With(slog.String("component", "board_store")),
	}
}

// Ensure PostgresBoardStore implements store.BoardStore interface
var _ store.BoardStore = (*PostgresBoardStore)(nil)

// Create implements store.BoardStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *PostgresBoardStore) Create(ctx context.Context, board *domain.Board) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := board.Validate(); err != nil {
		log.Warn("board validation failed during create",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return err
	}

	query := `
		INSERT INTO boards (id, owner_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		board.ID,
		board.OwnerID,
		board.Title,
		board.CreatedAt,
		board.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during board creation",
				slog.String("board_id", board.ID.String()),
				slog.String("owner_id", board.OwnerID.String()))
			return fmt.Errorf("%w: owner with ID %s not found",
				store.ErrInvalidEntity, board.OwnerID)
		}

		log.Error("failed to create board",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return MapError(err)
	}

	log.Info("board created successfully",
		slog.String("board_id", board.ID.String()),
		slog.String("owner_id", board.OwnerID.String()))
	return nil
}

// GetByID implements store.BoardStore.GetByID
// The returned board includes its member IDs.
// Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, created_at, updated_at
		FROM boards
		WHERE id = $1
	`

	var board domain.Board
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&board.ID,
		&board.OwnerID,
		&board.Title,
		&board.CreatedAt,
		&board.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("board not found", slog.String("board_id", id.String()))
			return nil, store.ErrBoardNotFound
		}
		log.Error("failed to get board by ID",
			slog.String("error", err.Error()),
			slog.String("board_id", id.String()))
		return nil, MapError(err)
	}

	members, err := s.memberIDs(ctx, id)
	if err != nil {
		log.Error("failed to load board members",
			slog.String("error", err.Error()),
			slog.String("board_id", id.String()))
		return nil, MapError(err)
	}
	board.MemberIDs = members

	return &board, nil
}

// ListForUser implements store.BoardStore.ListForUser
// It returns every board the user owns or was added to, oldest first.
func (s *PostgresBoardStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT b.id, b.owner_id, b.title, b.created_at, b.updated_at
		FROM boards b
		WHERE b.owner_id = $1
		   OR EXISTS (
				SELECT 1 FROM board_members m
				WHERE m.board_id = b.id AND m.user_id = $1
		   )
		ORDER BY b.created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query boards for user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var boards []*domain.Board
	for rows.Next() {
		var board domain.Board
		err := rows.Scan(
			&board.ID,
			&board.OwnerID,
			&board.Title,
			&board.CreatedAt,
			&board.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan board row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		boards = append(boards, &board)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning board rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	for _, board := range boards {
		members, err := s.memberIDs(ctx, board.ID)
		if err != nil {
			log.Error("failed to load board members",
				slog.String("error", err.Error()),
				slog.String("board_id", board.ID.String()))
			return nil, MapError(err)
		}
		board.MemberIDs = members
	}

	if boards == nil {
		boards = []*domain.Board{}
	}
	return boards, nil
}

// Update implements store.BoardStore.Update
// Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) Update(ctx context.Context, board *domain.Board) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := board.Validate(); err != nil {
		log.Warn("board validation failed during update",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return err
	}

	board.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE boards
		SET title = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, board.Title, board.UpdatedAt, board.ID)
	if err != nil {
		log.Error("failed to update board",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrBoardNotFound); err != nil {
		return err
	}

	log.Info("board updated successfully",
		slog.String("board_id", board.ID.String()))
	return nil
}

// Delete implements store.BoardStore.Delete
// Lists, tasks and memberships go with the board via ON DELETE CASCADE.
// Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM boards WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete board",
			slog.String("error", err.Error()),
			slog.String("board_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrBoardNotFound); err != nil {
		return err
	}

	log.Info("board deleted successfully",
		slog.String("board_id", id.String()))
	return nil
}

// AddMember implements store.BoardStore.AddMember
// Returns store.ErrMemberExists if the user is already a member,
// store.ErrBoardNotFound if the board does not exist and
// store.ErrUserNotFound if the user does not exist.
func (s *PostgresBoardStore) AddMember(ctx context.Context, boardID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO board_members (board_id, user_id, added_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, boardID, userID, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("user is already a board member",
				slog.String("board_id", boardID.String()),
				slog.String("user_id", userID.String()))
			return fmt.Errorf("%w: %v", store.ErrMemberExists, err)
		}
		if IsForeignKeyViolation(err) {
			// The insert references two tables; the constraint name tells
			// us which one was missing.
			if strings.Contains(constraintName(err), "board_id") {
				return fmt.Errorf("%w: %v", store.ErrBoardNotFound, err)
			}
			return fmt.Errorf("%w: %v", store.ErrUserNotFound, err)
		}

		log.Error("failed to add board member",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	log.Info("board member added",
		slog.String("board_id", boardID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// RemoveMember implements store.BoardStore.RemoveMember
// Returns store.ErrMemberNotFound if the user is not a member.
func (s *PostgresBoardStore) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, boardID, userID)
	if err != nil {
		log.Error("failed to remove board member",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrMemberNotFound); err != nil {
		return err
	}

	log.Info("board member removed",
		slog.String("board_id", boardID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// GetACL implements store.BoardStore.GetACL
// It reads the owner and member IDs directly, skipping the rest of the
// board record. Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) GetACL(ctx context.Context, boardID uuid.UUID) (store.BoardACL, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var acl store.BoardACL
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM boards WHERE id = $1`, boardID).
		Scan(&acl.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("board not found for ACL read",
				slog.String("board_id", boardID.String()))
			return store.BoardACL{}, store.ErrBoardNotFound
		}
		log.Error("failed to read board owner",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return store.BoardACL{}, MapError(err)
	}

	members, err := s.memberIDs(ctx, boardID)
	if err != nil {
		log.Error("failed to read board members for ACL",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return store.BoardACL{}, MapError(err)
	}
	acl.MemberIDs = members

	return acl, nil
}

// memberIDs loads a board's member IDs in join order.
func (s *PostgresBoardStore) memberIDs(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM board_members
		WHERE board_id = $1
		ORDER BY added_at, user_id
	`

	rows, err := s.db.QueryContext(ctx, query, boardID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	members := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// WithTx implements store.BoardStore.WithTx
func (s *PostgresBoardStore) WithTx(tx *sql.Tx) store.BoardStore {
	return &PostgresBoardStore{
		db:     tx,
		logger: s.logger,
	}
}
