package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/samber/lo"
)

// BoardACL is the access-control view of a board: its owner plus the set
// of added members. It is the only shape membership checks depend on, so
// authorization code never needs full board records.
type BoardACL struct {
	OwnerID   uuid.UUID
	MemberIDs []uuid.UUID
}

// Allows reports whether the given user is the board's owner or a member.
func (a BoardACL) Allows(userID uuid.UUID) bool {
	return a.OwnerID == userID || lo.Contains(a.MemberIDs, userID)
}

// BoardStore defines the interface for board data persistence.
type BoardStore interface {
	// Create saves a new board to the store.
	// Returns validation errors from the domain Board if data is invalid.
	Create(ctx context.Context, board *domain.Board) error

	// GetByID retrieves a board by its unique ID, including its member IDs.
	// Returns ErrBoardNotFound if the board does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)

	// ListForUser retrieves every board the user owns or is a member of,
	// ordered by creation time.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)

	// Update modifies an existing board's title.
	// Returns ErrBoardNotFound if the board does not exist.
	Update(ctx context.Context, board *domain.Board) error

	// Delete removes a board and, through cascading constraints, its lists
	// and tasks. Returns ErrBoardNotFound if the board does not exist.
	// This operation is permanent and cannot be undone.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMember records the given user as a member of the board.
	// Returns ErrBoardNotFound if the board does not exist and
	// ErrMemberExists if the user is already a member.
	AddMember(ctx context.Context, boardID, userID uuid.UUID) error

	// RemoveMember removes the given user from the board's member set.
	// Returns ErrMemberNotFound if the user is not a member.
	RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error

	// GetACL retrieves the board's access-control view: its owner ID and
	// member IDs, nothing else. Returns ErrBoardNotFound if the board does
	// not exist. Authorization checks always call this rather than GetByID
	// so they read exactly one membership snapshot, never a cached one.
	GetACL(ctx context.Context, boardID uuid.UUID) (BoardACL, error)

	// WithTx returns a new BoardStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) BoardStore
}
