package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/domain"
)

// ListStore defines the interface for list data persistence.
//
// Positions are dense 0-based indexes within a board. The store owns
// position bookkeeping: Create appends, Reorder rewrites every sibling.
type ListStore interface {
	// Create saves a new list to the store, assigning it the next position
	// on its board. Returns validation errors from the domain List if data
	// is invalid.
	Create(ctx context.Context, list *domain.List) error

	// GetByID retrieves a list by its unique ID.
	// Returns ErrListNotFound if the list does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error)

	// ListForBoard retrieves all lists on the given board ordered by position.
	ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error)

	// Update modifies an existing list's title.
	// Returns ErrListNotFound if the list does not exist.
	Update(ctx context.Context, list *domain.List) error

	// Delete removes a list and, through cascading constraints, its tasks.
	// Positions of the remaining lists are compacted.
	// Returns ErrListNotFound if the list does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Reorder rewrites the positions of the board's lists to match the
	// given order. Every list on the board must appear exactly once in
	// orderedIDs; otherwise ErrListNotFound is returned and nothing
	// changes. Callers run it inside a transaction (RunInTransaction with
	// WithTx) so the validation read and the rewrite land together.
	Reorder(ctx context.Context, boardID uuid.UUID, orderedIDs []uuid.UUID) error

	// WithTx returns a new ListStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ListStore
}
