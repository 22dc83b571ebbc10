package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// Positions are dense 0-based indexes within a list, maintained the same
// way ListStore maintains list positions.
type TaskStore interface {
	// Create saves a new task to the store, assigning it the next position
	// in its list. Returns validation errors from the domain Task if data
	// is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListForList retrieves all tasks in the given list ordered by position.
	ListForList(ctx context.Context, listID uuid.UUID) ([]*domain.Task, error)

	// ListForBoard retrieves all tasks on the given board ordered by list
	// and position. Used to render a whole board in one query.
	ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)

	// Update modifies an existing task's title and description.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task. Positions of the remaining tasks in its list
	// are compacted. Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Reorder rewrites the positions of the list's tasks to match the
	// given order. Every task in the list must appear exactly once in
	// orderedIDs; otherwise ErrTaskNotFound is returned and nothing
	// changes. Callers run it inside a transaction (RunInTransaction with
	// WithTx) so the validation read and the rewrite land together.
	Reorder(ctx context.Context, listID uuid.UUID, orderedIDs []uuid.UUID) error

	// Move transfers a task to another list on the same board, inserting
	// it at the given position (clamped into the valid range). Sibling
	// positions in both the source and destination lists are rewritten;
	// callers run it inside a transaction.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrListNotFound if the destination list does not exist or belongs
	// to a different board.
	Move(ctx context.Context, taskID, toListID uuid.UUID, position int) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
