package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// List-specific validation errors
var (
	// ErrListIDEmpty is returned when a list ID is empty or nil.
	ErrListIDEmpty = errors.New("list ID cannot be empty")

	// ErrListBoardIDEmpty is returned when a list's board ID is empty or nil.
	ErrListBoardIDEmpty = errors.New("list board ID cannot be empty")

	// ErrListTitleEmpty is returned when a list's title is empty.
	ErrListTitleEmpty = errors.New("list title cannot be empty")

	// ErrListTitleTooLong is returned when a list's title exceeds the maximum length.
	ErrListTitleTooLong = errors.New("list title must be at most 200 characters long")
)

// List represents a column on a board. Lists are ordered within their
// board by Position, a dense 0-based index rewritten on every reorder.
type List struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"board_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewList creates a new List on the given board.
// Position is assigned by the store on insert (appended at the end of the
// board). Returns an error if validation fails.
func NewList(boardID uuid.UUID, title string) (*List, error) {
	list := &List{
		ID:        uuid.New(),
		BoardID:   boardID,
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := list.Validate(); err != nil {
		return nil, err
	}

	return list, nil
}

// Validate checks if the List has valid data.
// Returns an error if any field fails validation.
func (l *List) Validate() error {
	if l.ID == uuid.Nil {
		return ErrListIDEmpty
	}

	if l.BoardID == uuid.Nil {
		return ErrListBoardIDEmpty
	}

	if l.Title == "" {
		return ErrListTitleEmpty
	}

	if len(l.Title) > MaxTitleLength {
		return ErrListTitleTooLong
	}

	return nil
}

// Rename updates the list's title and the UpdatedAt timestamp.
// Returns an error if the new title is invalid.
func (l *List) Rename(title string) error {
	origTitle := l.Title
	l.Title = strings.TrimSpace(title)

	if err := l.Validate(); err != nil {
		l.Title = origTitle
		return err
	}

	l.UpdatedAt = time.Now().UTC()
	return nil
}
