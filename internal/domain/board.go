package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Board-specific validation errors
var (
	// ErrBoardIDEmpty is returned when a board ID is empty or nil.
	ErrBoardIDEmpty = errors.New("board ID cannot be empty")

	// ErrBoardOwnerEmpty is returned when a board's owner ID is empty or nil.
	ErrBoardOwnerEmpty = errors.New("board owner ID cannot be empty")

	// ErrBoardTitleEmpty is returned when a board's title is empty.
	ErrBoardTitleEmpty = errors.New("board title cannot be empty")

	// ErrBoardTitleTooLong is returned when a board's title exceeds the maximum length.
	ErrBoardTitleTooLong = errors.New("board title must be at most 200 characters long")
)

// MaxTitleLength is the maximum length of board, list, and task titles.
const MaxTitleLength = 200

// Board represents a task board owned by a user and shared with zero or
// more members. The owner is not repeated in MemberIDs.
type Board struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	MemberIDs []uuid.UUID `json:"member_ids"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewBoard creates a new Board with the given owner and title.
// It generates a new UUID for the board ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewBoard(ownerID uuid.UUID, title string) (*Board, error) {
	board := &Board{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(title),
		OwnerID:   ownerID,
		MemberIDs: []uuid.UUID{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := board.Validate(); err != nil {
		return nil, err
	}

	return board, nil
}

// Validate checks if the Board has valid data.
// Returns an error if any field fails validation.
func (b *Board) Validate() error {
	if b.ID == uuid.Nil {
		return ErrBoardIDEmpty
	}

	if b.OwnerID == uuid.Nil {
		return ErrBoardOwnerEmpty
	}

	if b.Title == "" {
		return ErrBoardTitleEmpty
	}

	if len(b.Title) > MaxTitleLength {
		return ErrBoardTitleTooLong
	}

	return nil
}

// Rename updates the board's title and the UpdatedAt timestamp.
// Returns an error if the new title is invalid.
func (b *Board) Rename(title string) error {
	origTitle := b.Title
	b.Title = strings.TrimSpace(title)

	if err := b.Validate(); err != nil {
		b.Title = origTitle
		return err
	}

	b.UpdatedAt = time.Now().UTC()
	return nil
}

// CanAccess reports whether the given user is the board's owner or a member.
func (b *Board) CanAccess(userID uuid.UUID) bool {
	return b.OwnerID == userID || lo.Contains(b.MemberIDs, userID)
}
