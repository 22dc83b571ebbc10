package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskListIDEmpty is returned when a task's list ID is empty or nil.
	ErrTaskListIDEmpty = errors.New("task list ID cannot be empty")

	// ErrTaskBoardIDEmpty is returned when a task's board ID is empty or nil.
	ErrTaskBoardIDEmpty = errors.New("task board ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task's title exceeds the maximum length.
	ErrTaskTitleTooLong = errors.New("task title must be at most 200 characters long")

	// ErrTaskDescriptionTooLong is returned when a task's description exceeds the maximum length.
	ErrTaskDescriptionTooLong = errors.New("task description must be at most 2000 characters long")
)

// MaxDescriptionLength is the maximum length of a task description.
const MaxDescriptionLength = 2000

// Task represents a work item in a list. Tasks carry their board ID in addition
// to their list ID so membership checks and event routing never need a
// second lookup. Ordering within a list follows the same dense Position
// scheme as lists within a board.
type Task struct {
	ID          uuid.UUID `json:"id"`
	BoardID     uuid.UUID `json:"board_id"`
	ListID      uuid.UUID `json:"list_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new Task in the given list.
// Position is assigned by the store on insert (appended at the end of the
// list). Returns an error if validation fails.
func NewTask(boardID, listID uuid.UUID, title, description string) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		BoardID:     boardID,
		ListID:      listID,
		Title:       strings.TrimSpace(title),
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.BoardID == uuid.Nil {
		return ErrTaskBoardIDEmpty
	}

	if t.ListID == uuid.Nil {
		return ErrTaskListIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if len(t.Title) > MaxTitleLength {
		return ErrTaskTitleTooLong
	}

	if len(t.Description) > MaxDescriptionLength {
		return ErrTaskDescriptionTooLong
	}

	return nil
}

// Update applies a new title and description and updates the UpdatedAt
// timestamp. Returns an error if the result is invalid.
func (t *Task) Update(title, description string) error {
	origTitle, origDescription := t.Title, t.Description
	t.Title = strings.TrimSpace(title)
	t.Description = description

	if err := t.Validate(); err != nil {
		t.Title, t.Description = origTitle, origDescription
		return err
	}

	t.UpdatedAt = time.Now().UTC()
	return nil
}
