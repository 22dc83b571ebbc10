package mocks

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	// Function fields for customizable behavior
	CreateFn       func(ctx context.Context, task *domain.Task) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListForListFn  func(ctx context.Context, listID uuid.UUID) ([]*domain.Task, error)
	ListForBoardFn func(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)
	UpdateFn       func(ctx context.Context, task *domain.Task) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) error
	ReorderFn      func(ctx context.Context, listID uuid.UUID, orderedIDs []uuid.UUID) error
	MoveFn         func(ctx context.Context, taskID, toListID uuid.UUID, position int) error

	// Data for default implementation
	Tasks map[uuid.UUID]*domain.Task
}

// NewMockTaskStore creates a new mock store with initialized defaults
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create implements the TaskStore interface. The default implementation
// appends the task at the end of its list, like the real store.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	task.Position = m.countForList(task.ListID)
	m.Tasks[task.ID] = task
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	task, exists := m.Tasks[id]
	if !exists {
		return nil, store.ErrTaskNotFound
	}

	return task, nil
}

// ListForList implements the TaskStore interface
func (m *MockTaskStore) ListForList(ctx context.Context, listID uuid.UUID) ([]*domain.Task, error) {
	if m.ListForListFn != nil {
		return m.ListForListFn(ctx, listID)
	}

	tasks := make([]*domain.Task, 0)
	for _, task := range m.Tasks {
		if task.ListID == listID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })

	return tasks, nil
}

// ListForBoard implements the TaskStore interface
func (m *MockTaskStore) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	if m.ListForBoardFn != nil {
		return m.ListForBoardFn(ctx, boardID)
	}

	tasks := make([]*domain.Task, 0)
	for _, task := range m.Tasks {
		if task.BoardID == boardID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].ListID != tasks[j].ListID {
			return tasks[i].ListID.String() < tasks[j].ListID.String()
		}
		return tasks[i].Position < tasks[j].Position
	})

	return tasks, nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}

	if _, exists := m.Tasks[task.ID]; !exists {
		return store.ErrTaskNotFound
	}

	m.Tasks[task.ID] = task
	return nil
}

// Delete implements the TaskStore interface. The default implementation
// compacts the positions of the remaining tasks in the list.
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	task, exists := m.Tasks[id]
	if !exists {
		return store.ErrTaskNotFound
	}

	delete(m.Tasks, id)
	for _, sibling := range m.Tasks {
		if sibling.ListID == task.ListID && sibling.Position > task.Position {
			sibling.Position--
		}
	}
	return nil
}

// Reorder implements the TaskStore interface
func (m *MockTaskStore) Reorder(ctx context.Context, listID uuid.UUID, orderedIDs []uuid.UUID) error {
	if m.ReorderFn != nil {
		return m.ReorderFn(ctx, listID, orderedIDs)
	}

	if len(orderedIDs) != m.countForList(listID) {
		return store.ErrTaskNotFound
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		task, exists := m.Tasks[id]
		if !exists || task.ListID != listID || seen[id] {
			return store.ErrTaskNotFound
		}
		seen[id] = true
	}
	for position, id := range orderedIDs {
		m.Tasks[id].Position = position
	}
	return nil
}

// Move implements the TaskStore interface. The default implementation
// re-homes the task and rewrites sibling positions in both lists, with the
// requested position clamped into the destination's valid range.
func (m *MockTaskStore) Move(ctx context.Context, taskID, toListID uuid.UUID, position int) error {
	if m.MoveFn != nil {
		return m.MoveFn(ctx, taskID, toListID, position)
	}

	task, exists := m.Tasks[taskID]
	if !exists {
		return store.ErrTaskNotFound
	}

	if task.ListID == toListID {
		max := m.countForList(toListID) - 1
		target := clamp(position, max)
		for _, sibling := range m.Tasks {
			if sibling.ListID != toListID || sibling.ID == taskID {
				continue
			}
			if task.Position < target && sibling.Position > task.Position && sibling.Position <= target {
				sibling.Position--
			} else if task.Position > target && sibling.Position >= target && sibling.Position < task.Position {
				sibling.Position++
			}
		}
		task.Position = target
		return nil
	}

	for _, sibling := range m.Tasks {
		if sibling.ListID == task.ListID && sibling.Position > task.Position {
			sibling.Position--
		}
	}
	target := clamp(position, m.countForList(toListID))
	for _, sibling := range m.Tasks {
		if sibling.ListID == toListID && sibling.Position >= target {
			sibling.Position++
		}
	}
	task.ListID = toListID
	task.Position = target
	return nil
}

// WithTx implements the TaskStore interface for transaction support
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	// For mock purposes, just return the same mock
	return m
}

func (m *MockTaskStore) countForList(listID uuid.UUID) int {
	count := 0
	for _, task := range m.Tasks {
		if task.ListID == listID {
			count++
		}
	}
	return count
}

func clamp(position, max int) int {
	if max < 0 {
		return 0
	}
	if position < 0 {
		return 0
	}
	if position > max {
		return max
	}
	return position
}
