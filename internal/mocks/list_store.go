package mocks

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/store"
)

// MockListStore implements store.ListStore for testing
type MockListStore struct {
	// Function fields for customizable behavior
	CreateFn       func(ctx context.Context, list *domain.List) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.List, error)
	ListForBoardFn func(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error)
	UpdateFn       func(ctx context.Context, list *domain.List) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) error
	ReorderFn      func(ctx context.Context, boardID uuid.UUID, orderedIDs []uuid.UUID) error

	// Data for default implementation
	Lists map[uuid.UUID]*domain.List
}

// NewMockListStore creates a new mock store with initialized defaults
func NewMockListStore() *MockListStore {
	return &MockListStore{
		Lists: make(map[uuid.UUID]*domain.List),
	}
}

// Create implements the ListStore interface. The default implementation
// appends the list at the end of its board, like the real store.
func (m *MockListStore) Create(ctx context.Context, list *domain.List) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, list)
	}

	list.Position = m.countForBoard(list.BoardID)
	m.Lists[list.ID] = list
	return nil
}

// GetByID implements the ListStore interface
func (m *MockListStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	list, exists := m.Lists[id]
	if !exists {
		return nil, store.ErrListNotFound
	}

	return list, nil
}

// ListForBoard implements the ListStore interface
func (m *MockListStore) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	if m.ListForBoardFn != nil {
		return m.ListForBoardFn(ctx, boardID)
	}

	lists := make([]*domain.List, 0)
	for _, list := range m.Lists {
		if list.BoardID == boardID {
			lists = append(lists, list)
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })

	return lists, nil
}

// Update implements the ListStore interface
func (m *MockListStore) Update(ctx context.Context, list *domain.List) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, list)
	}

	if _, exists := m.Lists[list.ID]; !exists {
		return store.ErrListNotFound
	}

	m.Lists[list.ID] = list
	return nil
}

// Delete implements the ListStore interface. The default implementation
// compacts the positions of the remaining lists on the board.
func (m *MockListStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	list, exists := m.Lists[id]
	if !exists {
		return store.ErrListNotFound
	}

	delete(m.Lists, id)
	for _, sibling := range m.Lists {
		if sibling.BoardID == list.BoardID && sibling.Position > list.Position {
			sibling.Position--
		}
	}
	return nil
}

// Reorder implements the ListStore interface
func (m *MockListStore) Reorder(ctx context.Context, boardID uuid.UUID, orderedIDs []uuid.UUID) error {
	if m.ReorderFn != nil {
		return m.ReorderFn(ctx, boardID, orderedIDs)
	}

	if len(orderedIDs) != m.countForBoard(boardID) {
		return store.ErrListNotFound
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		list, exists := m.Lists[id]
		if !exists || list.BoardID != boardID || seen[id] {
			return store.ErrListNotFound
		}
		seen[id] = true
	}
	for position, id := range orderedIDs {
		m.Lists[id].Position = position
	}
	return nil
}

// WithTx implements the ListStore interface for transaction support
func (m *MockListStore) WithTx(tx *sql.Tx) store.ListStore {
	// For mock purposes, just return the same mock
	return m
}

func (m *MockListStore) countForBoard(boardID uuid.UUID) int {
	count := 0
	for _, list := range m.Lists {
		if list.BoardID == boardID {
			count++
		}
	}
	return count
}
