package mocks

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/store"
)

// MockBoardStore implements store.BoardStore for testing
type MockBoardStore struct {
	// Function fields for customizable behavior
	CreateFn       func(ctx context.Context, board *domain.Board) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	ListForUserFn  func(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	UpdateFn       func(ctx context.Context, board *domain.Board) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) error
	AddMemberFn    func(ctx context.Context, boardID, userID uuid.UUID) error
	RemoveMemberFn func(ctx context.Context, boardID, userID uuid.UUID) error
	GetACLFn       func(ctx context.Context, boardID uuid.UUID) (store.BoardACL, error)

	// Data for default implementation
	Boards map[uuid.UUID]*domain.Board
}

// NewMockBoardStore creates a new mock store with initialized defaults
func NewMockBoardStore() *MockBoardStore {
	return &MockBoardStore{
		Boards: make(map[uuid.UUID]*domain.Board),
	}
}

// Create implements the BoardStore interface
func (m *MockBoardStore) Create(ctx context.Context, board *domain.Board) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, board)
	}

	m.Boards[board.ID] = board
	return nil
}

// GetByID implements the BoardStore interface
func (m *MockBoardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	board, exists := m.Boards[id]
	if !exists {
		return nil, store.ErrBoardNotFound
	}

	return board, nil
}

// ListForUser implements the BoardStore interface
func (m *MockBoardStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	if m.ListForUserFn != nil {
		return m.ListForUserFn(ctx, userID)
	}

	boards := make([]*domain.Board, 0)
	for _, board := range m.Boards {
		if board.OwnerID == userID || lo.Contains(board.MemberIDs, userID) {
			boards = append(boards, board)
		}
	}
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].CreatedAt.Before(boards[j].CreatedAt)
	})

	return boards, nil
}

// Update implements the BoardStore interface
func (m *MockBoardStore) Update(ctx context.Context, board *domain.Board) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, board)
	}

	if _, exists := m.Boards[board.ID]; !exists {
		return store.ErrBoardNotFound
	}

	m.Boards[board.ID] = board
	return nil
}

// Delete implements the BoardStore interface
func (m *MockBoardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	if _, exists := m.Boards[id]; !exists {
		return store.ErrBoardNotFound
	}

	delete(m.Boards, id)
	return nil
}

// AddMember implements the BoardStore interface
func (m *MockBoardStore) AddMember(ctx context.Context, boardID, userID uuid.UUID) error {
	if m.AddMemberFn != nil {
		return m.AddMemberFn(ctx, boardID, userID)
	}

	board, exists := m.Boards[boardID]
	if !exists {
		return store.ErrBoardNotFound
	}
	if lo.Contains(board.MemberIDs, userID) {
		return store.ErrMemberExists
	}

	board.MemberIDs = append(board.MemberIDs, userID)
	return nil
}

// RemoveMember implements the BoardStore interface
func (m *MockBoardStore) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	if m.RemoveMemberFn != nil {
		return m.RemoveMemberFn(ctx, boardID, userID)
	}

	board, exists := m.Boards[boardID]
	if !exists {
		return store.ErrMemberNotFound
	}
	if !lo.Contains(board.MemberIDs, userID) {
		return store.ErrMemberNotFound
	}

	board.MemberIDs = lo.Without(board.MemberIDs, userID)
	return nil
}

// GetACL implements the BoardStore interface
func (m *MockBoardStore) GetACL(ctx context.Context, boardID uuid.UUID) (store.BoardACL, error) {
	if m.GetACLFn != nil {
		return m.GetACLFn(ctx, boardID)
	}

	board, exists := m.Boards[boardID]
	if !exists {
		return store.BoardACL{}, store.ErrBoardNotFound
	}

	return store.BoardACL{OwnerID: board.OwnerID, MemberIDs: board.MemberIDs}, nil
}

// WithTx implements the BoardStore interface for transaction support
func (m *MockBoardStore) WithTx(tx *sql.Tx) store.BoardStore {
	// For mock purposes, just return the same mock
	return m
}
