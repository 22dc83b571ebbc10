package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quayside/taskhub-api/internal/store"
)

// Rejection reasons returned by Gate.Authorize. They are checked in a
// fixed order, so a malformed ID is always reported as invalid rather
// than missing, and a real board the caller cannot see is reported as
// forbidden rather than hidden.
var (
	// ErrInvalidBoardID means the supplied board ID is not a UUID.
	ErrInvalidBoardID = errors.New("invalid board id")

	// ErrBoardNotFound means no board exists with the supplied ID.
	ErrBoardNotFound = errors.New("board not found")

	// ErrForbidden means the board exists but the identity is neither its
	// owner nor a member.
	ErrForbidden = errors.New("not a member of this board")
)

// MembershipSource is the single lookup the gate performs. It is the
// board store's ACL read, kept narrow so tests can substitute membership
// state without a database.
type MembershipSource interface {
	GetACL(ctx context.Context, boardID uuid.UUID) (store.BoardACL, error)
}

// Gate decides whether an identity may join a board's room. Every
// decision reads the board's current owner and member set; nothing is
// cached, so revoking a membership takes effect on the very next join
// attempt.
type Gate struct {
	membership MembershipSource
	logger     *slog.Logger
}

// NewGate creates a gate backed by the given membership source.
func NewGate(membership MembershipSource, logger *slog.Logger) *Gate {
	return &Gate{
		membership: membership,
		logger:     logger.With(slog.String("component", "room_gate")),
	}
}

// Authorize checks a join request and returns the room the identity may
// enter. It fails with ErrInvalidBoardID, ErrBoardNotFound or ErrForbidden
// in that order of precedence; any other error means the membership lookup
// itself failed and the caller should treat the join as retryable.
func (g *Gate) Authorize(ctx context.Context, identity uuid.UUID, rawBoardID string) (RoomID, error) {
	boardID, err := uuid.Parse(rawBoardID)
	if err != nil {
		return "", ErrInvalidBoardID
	}
	return g.AuthorizeBoard(ctx, identity, boardID)
}

// AuthorizeBoard is Authorize for callers that already hold a parsed board
// ID. The REST handlers use it so board access over HTTP and room access
// over the socket answer to the same membership check.
func (g *Gate) AuthorizeBoard(ctx context.Context, identity uuid.UUID, boardID uuid.UUID) (RoomID, error) {
	acl, err := g.membership.GetACL(ctx, boardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return "", ErrBoardNotFound
		}
		g.logger.Error("membership lookup failed",
			slog.String("board_id", boardID.String()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("membership lookup: %w", err)
	}

	if !acl.Allows(identity) {
		return "", ErrForbidden
	}

	return RoomForBoard(boardID), nil
}
