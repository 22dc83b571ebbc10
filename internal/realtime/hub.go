package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/events"
	"github.com/quayside/taskhub-api/internal/service/auth"
)

// TokenValidator is the slice of the auth service the hub needs to verify
// credentials before upgrading a connection.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// Hub owns every live WebSocket connection on this instance. It accepts
// and authenticates connections, routes their join and leave requests
// through the gate, and implements events.Broadcaster by fanning each
// event out to the room derived from its board.
type Hub struct {
	registry *Registry
	gate     *Gate
	tokens   TokenValidator
	logger   *slog.Logger
	upgrader websocket.Upgrader
	bridge   *Bridge

	// emitMu serializes fan-out so frames reach a room's connections in
	// the order Emit was called, even when mutations overlap.
	emitMu sync.Mutex

	mu      sync.Mutex
	clients map[ConnID]*client
	closed  bool
}

// Interface guard: the hub is the broadcaster handlers emit through.
var _ events.Broadcaster = (*Hub)(nil)

// NewHub creates a hub. The registry is injected rather than constructed
// so callers (and tests) can observe room state directly.
func NewHub(registry *Registry, gate *Gate, tokens TokenValidator, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		gate:     gate,
		tokens:   tokens,
		logger:   logger.With(slog.String("component", "realtime_hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from a different origin than the
			// API; origin policy is enforced at the edge, not here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[ConnID]*client),
	}
}

// AttachBridge connects the hub to a cross-instance event bridge. Must be
// called before Run.
func (h *Hub) AttachBridge(bridge *Bridge) {
	h.bridge = bridge
}

// Run blocks until ctx is canceled, consuming bridge traffic when a
// bridge is attached. On shutdown every connection is closed and the
// registry drained.
func (h *Hub) Run(ctx context.Context) {
	if h.bridge != nil {
		h.bridge.Run(ctx, h.deliver)
	} else {
		<-ctx.Done()
	}
	h.closeAll()
}

// HandleWS upgrades an authenticated request to a WebSocket connection.
// Credentials are verified before the upgrade, so a bad token costs a
// plain 401 and never creates connection state. Browsers cannot set an
// Authorization header on a WebSocket dial, so the token may also travel
// in a query parameter.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication token required")
		return
	}
	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, claims.UserID)
	if err := h.addClient(c); err != nil {
		h.logger.Warn("rejecting connection", slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// bearerToken extracts the credential from the Authorization header or,
// failing that, the token query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// errHubClosed rejects connections that race the hub's shutdown.
var errHubClosed = errors.New("hub is shut down")

func (h *Hub) addClient(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errHubClosed
	}
	if err := h.registry.Register(c.id, c.identity, c); err != nil {
		return err
	}
	h.clients[c.id] = c
	h.logger.Debug("connection opened",
		slog.String("conn_id", string(c.id)),
		slog.String("user_id", c.identity.String()),
		slog.Int("connections", len(h.clients)))
	return nil
}

// dropClient removes a connection from the hub and the registry, then
// tears the socket down. Safe to call more than once; the read pump calls
// it on every exit path and shutdown calls it for every survivor.
func (h *Hub) dropClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		h.registry.Unregister(c.id)
		h.logger.Debug("connection closed",
			slog.String("conn_id", string(c.id)),
			slog.Int("connections", len(h.clients)))
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	remaining := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		remaining = append(remaining, c)
	}
	h.mu.Unlock()

	for _, c := range remaining {
		h.dropClient(c)
	}
	if len(remaining) > 0 {
		h.logger.Info("closed all connections", slog.Int("count", len(remaining)))
	}
}

// handleMessage dispatches one inbound frame. Malformed or unknown frames
// earn an error frame; the connection always stays open.
func (h *Hub) handleMessage(ctx context.Context, c *client, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "", "Malformed request")
		return
	}

	switch msg.Action {
	case actionJoin:
		h.handleJoin(ctx, c, msg.BoardID)
	case actionLeave:
		h.handleLeave(c, msg.BoardID)
	default:
		h.sendError(c, msg.BoardID, "Unknown action")
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *client, rawBoardID string) {
	room, err := h.gate.Authorize(ctx, c.identity, rawBoardID)
	if err != nil {
		if reason, rejected := rejectionMessage(err); rejected {
			c.logger.Debug("join rejected",
				slog.String("board_id", rawBoardID),
				slog.String("reason", reason))
			h.sendError(c, rawBoardID, reason)
			return
		}
		h.sendError(c, rawBoardID, "Unable to join board")
		return
	}

	if !h.registry.JoinRoom(c.id, room) {
		// The connection dropped while authorization was in flight; the
		// registry already forgot it, so there is nothing to join.
		return
	}
	c.logger.Debug("joined room", slog.String("room", string(room)))
	h.sendControl(c, eventJoined, rawBoardID)
}

// handleLeave detaches the connection from a board's room. No membership
// check: leaving only needs a well-formed ID, and must keep working after
// the caller's membership is revoked.
func (h *Hub) handleLeave(c *client, rawBoardID string) {
	boardID, err := uuid.Parse(rawBoardID)
	if err != nil {
		h.sendError(c, rawBoardID, "Invalid board id")
		return
	}
	h.registry.LeaveRoom(c.id, RoomForBoard(boardID))
	h.sendControl(c, eventLeft, rawBoardID)
}

// rejectionMessage maps gate rejections to client-facing text. The second
// return is false for infrastructure errors, which must not leak.
func rejectionMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidBoardID):
		return "Invalid board id", true
	case errors.Is(err, ErrBoardNotFound):
		return "Board not found", true
	case errors.Is(err, ErrForbidden):
		return "Not a member of this board", true
	default:
		return "", false
	}
}

func (h *Hub) sendControl(c *client, event, boardID string) {
	h.sendFrame(c, serverMessage{Event: event, BoardID: boardID})
}

func (h *Hub) sendError(c *client, boardID, message string) {
	h.sendFrame(c, serverMessage{Event: eventError, BoardID: boardID, Message: message})
}

func (h *Hub) sendFrame(c *client, msg serverMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal frame", slog.String("error", err.Error()))
		return
	}
	if !c.Push(frame) {
		c.logger.Warn("dropped frame for slow connection", slog.String("event", msg.Event))
	}
}

// Emit implements events.Broadcaster. Delivery is synchronous: the frame
// is on every subscribed connection's send buffer before Emit returns,
// and frames for the same room always arrive in emit order. Emit never
// reports failure; a connection whose buffer is full misses the frame
// rather than stalling the mutation that produced it.
func (h *Hub) Emit(ctx context.Context, event events.Event) {
	h.deliver(event)
	if h.bridge != nil {
		h.bridge.Publish(ctx, event)
	}
}

// deliver fans one event out to the local connections subscribed to its
// board's room. Also the entry point for events arriving over the bridge.
func (h *Hub) deliver(event events.Event) {
	frame, err := json.Marshal(serverMessage{
		Event:   string(event.Kind),
		BoardID: event.BoardID.String(),
		Payload: event.Payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal event frame",
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()))
		return
	}

	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	room := RoomForBoard(event.BoardID)
	sinks := h.registry.SinksFor(room)
	if len(sinks) == 0 {
		return
	}

	dropped := 0
	for _, sink := range sinks {
		if !sink.Push(frame) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped event frames for slow connections",
			slog.String("kind", string(event.Kind)),
			slog.String("room", string(room)),
			slog.Int("dropped", dropped))
	}
}
