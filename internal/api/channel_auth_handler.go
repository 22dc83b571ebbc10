package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/realtime"
)

// channelPrefix scopes signable channels to board rooms. Anything outside
// it is rejected before the gate is consulted.
const channelPrefix = "private-board-"

// ChannelAuthRequest represents the request body for authorizing a channel
// subscription
type ChannelAuthRequest struct {
	SocketID    string `json:"socket_id"    validate:"required"`
	ChannelName string `json:"channel_name" validate:"required"`
}

// ChannelAuthResponse carries the signed grant for an authorized
// (connection, channel) pair
type ChannelAuthResponse struct {
	Auth string `json:"auth"`
}

// ChannelAuthHandler issues signed subscription grants for transports that
// authorize out-of-band instead of joining in-band. The membership check is
// the same gate the socket join path uses; only the answer's shape differs.
type ChannelAuthHandler struct {
	gate          *realtime.Gate
	channelKey    string
	channelSecret string
	logger        *slog.Logger
}

// NewChannelAuthHandler creates a new ChannelAuthHandler. channelKey is the
// public key identifier embedded in grants; channelSecret signs them.
func NewChannelAuthHandler(
	gate *realtime.Gate,
	channelKey string,
	channelSecret string,
	logger *slog.Logger,
) *ChannelAuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ChannelAuthHandler")
	}

	return &ChannelAuthHandler{
		gate:          gate,
		channelKey:    channelKey,
		channelSecret: channelSecret,
		logger:        logger.With(slog.String("component", "channel_auth_handler")),
	}
}

// Authorize godoc
// @Summary Authorize a realtime channel subscription
// @Description Signs a grant for one (socket, channel) pair after re-checking board membership. Clients must request a fresh grant per channel.
// @Tags realtime
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChannelAuthRequest true "Socket and channel"
// @Success 200 {object} ChannelAuthResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 403 {object} shared.ErrorResponse
// @Failure 404 {object} shared.ErrorResponse
// @Router /realtime/auth [post]
func (h *ChannelAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserIDFromContext(w, r, log)
	if !ok {
		return
	}

	var req ChannelAuthRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	rawBoardID, found := strings.CutPrefix(req.ChannelName, channelPrefix)
	if !found {
		log.Debug("channel name outside the board namespace",
			slog.String("channel_name", req.ChannelName))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid channel name")
		return
	}

	if _, err := h.gate.Authorize(r.Context(), userID, rawBoardID); err != nil {
		HandleAPIError(w, r, err, "Failed to authorize channel")
		return
	}

	mac := hmac.New(sha256.New, []byte(h.channelSecret))
	mac.Write([]byte(req.SocketID + ":" + req.ChannelName))
	signature := hex.EncodeToString(mac.Sum(nil))

	log.Debug("channel subscription authorized",
		slog.String("user_id", userID.String()),
		slog.String("channel_name", req.ChannelName))
	shared.RespondWithJSON(w, r, http.StatusOK, ChannelAuthResponse{
		Auth: h.channelKey + ":" + signature,
	})
}
