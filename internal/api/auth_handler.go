package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/platform/logger"
	"github.com/quayside/taskhub-api/internal/service/auth"
	"github.com/quayside/taskhub-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	accessTokenTTL   time.Duration
	validator        *validator.Validate
	timeNow          func() time.Time
	logger           *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
// accessTokenTTL is only used to report expiry to clients; the JWT service
// applies the authoritative lifetime when signing.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	accessTokenTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}

	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		accessTokenTTL:   accessTokenTTL,
		validator:        validator.New(),
		timeNow:          time.Now,
		logger:           logger.With(slog.String("component", "auth_handler")),
	}
}

// WithTimeFunc replaces the handler's clock. Tests use it to pin token
// expiry timestamps.
func (h *AuthHandler) WithTimeFunc(fn func() time.Time) *AuthHandler {
	h.timeNow = fn
	return h
}

// tokenPair bundles the values every successful authentication returns.
type tokenPair struct {
	accessToken  string
	refreshToken string
	expiresAt    string
}

// generateTokenPair creates an access and refresh token for the user along
// with the access token's expiry timestamp.
func (h *AuthHandler) generateTokenPair(r *http.Request, userID uuid.UUID) (tokenPair, error) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		return tokenPair{}, err
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		return tokenPair{}, err
	}

	return tokenPair{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    h.timeNow().UTC().Add(h.accessTokenTTL).Format(time.RFC3339),
	}, nil
}

// Register godoc
// @Summary Register a user
// @Description Creates an account and returns an access and refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 409 {object} shared.ErrorResponse
// @Failure 500 {object} shared.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	user, err := domain.NewUser(req.Email, req.Password)
	if err != nil {
		// Domain validation messages are written for users, so they can go
		// out verbatim.
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user data: "+err.Error())
		return
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	pair, err := h.generateTokenPair(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	log.Debug("user registered", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		UserID:       user.ID,
		AccessToken:  pair.accessToken,
		RefreshToken: pair.refreshToken,
		ExpiresAt:    pair.expiresAt,
	})
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials and returns an access and refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 500 {object} shared.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// An unknown email answers the same as a wrong password so the
		// endpoint cannot be used to probe which addresses are registered.
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	pair, err := h.generateTokenPair(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	log.Debug("user logged in", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:       user.ID,
		AccessToken:  pair.accessToken,
		RefreshToken: pair.refreshToken,
		ExpiresAt:    pair.expiresAt,
	})
}

// RefreshToken godoc
// @Summary Refresh tokens
// @Description Exchanges a valid refresh token for a fresh access and refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "Refresh token"
// @Success 200 {object} RefreshTokenResponse
// @Failure 400 {object} shared.ErrorResponse
// @Failure 401 {object} shared.ErrorResponse
// @Failure 500 {object} shared.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to validate refresh token")
		return
	}

	pair, err := h.generateTokenPair(r, claims.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	log.Debug("token refreshed", slog.String("user_id", claims.UserID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  pair.accessToken,
		RefreshToken: pair.refreshToken,
		ExpiresAt:    pair.expiresAt,
	})
}
