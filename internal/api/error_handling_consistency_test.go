package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/realtime"
	"github.com/quayside/taskhub-api/internal/service/auth"
	"github.com/quayside/taskhub-api/internal/store"
)

// TestErrorHandlingConsistency verifies that all handlers handle errors
// consistently by using the centralized error handling functions.
func TestErrorHandlingConsistency(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		defaultMsg       string
		expectedStatus   int
		expectedMessage  string
		expectDefaultMsg bool
	}{
		// Authentication errors
		{
			name:            "invalid token",
			err:             auth.ErrInvalidToken,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
		{
			name:            "expired refresh token",
			err:             auth.ErrExpiredRefreshToken,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid refresh token",
		},
		{
			name:            "missing user identity",
			err:             domain.ErrUnauthorized,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Authentication required",
		},
		// Authorization errors
		{
			name:            "not a board member",
			err:             realtime.ErrForbidden,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "Not a member of this board",
		},
		// Not found errors
		{
			name:            "user not found",
			err:             store.ErrUserNotFound,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "User not found",
		},
		{
			name:            "board not found via gate",
			err:             realtime.ErrBoardNotFound,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Board not found",
		},
		{
			name:            "wrapped task not found",
			err:             fmt.Errorf("get task: %w", store.ErrTaskNotFound),
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Task not found",
		},
		// Conflict errors
		{
			name:            "duplicate member",
			err:             store.ErrMemberExists,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusConflict,
			expectedMessage: "User is already a member of this board",
		},
		{
			name:            "duplicate email",
			err:             store.ErrEmailExists,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Email already exists",
		},
		// Validation errors
		{
			name:            "invalid board id",
			err:             realtime.ErrInvalidBoardID,
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid board id",
		},
		{
			name: "field validation error",
			err: domain.NewValidationError(
				"email",
				"must be a valid format",
				nil,
			),
			defaultMsg:      "Custom default message",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid email: must be a valid format",
		},
		// Server errors
		{
			name:             "unexpected error",
			err:              errors.New("database connection error"),
			defaultMsg:       "Friendly server error message",
			expectedStatus:   http.StatusInternalServerError,
			expectedMessage:  "Friendly server error message",
			expectDefaultMsg: true,
		},
		{
			name:            "unexpected error without default",
			err:             errors.New("database connection error"),
			defaultMsg:      "",
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			HandleAPIError(rr, req, tc.err, tc.defaultMsg)

			assert.Equal(t, tc.expectedStatus, rr.Code, "Wrong status code for HandleAPIError")
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			require.NoError(t, err, "Failed to decode response")

			errorMsg, ok := response["error"].(string)
			require.True(t, ok, "Error field missing in response")

			if tc.expectDefaultMsg {
				assert.Equal(t, tc.defaultMsg, errorMsg, "Wrong error message for HandleAPIError")
			} else {
				assert.Equal(t, tc.expectedMessage, errorMsg, "Wrong error message for HandleAPIError")
			}
		})
	}
}

// TestValidationErrorConsistency verifies that validation errors are handled
// consistently across handlers.
func TestValidationErrorConsistency(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name: "domain validation error",
			err: domain.NewValidationError(
				"username",
				"must be at least 3 characters",
				nil,
			),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid username: must be at least 3 characters",
		},
		{
			name:            "validator missing required field",
			err:             validate.Struct(LoginRequest{Password: "secret"}),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid Email: required field",
		},
		{
			name:            "validator bad email format",
			err:             validate.Struct(LoginRequest{Email: "not-an-email", Password: "secret"}),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid Email: invalid email format",
		},
		{
			name:            "opaque error falls back to generic message",
			err:             errors.New("validation exploded somewhere deep"),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Validation error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			HandleValidationError(rr, req, tc.err)

			assert.Equal(t, tc.expectedStatus, rr.Code, "Wrong status code for HandleValidationError")

			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			require.NoError(t, err, "Failed to decode response")

			errorMsg, ok := response["error"].(string)
			require.True(t, ok, "Error field missing in response")
			assert.Equal(t, tc.expectedMessage, errorMsg, "Wrong error message for HandleValidationError")
		})
	}
}

// TestWrappedErrorsKeepTheirStatus verifies that wrapping with %w preserves
// classification while string concatenation does not.
func TestWrappedErrorsKeepTheirStatus(t *testing.T) {
	properlyWrapped := fmt.Errorf("authorize room join: %w", realtime.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, MapErrorToStatusCode(properlyWrapped))
	assert.Equal(t, "Not a member of this board", GetSafeErrorMessage(properlyWrapped))

	nested := fmt.Errorf("handler: %w", fmt.Errorf("membership lookup: %w", realtime.ErrBoardNotFound))
	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(nested))

	concatenated := errors.New("authorize room join: " + realtime.ErrForbidden.Error())
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(concatenated),
		"String concatenated errors lose their classification")
}
