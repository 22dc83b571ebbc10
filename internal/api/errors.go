package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quayside/taskhub-api/internal/api/shared"
	"github.com/quayside/taskhub-api/internal/domain"
	"github.com/quayside/taskhub-api/internal/realtime"
	"github.com/quayside/taskhub-api/internal/service/auth"
	"github.com/quayside/taskhub-api/internal/store"
)

// genericErrorMessage is what clients see when an error carries no safe,
// more specific message.
const genericErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, realtime.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err),
		errors.Is(err, realtime.ErrBoardNotFound):
		return http.StatusNotFound

	// Conflict errors
	case store.IsDuplicateError(err):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, realtime.ErrInvalidBoardID),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return genericErrorMessage
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return formatValidationError(validationErr)
	}

	// Map specific error types to user-friendly messages
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authentication token required"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	// Authorization errors
	case errors.Is(err, realtime.ErrForbidden):
		return "Not a member of this board"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrBoardNotFound),
		errors.Is(err, realtime.ErrBoardNotFound):
		return "Board not found"

	case errors.Is(err, store.ErrListNotFound):
		return "List not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrMemberNotFound):
		return "User is not a member of this board"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrMemberExists):
		return "User is already a member of this board"

	// Bad request errors
	case errors.Is(err, realtime.ErrInvalidBoardID):
		return "Invalid board id"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid id format"

	// Default case for unknown errors
	default:
		// Store errors carry a short, safe description of the operation
		// that failed; surface that rather than nothing.
		var storeErr *store.StoreError
		if errors.As(err, &storeErr) {
			return "Operation failed: " + storeErr.Message
		}
		return genericErrorMessage
	}
}

// HandleAPIError writes the response for a failed operation: the error is
// classified into a status code and a safe client message, and the raw error
// is logged (redacted) with the request's trace id. defaultMessage replaces
// the client message only when the error has no specific safe message of its
// own; it is never shown for classified errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMessage string) {
	status := MapErrorToStatusCode(err)

	message := GetSafeErrorMessage(err)
	if message == genericErrorMessage && defaultMessage != "" {
		message = defaultMessage
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// HandleValidationError writes a 400 response for a failed request DTO
// validation, with the validator details reduced to a safe message.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	if err == nil {
		return "Validation error"
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return formatValidationError(validationErr)
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// formatValidationError renders a domain validation error for clients.
// Field and message are authored by our own code, never echoed input.
func formatValidationError(ve *domain.ValidationError) string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid id format"
	default:
		return "validation failed"
	}
}
