package errors

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeStoreUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeFeedUnavailable    = "FEED_UNAVAILABLE"
	ErrCodeInvalidFingerprint = "INVALID_FINGERPRINT"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// StoreUnavailable creates a store error. Engines catch this at their boundary
// and convert it to their fail-open or fail-closed outcome; it reaches callers
// only on paths with no such policy (admin CRUD).
func StoreUnavailable(message string, err error) *AppError {
	return Wrap(err, ErrCodeStoreUnavailable, message, http.StatusServiceUnavailable)
}

// FeedUnavailable creates a threat feed error
func FeedUnavailable(feed string, err error) *AppError {
	return Wrap(err, ErrCodeFeedUnavailable,
		fmt.Sprintf("threat feed %s unavailable", feed),
		http.StatusBadGateway)
}

// InvalidFingerprint creates a fingerprint validation error
func InvalidFingerprint(message string) *AppError {
	return New(ErrCodeInvalidFingerprint, message, http.StatusBadRequest)
}

// InvalidSignature creates a request signature error
func InvalidSignature(message string) *AppError {
	return New(ErrCodeInvalidSignature, message, http.StatusUnauthorized)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// SessionNotFound creates a session lookup error
func SessionNotFound() *AppError {
	return New(ErrCodeSessionNotFound, "session not found", http.StatusNotFound)
}

// SessionExpired creates a session expiry error
func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "session expired", http.StatusUnauthorized)
}

// Configuration creates a configuration error (missing secret or signing key)
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message, http.StatusInternalServerError)
}
