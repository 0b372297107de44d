package domain

import "errors"

// Sentinel errors for the messaging session layer. Handlers map these to
// error-event codes; anything unrecognised is reported as internal.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidToken           = errors.New("invalid token")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrFeatureUnavailable     = errors.New("feature unavailable")
	ErrStoreUnavailable       = errors.New("store unavailable")
)

// Error codes sent to clients on the error event.
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidToken           = "INVALID_TOKEN"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeFeatureUnavailable     = "FEATURE_UNAVAILABLE"
	ErrCodeStoreUnavailable       = "STORE_UNAVAILABLE"
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// ErrorCode maps an error to its client-facing code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return ErrCodeAuthenticationRequired
	case errors.Is(err, ErrInvalidToken):
		return ErrCodeInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, ErrFeatureUnavailable):
		return ErrCodeFeatureUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return ErrCodeStoreUnavailable
	default:
		return ErrCodeInternal
	}
}
