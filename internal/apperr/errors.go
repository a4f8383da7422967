// Package apperr defines the error taxonomy shared by every layer. Services
// return these values (possibly wrapped) and handlers translate them into
// HTTP responses with a single mapping function.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks rights over a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when no valid identity accompanies a call
	// that requires one, or when a credential or code does not verify.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedInput is returned for payloads that cannot be parsed, such
	// as a check-in token with no ID field.
	ErrMalformedInput = errors.New("malformed input")

	// ErrConflict is returned when a write collides with existing state, for
	// example a duplicate round number.
	ErrConflict = errors.New("conflict")
)

// Reason identifies why a ValidationError was raised. Values are stable and
// are returned to clients in the "reason" field.
type Reason string

const (
	RegistrationClosed Reason = "registration_closed"
	EventFull          Reason = "event_full"
	TeamNameRequired   Reason = "team_name_required"
	TeamSizeOutOfRange Reason = "team_size_out_of_range"
	UnknownCustomField Reason = "unknown_custom_field"
	MissingField       Reason = "missing_field"
	InvalidRound       Reason = "invalid_round"
	InvalidRank        Reason = "invalid_rank"
	InvalidRating      Reason = "invalid_rating"
	InvalidInput       Reason = "invalid_input"
)

// ValidationError reports rejected input. The caller can always recover by
// correcting the request.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Validation builds a *ValidationError with a formatted detail message.
func Validation(reason Reason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the reason of the first ValidationError in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}

// HasReason reports whether err carries a ValidationError with reason r.
func HasReason(err error, r Reason) bool {
	got, ok := ReasonOf(err)
	return ok && got == r
}
