// Package apperr defines the failure kinds the domain services return.
// Handlers map kinds to HTTP statuses; nothing here is retried.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a user-visible failure.
type Kind int

const (
	// NotFound covers unknown students, batches, quizzes and tokens.
	NotFound Kind = iota + 1
	// Expired covers tokens past their expiry instant or marked inactive.
	Expired
	// AlreadyMarked is the duplicate-redemption outcome for (student, date).
	AlreadyMarked
	// AlreadyAttempted is the duplicate-submission outcome for (student, quiz).
	AlreadyAttempted
	// Validation covers malformed input, e.g. a quiz with no questions.
	Validation
	// Unauthorized is surfaced when a caller lacks the required role.
	Unauthorized
)

// Error carries a kind and a message safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or 0 when err is not an app error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is an app error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a failure kind to the response status used by the API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Expired, Validation:
		return http.StatusBadRequest
	case AlreadyMarked, AlreadyAttempted:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
