package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures the way the UI reacts to them.
type ErrorKind string

const (
	// KindValidation is rejected before any network call and shown inline.
	KindValidation ErrorKind = "validation"
	// KindNetwork covers transport and API failures; shown as a transient toast.
	KindNetwork ErrorKind = "network"
	// KindTransition is an action the booking's current state does not allow.
	KindTransition ErrorKind = "transition"
	// KindCounterpartyDeleted means the other participant's account was removed.
	KindCounterpartyDeleted ErrorKind = "counterparty_deleted"
	// KindIntegrity is a data-integrity anomaly that self-healing could not fix.
	KindIntegrity ErrorKind = "integrity"
	// KindNotFound is a missing booking, conversation or message.
	KindNotFound ErrorKind = "not_found"
	// KindForbidden is a caller acting on a booking or conversation it is not part of.
	KindForbidden ErrorKind = "forbidden"
)

// AppError carries a kind, a stable code and a user-facing message.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on kind and code so sentinel AppErrors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func NewAppError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func WrapAppError(err error, kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

func NewValidationError(code, message string) *AppError {
	return NewAppError(KindValidation, code, message)
}

// KindOf reports the kind of err, defaulting to KindNetwork for foreign errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindNetwork
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error kind onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindTransition:
		return http.StatusConflict
	case KindCounterpartyDeleted:
		return http.StatusGone
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
