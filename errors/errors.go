package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest        = fmt.Errorf("invalid request")
	ErrIdentityAlreadyLinked = fmt.Errorf("identity already linked")
	ErrNotFound              = fmt.Errorf("not found")
	ErrUpstreamAuthFailure   = fmt.Errorf("upstream auth failure")
	ErrStorageFailure        = fmt.Errorf("storage failure")

	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrSendBufferFull   = fmt.Errorf("send buffer full")
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrUnknownStore     = fmt.Errorf("unknown store backend")
	ErrInvalidDocument  = fmt.Errorf("invalid stored document")
)

// IdentityConflictError reports the address already holding an identity.
type IdentityConflictError struct {
	Identity        string
	ExistingAddress string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("%s: %q is linked to %s", ErrIdentityAlreadyLinked, e.Identity, e.ExistingAddress)
}

func (e *IdentityConflictError) Unwrap() error {
	return ErrIdentityAlreadyLinked
}

// ExistingAddress extracts the conflicting address from err, if any.
func ExistingAddress(err error) (string, bool) {
	var conflict *IdentityConflictError
	if errors.As(err, &conflict) {
		return conflict.ExistingAddress, true
	}
	return "", false
}

// HTTPStatus maps the error taxonomy to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrIdentityAlreadyLinked):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable name of err sent in error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, ErrIdentityAlreadyLinked):
		return "IdentityAlreadyLinked"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUpstreamAuthFailure):
		return "UpstreamAuthFailure"
	case errors.Is(err, ErrStorageFailure):
		return "StorageFailure"
	default:
		return "Internal"
	}
}
