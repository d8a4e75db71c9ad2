package domain

import "errors"

// Common domain errors
var (
	ErrNotInitialized          = errors.New("governor not initialized")
	ErrAlreadyDisposed         = errors.New("governor already disposed")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrConfigInvalid           = errors.New("invalid configuration")
)

// GovernorError wraps errors with additional context.
type GovernorError struct {
	Err     error
	Code    string
	Message string
}

func (e *GovernorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *GovernorError) Unwrap() error {
	return e.Err
}
