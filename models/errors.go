package models

import "errors"

var (
	// ErrUnauthorized is returned when the caller could not be identified as an administrator
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden is returned when the caller fails the origin or nonce check
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrQuery is returned when the content store fails
	ErrQuery = errors.New("query failed")

	// ErrDependencyMissing is returned when an optional collaborator is unavailable
	ErrDependencyMissing = errors.New("dependency missing")
)

type messageError struct {
	kind  error
	cause error
	msg   string
}

func (e *messageError) Error() string { return e.msg }

func (e *messageError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// ValidationError wraps ErrValidation with a message shown to the caller as is
func ValidationError(msg string) error {
	return &messageError{kind: ErrValidation, msg: msg}
}

// DependencyError wraps ErrDependencyMissing with a message shown to the caller as is
func DependencyError(msg string) error {
	return &messageError{kind: ErrDependencyMissing, msg: msg}
}

// QueryError wraps a store failure so that its message is kept but it matches ErrQuery
func QueryError(err error) error {
	if err == nil {
		return nil
	}
	return &messageError{kind: ErrQuery, cause: err, msg: err.Error()}
}
