package game

import (
	"errors"
	"fmt"
)

// Coordinator error kinds. Every room operation failure wraps exactly one of
// these sentinels so the transport layer can classify without string matching.
// Errors never mutate room state and are delivered only to the caller.
var (
	// ErrRoleViolation: the sender's role is not allowed for the operation.
	ErrRoleViolation = errors.New("role violation")

	// ErrStateViolation: the current room status disallows the operation.
	ErrStateViolation = errors.New("state violation")

	// ErrNotFound: unknown room, participant, clue, or game id.
	ErrNotFound = errors.New("not found")

	// ErrValidation: a payload value is out of range or malformed.
	ErrValidation = errors.New("validation error")

	// ErrDependency: a persistence or generator call failed.
	ErrDependency = errors.New("dependency error")
)

func roleErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRoleViolation, fmt.Sprintf(format, args...))
}

func stateErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateViolation, fmt.Sprintf(format, args...))
}

func notFoundErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func validationErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
