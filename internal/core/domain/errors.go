package domain

import (
	"errors"
	"fmt"
)

var (
	ErrApplicationNotFound     = errors.New("application not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrMissingPrerequisiteData = errors.New("missing prerequisite data")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrConcurrentModification  = errors.New("concurrent modification")
	ErrInconsistentState       = errors.New("inconsistent application state")
	ErrTemporary               = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
