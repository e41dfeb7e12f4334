package image

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a request rejected before any work was done.
	ErrInvalidRequest = errors.New("image: invalid request")

	// ErrFilesystem wraps failures reading inputs or writing layer archives.
	ErrFilesystem = errors.New("image: filesystem error")

	// ErrSecretsInLogs is returned when log scanning runs in fail mode and
	// finds something.
	ErrSecretsInLogs = errors.New("image: secrets found in build logs")
)

// RegistryError records a failed registry operation against one reference.
type RegistryError struct {
	Op  string
	Ref string
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("image: %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

func fsError(err error) error {
	return fmt.Errorf("%w: %w", ErrFilesystem, err)
}
