package domain

import (
	"errors"
	"fmt"
)

// ErrValidation marks refused operations; no state was changed.
var ErrValidation = errors.New("validation failed")

// RemoteWriteError reports a failed write to the remote store after the
// local optimistic mutation was already applied.
type RemoteWriteError struct {
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote %s %s %q not confirmed: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }
