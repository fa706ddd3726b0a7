package companion

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound is returned by a ProfileResolver when the handle
	// does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStaleLookup means a newer lookup superseded this one; its result
	// was discarded.
	ErrStaleLookup = errors.New("lookup superseded by newer input")
)

// ProfileNotFoundError is a non-fatal lookup outcome. The draft stays
// editable and the user may fall back to a typed name.
type ProfileNotFoundError struct {
	Handle string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile @%s not found", e.Handle)
}

func (e *ProfileNotFoundError) Is(target error) bool {
	return target == ErrProfileNotFound
}

// LookupFailedError wraps a transport failure. Retrying with the same input
// is safe.
type LookupFailedError struct {
	Handle string
	Err    error
}

func (e *LookupFailedError) Error() string {
	return fmt.Sprintf("profile lookup for @%s failed: %v", e.Handle, e.Err)
}

func (e *LookupFailedError) Unwrap() error {
	return e.Err
}
