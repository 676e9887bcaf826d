package document

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a handle is used after Close.
var ErrClosed = errors.New("document handle closed")

// OutOfRangeError reports a 1-based page index outside [1, PageCount].
type OutOfRangeError struct {
	Index     int
	PageCount int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range [1,%d]", e.Index, e.PageCount)
}

// SaveError reports a failed save. The destination never holds a
// partially written file when a SaveError is returned.
type SaveError struct {
	Dest string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Dest, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
