package task

import (
	"errors"
	"fmt"

	"github.com/local/pdfbatch/internal/document"
)

// ValidationError reports bad parameters, caught before any document is
// opened. It never leaves partial output behind.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// SourceReadError reports an input that cannot be opened or parsed. Not
// recoverable at this layer; surfaced to the caller.
type SourceReadError struct {
	Ref string
	Err error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("cannot read source %s: %v", e.Ref, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// PolicyAbortError reports a fail-policy collision with an existing
// destination file. Distinct from a save failure: it signals a caller
// configuration condition, not an I/O error. Units written earlier in
// the same task are left in place for the caller to decide about.
type PolicyAbortError struct {
	Dest string
}

func (e *PolicyAbortError) Error() string {
	return fmt.Sprintf("output file %s already exists and policy is fail", e.Dest)
}

// IsValidation reports whether err is a parameter validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSourceRead reports whether err is a source read failure.
func IsSourceRead(err error) bool {
	var se *SourceReadError
	return errors.As(err, &se)
}

// IsPolicyAbort reports whether err is a fail-policy abort.
func IsPolicyAbort(err error) bool {
	var pe *PolicyAbortError
	return errors.As(err, &pe)
}

// IsSaveFailure reports whether err is a failed save of an output file.
func IsSaveFailure(err error) bool {
	var se *document.SaveError
	return errors.As(err, &se)
}
