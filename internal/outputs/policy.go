// Package outputs decides, for each planned output file, whether the
// write proceeds, is skipped, or aborts the batch, and how output files
// are named.
package outputs

import (
	"fmt"
	"os"
	"strings"
)

// ExistingOutputPolicy governs collisions with pre-existing destination
// files.
type ExistingOutputPolicy int

const (
	// Fail aborts the whole batch on the first collision.
	Fail ExistingOutputPolicy = iota
	// Overwrite replaces existing files.
	Overwrite
	// Skip drops the colliding unit and continues with the rest.
	Skip
)

func (p ExistingOutputPolicy) String() string {
	switch p {
	case Fail:
		return "fail"
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	}
	return "unknown"
}

// ParsePolicy parses a policy name. The zero policy is Fail, matching
// the default applied when no policy is configured.
func ParsePolicy(s string) (ExistingOutputPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return Fail, nil
	case "overwrite":
		return Overwrite, nil
	case "skip":
		return Skip, nil
	}
	return Fail, fmt.Errorf("unknown existing-output policy %q", s)
}

// State is the per-unit resolution outcome. Skipped and Aborted are
// terminal; Proceed transitions externally to written once the save
// succeeds.
type State int

const (
	Unchecked State = iota
	Proceed
	Skipped
	Aborted
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Proceed:
		return "proceed"
	case Skipped:
		return "skipped"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Resolver gates each candidate destination against the configured
// policy.
type Resolver struct {
	policy ExistingOutputPolicy
}

func NewResolver(policy ExistingOutputPolicy) *Resolver {
	return &Resolver{policy: policy}
}

// Resolve checks dest against the policy. A destination that does not
// exist always proceeds regardless of policy.
func (r *Resolver) Resolve(dest string) (State, error) {
	_, err := os.Stat(dest)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return Proceed, nil
	default:
		return Unchecked, fmt.Errorf("stat %s: %w", dest, err)
	}
	switch r.policy {
	case Overwrite:
		return Proceed, nil
	case Skip:
		return Skipped, nil
	default:
		return Aborted, nil
	}
}
