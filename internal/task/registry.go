package task

import (
	"context"
	"fmt"

	"github.com/local/pdfbatch/internal/pagesource"
)

// Progress reports units completed out of the planned total.
type Progress func(done, total int)

// Handler executes one task kind.
type Handler func(ctx context.Context, p Parameters, progress Progress) (Result, error)

// Result reports where a task wrote and what it skipped.
type Result struct {
	Written []string
	Skipped []string
}

// Units returns the number of output units that were written.
func (r Result) Units() int { return len(r.Written) }

// Registry maps each task kind to exactly one handler. It is built once
// at startup and immutable afterwards, so a missing mapping is caught
// when the process starts, not when a request arrives.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry validates that every kind in Kinds has exactly one
// non-nil handler and that no unknown kinds are bound.
func NewRegistry(handlers map[Kind]Handler) (*Registry, error) {
	known := map[Kind]struct{}{}
	for _, k := range Kinds {
		known[k] = struct{}{}
	}
	for k, h := range handlers {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("task registry: unknown kind %q", k)
		}
		if h == nil {
			return nil, fmt.Errorf("task registry: nil handler for kind %q", k)
		}
	}
	for _, k := range Kinds {
		if _, ok := handlers[k]; !ok {
			return nil, fmt.Errorf("task registry: no handler for kind %q", k)
		}
	}
	m := make(map[Kind]Handler, len(handlers))
	for k, h := range handlers {
		m[k] = h
	}
	return &Registry{handlers: m}, nil
}

// DefaultRegistry binds every shipped task kind to its implementation
// over the given page source.
func DefaultRegistry(src pagesource.Source) (*Registry, error) {
	return NewRegistry(map[Kind]Handler{
		KindSplitByPages:   splitByPagesTask(src),
		KindSplitEvenOdd:   splitEvenOddTask(src),
		KindSplitByOutline: splitByOutlineTask(src),
		KindMerge:          mergeTask(src),
		KindRotate:         rotateTask(src),
		KindSetPageLabels:  setPageLabelsTask(src),
	})
}

// Handler returns the handler bound to k.
func (r *Registry) Handler(k Kind) (Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// Known reports whether k has a registered handler.
func (r *Registry) Known(k Kind) bool {
	_, ok := r.handlers[k]
	return ok
}
