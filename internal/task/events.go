package task

import (
	"sync"
	"time"
)

// EventState is a task lifecycle state.
type EventState string

const (
	EventStarted   EventState = "started"
	EventProgress  EventState = "progress"
	EventCompleted EventState = "completed"
	EventFailed    EventState = "failed"
)

// Event is one lifecycle notification for a dispatched task.
type Event struct {
	TaskID string
	Kind   Kind
	State  EventState
	// Done and Total carry unit progress for EventProgress.
	Done  int
	Total int
	// Units is the written output unit count for EventCompleted.
	Units int
	// Err carries the cause for EventFailed.
	Err error
	At  time.Time
}

// Listener consumes lifecycle events.
type Listener func(Event)

// EventSink delivers events to a listener under some delivery policy.
// Callers needing ordering guarantees relative to their own execution
// must use the synchronous sink; the asynchronous sink guarantees
// neither cross-task ordering nor delivery before Dispatch returns.
type EventSink interface {
	Notify(Event)
}

// NewSyncSink delivers events inline on the dispatching goroutine; the
// dispatch call blocks until the listener returns.
func NewSyncSink(l Listener) EventSink { return syncSink{l: l} }

type syncSink struct{ l Listener }

func (s syncSink) Notify(e Event) { s.l(e) }

// AsyncSink hands events to a dedicated goroutine. Close stops the sink
// after draining buffered events; events arriving after Close are
// dropped rather than delivered.
type AsyncSink struct {
	mu     sync.Mutex
	ch     chan Event
	done   chan struct{}
	closed bool
}

// NewAsyncSink starts the delivery goroutine. buffer defaults to 64 when
// non-positive.
func NewAsyncSink(l Listener, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 64
	}
	s := &AsyncSink{ch: make(chan Event, buffer), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for e := range s.ch {
			l(e)
		}
	}()
	return s
}

func (s *AsyncSink) Notify(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- e
}

// Close drains pending events and stops the delivery goroutine.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	<-s.done
}

// NopSink discards all events.
func NopSink() EventSink { return syncSink{l: func(Event) {}} }
