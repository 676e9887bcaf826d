package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listener() Listener {
	return func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}
}

func (r *eventRecorder) states() []EventState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventState, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}

// handlerMapWith binds every kind to nopHandler except k.
func handlerMapWith(k Kind, h Handler) map[Kind]Handler {
	m := fullHandlerMap()
	m[k] = h
	return m
}

func validMerge() *MergeParameters {
	return &MergeParameters{Inputs: []string{"a.pdf", "b.pdf"}, Output: "/tmp/out.pdf"}
}

func statesEqual(got, want []EventState) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestDispatchEmitsLifecycleEvents(t *testing.T) {
	handler := func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		progress(1, 2)
		progress(2, 2)
		return Result{Written: []string{"/tmp/a.pdf", "/tmp/b.pdf"}}, nil
	}
	reg, err := NewRegistry(handlerMapWith(KindMerge, handler))
	if err != nil {
		t.Fatal(err)
	}

	rec := &eventRecorder{}
	d := NewDispatcher(reg, WithSink(NewSyncSink(rec.listener())))

	res, err := d.Dispatch(context.Background(), "t1", validMerge())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Units() != 2 {
		t.Fatalf("units = %d, want 2", res.Units())
	}

	want := []EventState{EventStarted, EventProgress, EventProgress, EventCompleted}
	if got := rec.states(); !statesEqual(got, want) {
		t.Fatalf("event states = %v, want %v", got, want)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	last := rec.events[len(rec.events)-1]
	if last.TaskID != "t1" || last.Kind != KindMerge || last.Units != 2 {
		t.Fatalf("completed event = %+v", last)
	}
}

func TestDispatchFailureEvent(t *testing.T) {
	boom := errors.New("boom")
	handler := func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		return Result{}, boom
	}
	reg, err := NewRegistry(handlerMapWith(KindMerge, handler))
	if err != nil {
		t.Fatal(err)
	}

	rec := &eventRecorder{}
	d := NewDispatcher(reg, WithSink(NewSyncSink(rec.listener())))

	if _, err := d.Dispatch(context.Background(), "t2", validMerge()); !errors.Is(err, boom) {
		t.Fatalf("dispatch error = %v, want boom", err)
	}

	want := []EventState{EventStarted, EventFailed}
	if got := rec.states(); !statesEqual(got, want) {
		t.Fatalf("event states = %v, want %v", got, want)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !errors.Is(rec.events[1].Err, boom) {
		t.Fatalf("failed event error = %v", rec.events[1].Err)
	}
}

func TestDispatchValidationShortCircuits(t *testing.T) {
	ran := false
	handler := func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		ran = true
		return Result{}, nil
	}
	reg, err := NewRegistry(handlerMapWith(KindMerge, handler))
	if err != nil {
		t.Fatal(err)
	}

	rec := &eventRecorder{}
	d := NewDispatcher(reg, WithSink(NewSyncSink(rec.listener())))

	_, err = d.Dispatch(context.Background(), "t3", &MergeParameters{Inputs: []string{"only.pdf"}, Output: "/tmp/out.pdf"})
	if !IsValidation(err) {
		t.Fatalf("dispatch error = %v, want validation error", err)
	}
	if ran {
		t.Fatal("handler ran despite validation failure")
	}
	if len(rec.states()) != 0 {
		t.Fatalf("events emitted for invalid parameters: %v", rec.states())
	}
}

func TestDispatchSourceCheck(t *testing.T) {
	reg, err := NewRegistry(fullHandlerMap())
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(reg, WithSourceCheck(func(ref string) error {
		if ref == "b.pdf" {
			return fmt.Errorf("not a PDF")
		}
		return nil
	}))

	_, err = d.Dispatch(context.Background(), "t4", validMerge())
	if !IsValidation(err) {
		t.Fatalf("dispatch error = %v, want validation error", err)
	}
}

func TestAsyncSinkDeliversAllEventsByClose(t *testing.T) {
	rec := &eventRecorder{}
	sink := NewAsyncSink(rec.listener(), 4)

	for i := 0; i < 10; i++ {
		sink.Notify(Event{TaskID: "t5", State: EventProgress, Done: i + 1, Total: 10})
	}
	sink.Close()

	if got := len(rec.states()); got != 10 {
		t.Fatalf("delivered events = %d, want 10", got)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, e := range rec.events {
		if e.Done != i+1 {
			t.Fatalf("event %d out of order: %+v", i, e)
		}
	}
}

func TestAsyncSinkCloseIsIdempotent(t *testing.T) {
	sink := NewAsyncSink(func(Event) {}, 1)
	sink.Close()
	sink.Close()
}

func TestAsyncSinkDropsEventsAfterClose(t *testing.T) {
	rec := &eventRecorder{}
	sink := NewAsyncSink(rec.listener(), 4)

	sink.Notify(Event{TaskID: "t6", State: EventStarted})
	sink.Close()
	sink.Notify(Event{TaskID: "t6", State: EventCompleted})

	want := []EventState{EventStarted}
	if got := rec.states(); !statesEqual(got, want) {
		t.Fatalf("event states = %v, want %v", got, want)
	}
}
