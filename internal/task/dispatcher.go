package task

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/metrics"
)

// Dispatcher resolves parameters to their task implementation, validates
// them, runs the task and emits lifecycle events. Dispatch itself is
// synchronous from the caller's point of view regardless of the sink's
// delivery policy; only event delivery may be asynchronous.
type Dispatcher struct {
	reg         *Registry
	sink        EventSink
	checkSource func(ref string) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSink sets the lifecycle event sink.
func WithSink(s EventSink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// WithSourceCheck installs a readability check run against every source
// reference during validation, before any document is opened.
func WithSourceCheck(check func(ref string) error) Option {
	return func(d *Dispatcher) { d.checkSource = check }
}

func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg, sink: NopSink()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch validates p, runs the registered task and reports the result.
// Validation failures short-circuit before any document is opened.
func (d *Dispatcher) Dispatch(ctx context.Context, taskID string, p Parameters) (Result, error) {
	handler, ok := d.reg.Handler(p.Kind())
	if !ok {
		// Unreachable with a registry built through NewRegistry.
		return Result{}, fmt.Errorf("no task registered for kind %q", p.Kind())
	}

	start := time.Now()
	if err := d.validate(p); err != nil {
		metrics.ObserveTask(string(p.Kind()), "invalid", time.Since(start))
		return Result{}, err
	}

	d.sink.Notify(Event{TaskID: taskID, Kind: p.Kind(), State: EventStarted, At: time.Now()})
	log.Info().Str("task_id", taskID).Str("kind", string(p.Kind())).Msg("task started")

	progress := func(done, total int) {
		d.sink.Notify(Event{TaskID: taskID, Kind: p.Kind(), State: EventProgress, Done: done, Total: total, At: time.Now()})
	}

	res, err := handler(ctx, p, progress)
	if err != nil {
		d.sink.Notify(Event{TaskID: taskID, Kind: p.Kind(), State: EventFailed, Err: err, At: time.Now()})
		metrics.ObserveTask(string(p.Kind()), "failed", time.Since(start))
		log.Error().Err(err).Str("task_id", taskID).Str("kind", string(p.Kind())).Msg("task failed")
		return res, err
	}

	d.sink.Notify(Event{TaskID: taskID, Kind: p.Kind(), State: EventCompleted, Units: res.Units(), At: time.Now()})
	metrics.ObserveTask(string(p.Kind()), "completed", time.Since(start))
	log.Info().Str("task_id", taskID).Str("kind", string(p.Kind())).
		Int("written", len(res.Written)).Int("skipped", len(res.Skipped)).Msg("task completed")
	return res, nil
}

func (d *Dispatcher) validate(p Parameters) error {
	if err := p.Validate(); err != nil {
		if IsValidation(err) {
			return err
		}
		return &ValidationError{Message: err.Error()}
	}
	if d.checkSource != nil {
		for _, ref := range p.Sources() {
			if err := d.checkSource(ref); err != nil {
				return &ValidationError{Message: fmt.Sprintf("source %s: %v", ref, err)}
			}
		}
	}
	return nil
}
