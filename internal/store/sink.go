package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/task"
)

// StatusListener returns a task.Listener that mirrors lifecycle events
// into the task store. Store failures are logged and swallowed so a
// Redis hiccup never fails a running task.
func StatusListener(ts *TaskStore, timeout time.Duration) task.Listener {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(e task.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		st := Status{
			State: string(e.State),
			Kind:  string(e.Kind),
			Done:  e.Done,
			Total: e.Total,
			Units: e.Units,
		}
		switch e.State {
		case task.EventStarted:
			at := e.At
			st.Start = &at
		case task.EventCompleted:
			at := e.At
			st.End = &at
		case task.EventFailed:
			at := e.At
			st.End = &at
			if e.Err != nil {
				st.Message = e.Err.Error()
			}
		}

		if err := ts.Set(ctx, e.TaskID, st); err != nil {
			log.Error().Err(err).Str("task_id", e.TaskID).Str("state", string(e.State)).Msg("failed to persist task status")
		}
	}
}
