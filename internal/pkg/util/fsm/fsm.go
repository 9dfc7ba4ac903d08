package fsm

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/otarecovery/pkg/log"
)

// WrapEvent adapts an error-returning callback. A returned error is stored
// in event.Err, which fsm.Event hands back to the caller for enter_ and
// after_ callbacks.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// WrapAction is WrapEvent for callbacks that ignore the event.
func WrapAction(fn func(ctx context.Context) error) fsm.Callback {
	return WrapEvent(func(ctx context.Context, _ *fsm.Event) error {
		return fn(ctx)
	})
}

// LogTransitions returns an enter_state callback that logs every move.
func LogTransitions(logger log.Logger) fsm.Callback {
	return func(_ context.Context, e *fsm.Event) {
		logger.Info("State transition", "event", e.Event, "from", e.Src, "to", e.Dst)
	}
}
