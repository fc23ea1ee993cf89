package clock

import (
	"context"
	"time"
)

type key string

const simulatedTimeKey key = "simulated_time"

// WithSimulatedTime returns a context whose clock reads t.
func WithSimulatedTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, simulatedTimeKey, t)
}

// SimulatedTimeFromContext returns the simulated time, if present.
func SimulatedTimeFromContext(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	t, ok := ctx.Value(simulatedTimeKey).(time.Time)
	return t, ok
}
