package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockHonoursSimulatedTime(t *testing.T) {
	sim := time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC)
	ctx := WithSimulatedTime(context.Background(), sim)

	assert.Equal(t, sim, SystemClock{}.Now(ctx))
	assert.WithinDuration(t, time.Now().UTC(), SystemClock{}.Now(context.Background()), time.Minute)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at, Fixed(at).Now(context.Background()))
}
