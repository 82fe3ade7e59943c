package app

import (
	"context"
	"time"
)

// BackgroundTimeoutDuration bounds background work that outlives a request
// scoped context, cleanup and teardown mostly.
const BackgroundTimeoutDuration = time.Minute

func BackgroundTimeoutContext() (context.Context, context.CancelFunc) {
	return BackgroundTimeoutContextDuration(BackgroundTimeoutDuration)
}

func BackgroundTimeoutContextDuration(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
