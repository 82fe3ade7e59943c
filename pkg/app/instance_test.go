package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsClosersInReverse(t *testing.T) {
	instance := NewInstance()

	var order []string
	instance.AddCloseFunc(func() error {
		order = append(order, "first")
		return nil
	})
	instance.AddCloseFunc(func() error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, instance.Shutdown())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Error(t, instance.Context().Err())
}

func TestShutdownCollectsErrors(t *testing.T) {
	instance := NewInstance()

	ran := false
	instance.AddCloseFunc(func() error {
		ran = true
		return nil
	})
	instance.AddCloseFunc(func() error { return assert.AnError })

	err := instance.Shutdown()
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, ran, "a failing closer must not stop the rest")
}

func TestBackgroundTimeoutContext(t *testing.T) {
	ctx, cancel := BackgroundTimeoutContextDuration(time.Minute)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}
