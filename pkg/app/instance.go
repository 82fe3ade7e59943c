package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Instance ties the process lifecycle together: a root context cancelled on
// SIGINT or SIGTERM, and the closers to run on the way out.
type Instance struct {
	closers []io.Closer
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewInstance() *Instance {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &Instance{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (instance *Instance) Context() context.Context {
	return instance.ctx
}

func ContextFromInstance(instance *Instance) context.Context {
	return instance.ctx
}
