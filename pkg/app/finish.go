package app

import (
	"io"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

type CloseFunc func() error

type closeWrapper struct {
	fn CloseFunc
}

func (w *closeWrapper) Close() error {
	return w.fn()
}

func (instance *Instance) AddCloseFunc(fn CloseFunc) {
	instance.AddCloser(&closeWrapper{fn: fn})
}

func (instance *Instance) AddCloser(closer io.Closer) {
	instance.closers = append(instance.closers, closer)
}

// Shutdown cancels the root context and runs the closers in reverse
// registration order. Every closer runs; the errors are collected.
func (instance *Instance) Shutdown() error {
	instance.cancel()
	var merr *multierror.Error
	for i := len(instance.closers) - 1; i >= 0; i-- {
		if err := instance.closers[i].Close(); err != nil {
			log.Warnf("failed to close: %v", err)
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
