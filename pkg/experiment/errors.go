package experiment

import "errors"

// Tracker and run preconditions, matched with errors.Is.
var (
	ErrNoActiveExperiment      = errors.New("no active experiment set")
	ErrNoActiveRun             = errors.New("no active run")
	ErrNoBackingTimeSeries     = errors.New("run has no backing tensorboard run")
	ErrUnsupportedResource     = errors.New("resource kind cannot back an artifact")
	ErrNotSupportedInLegacyRun = errors.New("operation is not supported on a legacy run")
	ErrUnsupportedValue        = errors.New("unsupported value type")
)
