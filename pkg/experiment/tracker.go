package experiment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

// Tracker holds the process-wide (active experiment, active run) pair and
// delegates the logging calls to them. Callers running concurrent goroutines
// against one tracker must serialize externally; the lock here only keeps the
// pair itself consistent.
type Tracker struct {
	client *Client

	mu         sync.Mutex
	experiment *Experiment
	run        *ExperimentRun
}

func NewTracker(client *Client) *Tracker {
	return &Tracker{client: client}
}

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// SetDefault installs the package-level tracker instance.
func SetDefault(tracker *Tracker) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultTracker = tracker
}

// Default returns the package-level tracker, or nil before SetDefault.
func Default() *Tracker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultTracker
}

// SetExperiment makes the named experiment active, creating it on first use,
// and clears any active run. backingTensorboard optionally attaches a
// tensorboard instance.
func (t *Tracker) SetExperiment(ctx context.Context, name, description, backingTensorboard string) error {
	experiment, err := t.client.GetOrCreateExperiment(ctx, name, description)
	if err != nil {
		return err
	}
	if backingTensorboard != "" {
		if err := experiment.AssignBackingTensorboard(ctx, backingTensorboard); err != nil {
			return err
		}
	}
	t.mu.Lock()
	t.experiment = experiment
	t.run = nil
	t.mu.Unlock()
	return nil
}

func (t *Tracker) activeExperiment() (*Experiment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.experiment == nil {
		return nil, errors.WithStack(ErrNoActiveExperiment)
	}
	return t.experiment, nil
}

func (t *Tracker) activeRun() (*ExperimentRun, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run == nil {
		return nil, errors.WithStack(ErrNoActiveRun)
	}
	return t.run, nil
}

type StartRunOptions struct {
	// Tensorboard overrides the experiment's backing instance for this run.
	Tensorboard string
	// Resume picks up an existing run instead of creating one.
	Resume bool
}

// StartRun makes the named run active, completing the previous active run
// first if there is one.
func (t *Tracker) StartRun(ctx context.Context, name string, opts StartRunOptions) (*ExperimentRun, error) {
	experiment, err := t.activeExperiment()
	if err != nil {
		return nil, err
	}
	if err := t.EndRun(ctx, metadata.ExecutionStateComplete); err != nil {
		return nil, err
	}

	var run *ExperimentRun
	if opts.Resume {
		run, err = experiment.GetRun(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := run.Resume(ctx); err != nil {
			return nil, err
		}
	} else {
		run, err = experiment.CreateRun(ctx, name, opts.Tensorboard)
		if err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	t.run = run
	t.mu.Unlock()
	return run, nil
}

// EndRun completes the active run, if any, and clears it. A run deleted
// behind our back is not an error.
func (t *Tracker) EndRun(ctx context.Context, state metadata.ExecutionState) error {
	t.mu.Lock()
	run := t.run
	t.run = nil
	t.mu.Unlock()
	if run == nil {
		return nil
	}
	err := run.End(ctx, state)
	if metadata.IsNotFound(err) {
		log.Warnf("run %s vanished before it could be ended", run.Name())
		return nil
	}
	return err
}

func (t *Tracker) LogParams(ctx context.Context, params map[string]interface{}) error {
	run, err := t.activeRun()
	if err != nil {
		return err
	}
	return run.LogParams(ctx, params)
}

func (t *Tracker) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	run, err := t.activeRun()
	if err != nil {
		return err
	}
	return run.LogMetrics(ctx, metrics)
}

func (t *Tracker) LogTimeSeriesMetrics(ctx context.Context, values map[string]float64, step *int64, wallTime *time.Time) error {
	run, err := t.activeRun()
	if err != nil {
		return err
	}
	return run.LogTimeSeriesMetrics(ctx, values, step, wallTime)
}

func (t *Tracker) LogPipelineRun(ctx context.Context, pipelineRunContext string) error {
	run, err := t.activeRun()
	if err != nil {
		return err
	}
	return run.LogPipelineRun(ctx, pipelineRunContext)
}

// ExperimentRows projects the named experiment, or the active one when name
// is empty.
func (t *Tracker) ExperimentRows(ctx context.Context, name string) ([]Row, error) {
	var experiment *Experiment
	var err error
	if name == "" {
		experiment, err = t.activeExperiment()
	} else {
		experiment, err = t.client.GetExperiment(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return experiment.Rows(ctx)
}

type StartExecutionOptions struct {
	SchemaTitle string
	DisplayName string
	ResourceID  string
	Description string
	Metadata    map[string]interface{}
	Resume      bool
}

// TrackedExecution wraps an execution so artifact assignments also land in
// the active run's context membership.
type TrackedExecution struct {
	*node.Execution
	run *ExperimentRun
}

func executionID(schemaTitle string) string {
	slug := strings.ToLower(strings.ReplaceAll(schemaTitle, ".", "-"))
	return slug + "-" + uuid.NewString()
}

// StartExecution creates (or resumes) an execution and transitions it to
// RUNNING. When a new-encoding run is active, the execution joins the run
// context and artifact assignments propagate there; a legacy active run
// cannot hold members, so association is skipped with a warning.
func (t *Tracker) StartExecution(ctx context.Context, opts StartExecutionOptions) (*TrackedExecution, error) {
	var execution *node.Execution
	var err error
	if opts.Resume {
		if opts.ResourceID == "" {
			return nil, errors.Wrap(metadata.ErrMalformedName, "resume requires a resource id")
		}
		execution, err = t.client.nodes.GetExecution(ctx, opts.ResourceID)
		if err != nil {
			return nil, err
		}
		if err := execution.UpdateState(ctx, metadata.ExecutionStateRunning); err != nil {
			return nil, err
		}
	} else {
		if opts.SchemaTitle == "" {
			return nil, errors.Wrap(ErrUnsupportedValue, "schema title required to start an execution")
		}
		entry, ok := schema.Lookup(opts.SchemaTitle)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "unknown schema title %q", opts.SchemaTitle)
		}
		if entry.Kind != schema.KindExecution {
			return nil, errors.Wrapf(ErrUnsupportedValue, "schema title %q is not an execution schema", opts.SchemaTitle)
		}
		if err := t.client.registry.Ensure(ctx, opts.SchemaTitle, schema.DefaultVersion, metadata.SchemaTypeExecution); err != nil {
			return nil, err
		}
		id := opts.ResourceID
		if id == "" {
			id = executionID(opts.SchemaTitle)
		}
		execution, err = t.client.nodes.GetOrCreateExecution(ctx, node.ExecutionSpec{
			ID:            id,
			SchemaTitle:   opts.SchemaTitle,
			SchemaVersion: schema.DefaultVersion,
			DisplayName:   opts.DisplayName,
			Description:   opts.Description,
			Metadata:      opts.Metadata,
			State:         metadata.ExecutionStateRunning,
		})
		if err != nil {
			return nil, err
		}
	}

	tracked := &TrackedExecution{Execution: execution}
	t.mu.Lock()
	run := t.run
	t.mu.Unlock()
	if run != nil {
		if run.IsLegacy() {
			log.Warnf("active run %s is legacy encoded, not associating execution %s", run.Name(), execution.Name())
		} else {
			if err := run.AssociateExecution(ctx, execution); err != nil {
				return nil, err
			}
			tracked.run = run
		}
	}
	return tracked, nil
}

// AssignInputArtifacts records INPUT events and associates the artifacts
// with the tracked run, when there is one.
func (e *TrackedExecution) AssignInputArtifacts(ctx context.Context, artifacts ...*node.Artifact) error {
	if err := e.Execution.AssignInputArtifacts(ctx, artifacts...); err != nil {
		return err
	}
	return e.associate(ctx, artifacts)
}

// AssignOutputArtifacts records OUTPUT events and associates the artifacts
// with the tracked run, when there is one.
func (e *TrackedExecution) AssignOutputArtifacts(ctx context.Context, artifacts ...*node.Artifact) error {
	if err := e.Execution.AssignOutputArtifacts(ctx, artifacts...); err != nil {
		return err
	}
	return e.associate(ctx, artifacts)
}

func (e *TrackedExecution) associate(ctx context.Context, artifacts []*node.Artifact) error {
	if e.run == nil || len(artifacts) == 0 {
		return nil
	}
	return e.run.AssociateArtifacts(ctx, artifacts...)
}
