package experiment

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/tensorboard"
)

const (
	metricsArtifactSuffix = "-metrics"
	tensorboardRunSuffix  = "-tb-run"
)

// ExperimentRun is a composite handle over the nodes that encode one run.
// New-encoding runs live in a context; legacy runs are an execution plus a
// sibling metrics artifact. A tensorboard-run reference artifact may be bound
// in either encoding.
type ExperimentRun struct {
	experiment *Experiment
	name       string

	context         *node.Context
	execution       *node.Execution
	metricsArtifact *node.Artifact
	tensorboardRef  *node.Artifact
	tensorboardRun  *tensorboard.RunHandle
}

func (e *Experiment) runID(name string) string {
	return e.ID() + "-" + name
}

// IsLegacy reports whether the run is backed by the execution encoding.
func (r *ExperimentRun) IsLegacy() bool {
	return r.context == nil
}

func (r *ExperimentRun) Name() string {
	return r.name
}

func (r *ExperimentRun) Experiment() *Experiment {
	return r.experiment
}

// RunType is the schema title of the primary node.
func (r *ExperimentRun) RunType() string {
	if r.IsLegacy() {
		return r.execution.SchemaTitle()
	}
	return r.context.SchemaTitle()
}

// GetRun resolves a run by its short name within the experiment. The
// context, legacy, and tensorboard-reference lookups fan out concurrently.
func (e *Experiment) GetRun(ctx context.Context, name string) (*ExperimentRun, error) {
	id := e.runID(name)
	run := &ExperimentRun{experiment: e, name: name}

	var notFound error
	g := &errgroup.Group{}
	g.SetLimit(fanOutLimit)

	g.Go(func() error {
		found, err := e.client.nodes.GetContext(ctx, id)
		if err == nil {
			run.context = found
			return nil
		}
		if !metadata.IsNotFound(err) {
			return err
		}
		notFound = err

		execution, err := e.client.nodes.GetExecution(ctx, id)
		if metadata.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		run.execution = execution

		artifact, err := e.client.nodes.GetArtifact(ctx, id+metricsArtifactSuffix)
		if metadata.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		run.metricsArtifact = artifact
		return nil
	})

	g.Go(func() error {
		return run.bindTensorboardRef(ctx)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if run.context == nil && run.execution == nil {
		return nil, notFound
	}
	return run, nil
}

// bindTensorboardRef looks up the reference artifact and binds a run handle
// when it points back at this (experiment, run).
func (r *ExperimentRun) bindTensorboardRef(ctx context.Context) error {
	id := r.experiment.runID(r.name)
	artifact, err := r.experiment.client.nodes.GetArtifact(ctx, id+tensorboardRunSuffix)
	if metadata.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if artifact.SchemaTitle() != schema.TitleTensorboardRunReference {
		return nil
	}
	if tracked, _ := artifact.Metadata()[schema.KeyVertexTracking].(bool); !tracked {
		log.Warnf("tensorboard reference %s is not tracked, ignoring", artifact.Name())
		return nil
	}
	resource := schema.ResourceNameFromMetadata(artifact.Metadata())
	if !strings.HasSuffix(resource, "/experiments/"+r.experiment.ID()+"/runs/"+r.name) {
		log.Warnf("tensorboard reference %s points at %s, ignoring", artifact.Name(), resource)
		return nil
	}
	r.tensorboardRef = artifact
	r.tensorboardRun = tensorboard.NewRunHandle(r.experiment.client.tensorboard, resource)
	return nil
}

// CreateRun materializes a new-encoding run. Context creation, schema
// registration, tensorboard attachment, and the experiment link fan out
// concurrently; the link retries while the context create is not yet visible.
// tensorboardResource empty means inherit the experiment's backing instance.
func (e *Experiment) CreateRun(ctx context.Context, name, tensorboardResource string) (*ExperimentRun, error) {
	id := e.runID(name)
	contextName, err := e.client.nodes.Scope().FullName(metadata.NounContexts, id)
	if err != nil {
		return nil, err
	}
	if tensorboardResource == "" {
		tensorboardResource = e.BackingTensorboard()
	}

	run := &ExperimentRun{experiment: e, name: name}
	g := &errgroup.Group{}
	g.SetLimit(fanOutLimit)

	g.Go(func() error {
		return e.client.registry.Ensure(ctx, schema.TitleExperimentRun, schema.DefaultVersion, metadata.SchemaTypeContext)
	})

	g.Go(func() error {
		created, err := e.client.nodes.GetOrCreateContext(ctx, node.ContextSpec{
			ID:            id,
			SchemaTitle:   schema.TitleExperimentRun,
			SchemaVersion: schema.DefaultVersion,
			DisplayName:   name,
			Metadata: map[string]interface{}{
				schema.KeyParams:  map[string]interface{}{},
				schema.KeyMetrics: map[string]interface{}{},
				schema.KeyState:   string(metadata.ExecutionStateRunning),
			},
		})
		if err != nil {
			return err
		}
		if created.SchemaTitle() != schema.TitleExperimentRun {
			return wrongSchema(created.Name(), schema.TitleExperimentRun, created.SchemaTitle())
		}
		run.context = created
		return nil
	})

	g.Go(func() error {
		return retryOnTransientNotFound(ctx, func() error {
			return e.client.nodes.Store().AddContextChildren(ctx, e.Name(), []string{contextName})
		})
	})

	if tensorboardResource != "" {
		g.Go(func() error {
			return run.attachTensorboard(ctx, tensorboardResource)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if run.tensorboardRef != nil {
		if err := run.context.AddMembers(ctx, []*node.Artifact{run.tensorboardRef}, nil); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// attachTensorboard makes sure the tensorboard experiment and run exist and
// writes the reference artifact. Idempotent end to end.
func (r *ExperimentRun) attachTensorboard(ctx context.Context, tensorboardResource string) error {
	experimentName, err := r.experiment.ensureTensorboardExperiment(ctx, tensorboardResource)
	if err != nil {
		return err
	}

	runName := experimentName + "/runs/" + r.name
	existing, err := tensorboard.GetRunOrNull(ctx, r.experiment.client.tensorboard, runName)
	if err != nil {
		return err
	}
	if existing == nil {
		created, err := r.experiment.client.tensorboard.CreateRun(ctx, experimentName, r.name, &tensorboard.Run{
			DisplayName: r.name,
		})
		if err != nil && !metadata.IsAlreadyExists(err) {
			return err
		}
		if created != nil {
			runName = created.Name
		}
	}

	id := r.experiment.runID(r.name)
	ref, err := r.experiment.client.nodes.GetOrCreateArtifact(ctx, node.ArtifactSpec{
		ID:            id + tensorboardRunSuffix,
		SchemaTitle:   schema.TitleTensorboardRunReference,
		SchemaVersion: schema.DefaultVersion,
		DisplayName:   r.name,
		State:         metadata.LifecycleStateLive,
		Metadata: map[string]interface{}{
			schema.KeyResourceName:   runName,
			schema.KeyVertexTracking: true,
		},
	})
	if err != nil {
		return err
	}
	r.tensorboardRef = ref
	r.tensorboardRun = tensorboard.NewRunHandle(r.experiment.client.tensorboard, runName)
	return nil
}

func validateParams(params map[string]interface{}) error {
	for key, value := range params {
		switch value.(type) {
		case float64, float32, int, int32, int64, string, bool:
		default:
			return errors.Wrapf(ErrUnsupportedValue, "param %q has type %T", key, value)
		}
	}
	return nil
}

// LogParams merge-updates the run parameters. Values are restricted to
// floats, ints, strings, and bools.
func (r *ExperimentRun) LogParams(ctx context.Context, params map[string]interface{}) error {
	if err := validateParams(params); err != nil {
		return err
	}
	if r.IsLegacy() {
		return r.execution.Update(ctx, node.UpdateExecutionOptions{Metadata: params})
	}
	return r.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{schema.KeyParams: params},
	})
}

// LogMetrics merge-updates the summary metrics of the run.
func (r *ExperimentRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	values := make(map[string]interface{}, len(metrics))
	for key, value := range metrics {
		values[key] = value
	}
	if r.IsLegacy() {
		artifact, err := r.legacyMetricsArtifact(ctx)
		if err != nil {
			return err
		}
		return artifact.Update(ctx, node.UpdateArtifactOptions{Metadata: values})
	}
	return r.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{schema.KeyMetrics: values},
	})
}

func (r *ExperimentRun) legacyMetricsArtifact(ctx context.Context) (*node.Artifact, error) {
	if r.metricsArtifact != nil {
		return r.metricsArtifact, nil
	}
	artifact, err := r.experiment.client.nodes.GetOrCreateArtifact(ctx, node.ArtifactSpec{
		ID:            r.experiment.runID(r.name) + metricsArtifactSuffix,
		SchemaTitle:   schema.TitleMetrics,
		SchemaVersion: schema.DefaultVersion,
		DisplayName:   r.name + metricsArtifactSuffix,
		State:         metadata.LifecycleStateLive,
	})
	if err != nil {
		return nil, err
	}
	r.metricsArtifact = artifact
	return artifact, nil
}

// LogTimeSeriesMetrics writes one scalar batch to the backing tensorboard
// run, lazily inheriting the experiment's backing instance if the run is not
// attached yet. A nil step means one past the largest step seen so far.
func (r *ExperimentRun) LogTimeSeriesMetrics(ctx context.Context, values map[string]float64, step *int64, wallTime *time.Time) error {
	if r.IsLegacy() {
		return errors.Wrapf(ErrNotSupportedInLegacyRun, "time series on run %s", r.name)
	}
	if r.tensorboardRun == nil {
		backing := r.experiment.BackingTensorboard()
		if backing == "" {
			return errors.Wrapf(ErrNoBackingTimeSeries, "run %s", r.name)
		}
		if err := r.attachTensorboard(ctx, backing); err != nil {
			return err
		}
		if err := r.context.AddMembers(ctx, []*node.Artifact{r.tensorboardRef}, nil); err != nil {
			return err
		}
	}
	return r.tensorboardRun.WriteScalars(ctx, values, step, wallTime)
}

// LogPipelineRun links a pipeline job's run context under this run, waiting
// out the window where the context has not appeared yet.
func (r *ExperimentRun) LogPipelineRun(ctx context.Context, pipelineRunContext string) error {
	if r.IsLegacy() {
		return errors.Wrapf(ErrNotSupportedInLegacyRun, "pipeline runs on run %s", r.name)
	}
	pipelineRun, err := r.experiment.client.GetOrWaitForContext(ctx, pipelineRunContext)
	if err != nil {
		return err
	}
	return r.context.AddChildren(ctx, pipelineRun)
}

// AssociateExecution adds an execution to the run context's membership.
func (r *ExperimentRun) AssociateExecution(ctx context.Context, execution *node.Execution) error {
	if r.IsLegacy() {
		return errors.Wrapf(ErrNotSupportedInLegacyRun, "execution association on run %s", r.name)
	}
	return r.context.AddMembers(ctx, nil, []*node.Execution{execution})
}

// AssociateArtifacts adds artifacts to the run context's membership.
func (r *ExperimentRun) AssociateArtifacts(ctx context.Context, artifacts ...*node.Artifact) error {
	if r.IsLegacy() {
		return errors.Wrapf(ErrNotSupportedInLegacyRun, "artifact association on run %s", r.name)
	}
	return r.context.AddMembers(ctx, artifacts, nil)
}

// Params reads the run parameters through either encoding.
func (r *ExperimentRun) Params() map[string]interface{} {
	if r.IsLegacy() {
		return metadata.CopyMetadata(r.execution.Metadata())
	}
	params, _ := r.context.Metadata()[schema.KeyParams].(map[string]interface{})
	return metadata.CopyMetadata(params)
}

// Metrics reads the summary metrics through either encoding.
func (r *ExperimentRun) Metrics() map[string]interface{} {
	if r.IsLegacy() {
		if r.metricsArtifact == nil {
			return map[string]interface{}{}
		}
		return metadata.CopyMetadata(r.metricsArtifact.Metadata())
	}
	metrics, _ := r.context.Metadata()[schema.KeyMetrics].(map[string]interface{})
	return metadata.CopyMetadata(metrics)
}

// TimeSeriesMetrics reads back the latest scalar per display name, or an
// empty map when no tensorboard run is bound.
func (r *ExperimentRun) TimeSeriesMetrics(ctx context.Context) (map[string]float64, error) {
	if r.tensorboardRun == nil {
		return map[string]float64{}, nil
	}
	return r.tensorboardRun.LatestScalars(ctx)
}

// State reads the run state through either encoding.
func (r *ExperimentRun) State() metadata.ExecutionState {
	if r.IsLegacy() {
		return r.execution.State()
	}
	state, _ := r.context.Metadata()[schema.KeyState].(string)
	return metadata.ExecutionState(state)
}

// End transitions the run to a terminal state. The context encoding stores
// the state as metadata; the legacy encoding goes through the execution
// state machine and its transition checks.
func (r *ExperimentRun) End(ctx context.Context, state metadata.ExecutionState) error {
	if r.IsLegacy() {
		return r.execution.UpdateState(ctx, state)
	}
	return r.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{schema.KeyState: string(state)},
	})
}

// Resume moves the run back to RUNNING.
func (r *ExperimentRun) Resume(ctx context.Context) error {
	if r.IsLegacy() {
		return r.execution.UpdateState(ctx, metadata.ExecutionStateRunning)
	}
	return r.context.Update(ctx, node.UpdateContextOptions{
		Metadata: map[string]interface{}{schema.KeyState: string(metadata.ExecutionStateRunning)},
	})
}

// Delete removes the run's nodes. With deleteBackingTensorboardRun the
// external tensorboard run and the reference artifact go first.
func (r *ExperimentRun) Delete(ctx context.Context, deleteBackingTensorboardRun bool) error {
	if deleteBackingTensorboardRun && r.tensorboardRef != nil {
		err := r.experiment.client.tensorboard.DeleteRun(ctx, r.tensorboardRun.Name())
		if err != nil && !metadata.IsNotFound(err) {
			return err
		}
		if err := r.tensorboardRef.Delete(ctx); err != nil && !metadata.IsNotFound(err) {
			return err
		}
		r.tensorboardRef = nil
		r.tensorboardRun = nil
	}

	if r.IsLegacy() {
		if r.metricsArtifact != nil {
			if err := r.metricsArtifact.Delete(ctx); err != nil && !metadata.IsNotFound(err) {
				return err
			}
		}
		return r.execution.Delete(ctx)
	}
	return r.context.Delete(ctx)
}
