package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

func TestTrackerEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "demo", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)
	require.NoError(t, tracker.LogParams(ctx, map[string]interface{}{"lr": 0.1}))
	require.NoError(t, tracker.LogMetrics(ctx, map[string]float64{"acc": 0.9}))
	require.NoError(t, tracker.EndRun(ctx, metadata.ExecutionStateComplete))

	rows, err := tracker.ExperimentRows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].RunName)
	assert.Equal(t, "COMPLETE", rows[0].State)
	assert.Equal(t,
		[]string{"experiment_name", "run_name", "run_type", "state", "param.lr", "metric.acc"},
		Columns(rows))

	// the run is no longer active
	assert.ErrorIs(t, tracker.LogMetrics(ctx, map[string]float64{"x": 1}), ErrNoActiveRun)
}

func TestTrackerRequiresActiveExperiment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	assert.ErrorIs(t, err, ErrNoActiveExperiment)
	_, err = tracker.ExperimentRows(ctx, "")
	assert.ErrorIs(t, err, ErrNoActiveExperiment)
	assert.ErrorIs(t, tracker.LogParams(ctx, nil), ErrNoActiveRun)
}

func TestStartRunEndsPreviousRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)
	_, err = tracker.StartRun(ctx, "r2", StartRunOptions{})
	require.NoError(t, err)

	stored := f.store.Contexts[f.contextName(t, "exp1-r1")]
	require.NotNil(t, stored)
	assert.Equal(t, "COMPLETE", stored.Metadata[schema.KeyState])
}

func TestStartRunResume(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)
	require.NoError(t, tracker.EndRun(ctx, metadata.ExecutionStateComplete))

	run, err := tracker.StartRun(ctx, "r1", StartRunOptions{Resume: true})
	require.NoError(t, err)
	assert.Equal(t, metadata.ExecutionStateRunning, run.State())
}

func TestEndRunToleratesVanishedRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteContext(ctx, f.contextName(t, "exp1-r1")))
	assert.NoError(t, tracker.EndRun(ctx, metadata.ExecutionStateComplete))
}

func TestSetExperimentClearsActiveRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)

	require.NoError(t, tracker.SetExperiment(ctx, "exp2", "", ""))
	assert.ErrorIs(t, tracker.LogParams(ctx, nil), ErrNoActiveRun)
}

func TestStartExecutionAssociatesWithActiveRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := tracker.StartRun(ctx, "r1", StartRunOptions{})
	require.NoError(t, err)

	execution, err := tracker.StartExecution(ctx, StartExecutionOptions{
		SchemaTitle: schema.TitleContainerExecution,
		DisplayName: "train",
	})
	require.NoError(t, err)
	assert.Equal(t, metadata.ExecutionStateRunning, execution.State())
	assert.Contains(t, f.store.ContextExecutions[f.contextName(t, "exp1-r1")], execution.Name())

	model, err := f.client.ResolveVertexResource(ctx, "projects/proj/locations/us-central1/models/m1")
	require.NoError(t, err)
	require.NoError(t, execution.AssignOutputArtifacts(ctx, model))

	// the event lands on the execution and the artifact joins the run context
	require.Len(t, f.store.Events, 1)
	assert.Equal(t, metadata.EventTypeOutput, f.store.Events[0].Type)
	assert.Equal(t, model.Name(), f.store.Events[0].Artifact)
	assert.Contains(t, f.store.ContextArtifacts[f.contextName(t, "exp1-r1")], model.Name())
}

func TestStartExecutionWithoutRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	execution, err := tracker.StartExecution(ctx, StartExecutionOptions{
		SchemaTitle: schema.TitleCustomJobExecution,
	})
	require.NoError(t, err)
	assert.Equal(t, metadata.ExecutionStateRunning, execution.State())
	assert.Empty(t, f.store.ContextExecutions)
}

func TestStartExecutionLegacyRunSkipsAssociation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	require.NoError(t, tracker.SetExperiment(ctx, "exp1", "", ""))
	_, err := f.store.CreateExecution(ctx, testScope.Parent(), "exp1-r2", &metadata.Execution{
		SchemaTitle: schema.TitleRun,
		State:       metadata.ExecutionStateRunning,
	})
	require.NoError(t, err)
	_, err = tracker.StartRun(ctx, "r2", StartRunOptions{Resume: true})
	require.NoError(t, err)

	execution, err := tracker.StartExecution(ctx, StartExecutionOptions{
		SchemaTitle: schema.TitleContainerExecution,
	})
	require.NoError(t, err)
	require.NotNil(t, execution)
	assert.Empty(t, f.store.ContextExecutions)
}

func TestStartExecutionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	_, err := tracker.StartExecution(ctx, StartExecutionOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	_, err = tracker.StartExecution(ctx, StartExecutionOptions{SchemaTitle: "system.Nonsense"})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	// known title, but an artifact schema
	_, err = tracker.StartExecution(ctx, StartExecutionOptions{SchemaTitle: schema.TitleDataset})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	_, err = tracker.StartExecution(ctx, StartExecutionOptions{Resume: true})
	assert.ErrorIs(t, err, metadata.ErrMalformedName)
}

func TestStartExecutionResume(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tracker := NewTracker(f.client)

	created, err := tracker.StartExecution(ctx, StartExecutionOptions{
		SchemaTitle: schema.TitleContainerExecution,
		ResourceID:  "train-1",
	})
	require.NoError(t, err)

	resumed, err := tracker.StartExecution(ctx, StartExecutionOptions{
		Resume:     true,
		ResourceID: "train-1",
	})
	require.NoError(t, err)
	assert.Equal(t, created.Name(), resumed.Name())
	assert.Equal(t, metadata.ExecutionStateRunning, resumed.State())
}

func TestDefaultTracker(t *testing.T) {
	f := newFixture()
	tracker := NewTracker(f.client)
	SetDefault(tracker)
	defer SetDefault(nil)
	assert.Same(t, tracker, Default())
}
