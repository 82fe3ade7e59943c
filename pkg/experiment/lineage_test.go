package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

func TestRowsNewAndLegacyRuns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	experiment := f.experiment(t, "exp1")
	run, err := experiment.CreateRun(ctx, "r1", "")
	require.NoError(t, err)
	require.NoError(t, run.LogParams(ctx, map[string]interface{}{"lr": 0.1}))
	require.NoError(t, run.LogMetrics(ctx, map[string]float64{"acc": 0.9}))
	require.NoError(t, run.End(ctx, metadata.ExecutionStateComplete))

	// a legacy run in the same experiment
	executionName := testScope.Parent() + "/executions/exp1-r2"
	_, err = f.store.CreateExecution(ctx, testScope.Parent(), "exp1-r2", &metadata.Execution{
		SchemaTitle: schema.TitleRun,
		State:       metadata.ExecutionStateComplete,
		Metadata:    map[string]interface{}{"batch": 64.0},
	})
	require.NoError(t, err)
	_, err = f.store.CreateArtifact(ctx, testScope.Parent(), "exp1-r2-metrics", &metadata.Artifact{
		SchemaTitle: schema.TitleMetrics,
		Metadata:    map[string]interface{}{"loss": 0.2},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.AddContextArtifactsAndExecutions(ctx, experiment.Name(), nil, []string{executionName}))

	rows, err := experiment.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "r1", rows[0].RunName)
	assert.Equal(t, schema.TitleExperimentRun, rows[0].RunType)
	assert.Equal(t, string(metadata.ExecutionStateComplete), rows[0].State)
	assert.Equal(t, map[string]interface{}{"lr": 0.1}, rows[0].Params)
	assert.Equal(t, map[string]interface{}{"acc": 0.9}, rows[0].Metrics)

	assert.Equal(t, "r2", rows[1].RunName)
	assert.Equal(t, schema.TitleRun, rows[1].RunType)
	assert.Equal(t, map[string]interface{}{"batch": 64.0}, rows[1].Params)
	assert.Equal(t, map[string]interface{}{"loss": 0.2}, rows[1].Metrics)
}

func TestRowsColumnsOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	experiment := f.experiment(t, "exp1")
	run, err := experiment.CreateRun(ctx, "r1", "")
	require.NoError(t, err)
	require.NoError(t, run.LogParams(ctx, map[string]interface{}{"lr": 0.1}))
	require.NoError(t, run.LogMetrics(ctx, map[string]float64{"acc": 0.9}))
	require.NoError(t, run.End(ctx, metadata.ExecutionStateComplete))

	rows, err := experiment.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"experiment_name", "run_name", "run_type", "state", "param.lr", "metric.acc"},
		Columns(rows))

	row := rows[0].ToMap()
	assert.Equal(t, "exp1", row["experiment_name"])
	assert.Equal(t, "r1", row["run_name"])
	assert.Equal(t, schema.TitleExperimentRun, row["run_type"])
	assert.Equal(t, "COMPLETE", row["state"])
	assert.Equal(t, 0.1, row["param.lr"])
	assert.Equal(t, 0.9, row["metric.acc"])
}

// seedPipelineRun wires a pipeline-run context under the experiment with a
// system.Run parameter execution, a DAG execution, and component executions
// producing metric artifacts.
func seedPipelineRun(t *testing.T, f *fixture, experiment *Experiment, components []struct {
	id      string
	params  map[string]interface{}
	metrics []map[string]interface{}
}) string {
	t.Helper()
	ctx := context.Background()
	parent := testScope.Parent()

	pipelineRun, err := f.store.CreateContext(ctx, parent, "pr1", &metadata.Context{
		SchemaTitle: schema.TitlePipelineRun,
		DisplayName: "pr1",
	})
	require.NoError(t, err)
	require.NoError(t, f.store.AddContextChildren(ctx, experiment.Name(), []string{pipelineRun.Name}))

	var executionNames, artifactNames []string

	runExec, err := f.store.CreateExecution(ctx, parent, "pr1-run", &metadata.Execution{
		SchemaTitle: schema.TitleRun,
		Metadata:    map[string]interface{}{"input:lr": 0.01},
	})
	require.NoError(t, err)
	executionNames = append(executionNames, runExec.Name)

	dagExec, err := f.store.CreateExecution(ctx, parent, "pr1-dag", &metadata.Execution{
		SchemaTitle: schema.TitleDagExecution,
	})
	require.NoError(t, err)
	executionNames = append(executionNames, dagExec.Name)

	for _, component := range components {
		execution, err := f.store.CreateExecution(ctx, parent, component.id, &metadata.Execution{
			SchemaTitle: schema.TitleContainerExecution,
			Metadata:    component.params,
		})
		require.NoError(t, err)
		executionNames = append(executionNames, execution.Name)

		for i, md := range component.metrics {
			artifact, err := f.store.CreateArtifact(ctx, parent, component.id+"-metrics-"+string(rune('a'+i)), &metadata.Artifact{
				SchemaTitle: schema.TitleMetrics,
				Metadata:    md,
			})
			require.NoError(t, err)
			artifactNames = append(artifactNames, artifact.Name)
			require.NoError(t, f.store.AddExecutionEvents(ctx, execution.Name, []metadata.Event{
				{Artifact: artifact.Name, Type: metadata.EventTypeOutput},
			}))
		}
	}

	require.NoError(t, f.store.AddContextArtifactsAndExecutions(ctx, pipelineRun.Name, artifactNames, executionNames))
	return pipelineRun.Name
}

func TestPipelineRunFanOutSingleMetric(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	experiment := f.experiment(t, "exp1")

	seedPipelineRun(t, f, experiment, []struct {
		id      string
		params  map[string]interface{}
		metrics []map[string]interface{}
	}{
		{id: "comp-a", params: map[string]interface{}{"input:depth": 3.0}, metrics: []map[string]interface{}{{"acc": 0.9}}},
		{id: "comp-b", params: map[string]interface{}{"input:depth": 5.0}, metrics: []map[string]interface{}{{"acc": 0.7}}},
	})

	rows, err := experiment.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, "pr1", row.RunName)
		assert.Equal(t, schema.TitlePipelineRun, row.RunType)
		// pipeline params fold in with the component's own
		assert.Equal(t, 0.01, row.Params["lr"])
	}
	depths := []interface{}{rows[0].Params["depth"], rows[1].Params["depth"]}
	assert.ElementsMatch(t, []interface{}{3.0, 5.0}, depths)
	accs := []interface{}{rows[0].Metrics["acc"], rows[1].Metrics["acc"]}
	assert.ElementsMatch(t, []interface{}{0.9, 0.7}, accs)
}

func TestPipelineRunFanOutMultipleMetrics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	experiment := f.experiment(t, "exp1")

	seedPipelineRun(t, f, experiment, []struct {
		id      string
		params  map[string]interface{}
		metrics []map[string]interface{}
	}{
		{
			id:     "comp-a",
			params: map[string]interface{}{"input:depth": 3.0},
			metrics: []map[string]interface{}{
				{"acc": 0.9},
				{"auPrc": 0.8},
			},
		},
	})

	rows, err := experiment.Rows(ctx)
	require.NoError(t, err)
	// one row per metric output plus the parameter-only row
	require.Len(t, rows, 3)

	var metricRows, paramRows int
	for _, row := range rows {
		assert.Equal(t, "pr1", row.RunName)
		if len(row.Metrics) > 0 {
			metricRows++
			assert.Empty(t, row.Params)
		} else {
			paramRows++
			assert.Equal(t, 3.0, row.Params["depth"])
		}
	}
	assert.Equal(t, 2, metricRows)
	assert.Equal(t, 1, paramRows)
}

func TestPipelineRunWithoutMetricsDropped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	experiment := f.experiment(t, "exp1")

	seedPipelineRun(t, f, experiment, []struct {
		id      string
		params  map[string]interface{}
		metrics []map[string]interface{}
	}{
		{id: "comp-a", params: map[string]interface{}{"input:depth": 3.0}},
	})

	rows, err := experiment.Rows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
