package tensorboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunName = "projects/p/locations/l/tensorboards/t/experiments/e/runs/r"

func newTestRun(t *testing.T) (*RunHandle, *ServiceMock) {
	service := NewServiceMock()
	_, err := service.CreateExperiment(context.Background(), "projects/p/locations/l/tensorboards/t", "e", &Experiment{DisplayName: "e"})
	require.NoError(t, err)
	_, err = service.CreateRun(context.Background(), "projects/p/locations/l/tensorboards/t/experiments/e", "r", &Run{DisplayName: "r"})
	require.NoError(t, err)
	return NewRunHandle(service, testRunName), service
}

func seriesByDisplayName(t *testing.T, service *ServiceMock, displayName string) string {
	t.Helper()
	for _, series := range service.Series[testRunName] {
		if series.DisplayName == displayName {
			return seriesID(series.Name)
		}
	}
	t.Fatalf("no series named %s", displayName)
	return ""
}

func stepsOf(service *ServiceMock, id string) []int64 {
	var steps []int64
	for _, point := range service.Data[testRunName][id] {
		steps = append(steps, point.Step)
	}
	return steps
}

func TestWriteScalarsBootstrapsSeries(t *testing.T) {
	run, service := newTestRun(t)
	ctx := context.Background()

	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.7, "loss": 0.3}, nil, nil))
	require.Len(t, service.Series[testRunName], 2)

	accID := seriesByDisplayName(t, service, "acc")
	lossID := seriesByDisplayName(t, service, "loss")
	assert.Equal(t, []int64{1}, stepsOf(service, accID))
	assert.Equal(t, []int64{1}, stepsOf(service, lossID))

	// second write with no step lands one past the first
	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.8}, nil, nil))
	assert.Equal(t, []int64{1, 2}, stepsOf(service, accID))
}

func TestWriteScalarsResumesFromServerStep(t *testing.T) {
	run, service := newTestRun(t)
	ctx := context.Background()

	series, err := service.CreateTimeSeries(ctx, testRunName, &TimeSeries{DisplayName: "acc", ValueType: ValueTypeScalar})
	require.NoError(t, err)
	require.NoError(t, service.WriteRunData(ctx, testRunName, []TimeSeriesData{{
		TimeSeriesId: seriesID(series.Name),
		Values:       []TimeSeriesDataPoint{{Step: 7, Scalar: Scalar{Value: 0.5}}},
	}}))

	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.9}, nil, nil))
	assert.Equal(t, []int64{7, 8}, stepsOf(service, seriesID(series.Name)))
}

func TestWriteScalarsExplicitStep(t *testing.T) {
	run, service := newTestRun(t)
	ctx := context.Background()

	step := int64(10)
	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.5}, &step, nil))
	accID := seriesByDisplayName(t, service, "acc")
	assert.Equal(t, []int64{10}, stepsOf(service, accID))

	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.6}, nil, nil))
	assert.Equal(t, []int64{10, 11}, stepsOf(service, accID))
}

func TestWriteScalarsWallTime(t *testing.T) {
	run, service := newTestRun(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.5}, nil, &at))
	accID := seriesByDisplayName(t, service, "acc")
	require.Len(t, service.Data[testRunName][accID], 1)
	assert.Equal(t, at, service.Data[testRunName][accID][0].WallTime)
}

func TestLatestScalars(t *testing.T) {
	run, _ := newTestRun(t)
	ctx := context.Background()

	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.5, "loss": 0.9}, nil, nil))
	require.NoError(t, run.WriteScalars(ctx, map[string]float64{"acc": 0.8}, nil, nil))

	latest, err := run.LatestScalars(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"acc": 0.8, "loss": 0.9}, latest)
}

func TestLatestScalarsEmptyRun(t *testing.T) {
	run, _ := newTestRun(t)
	latest, err := run.LatestScalars(context.Background())
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestWriteScalarsEmptyBatch(t *testing.T) {
	run, service := newTestRun(t)
	require.NoError(t, run.WriteScalars(context.Background(), nil, nil, nil))
	assert.Zero(t, service.WriteCalls)
}
