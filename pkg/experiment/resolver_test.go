package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

const testModel = "projects/proj/locations/us-central1/models/m1"

func TestResolveVertexResourceCreatesMirror(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	artifact, err := f.client.ResolveVertexResource(ctx, testModel)
	require.NoError(t, err)
	assert.Equal(t, schema.TitleVertexModel, artifact.SchemaTitle())
	assert.Equal(t, "m1", artifact.DisplayName())
	assert.Equal(t, "https://us-central1-aiplatform.googleapis.com/v1/"+testModel, artifact.Uri())
	assert.Equal(t, testModel, artifact.Metadata()[schema.KeyResourceName])
}

func TestResolveVertexResourceReusesMirror(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.client.ResolveVertexResource(ctx, testModel)
	require.NoError(t, err)
	second, err := f.client.ResolveVertexResource(ctx, testModel)
	require.NoError(t, err)

	assert.Equal(t, first.Name(), second.Name())
	assert.Len(t, f.store.Artifacts, 1)
}

func TestResolveVertexResourceUnsupportedKind(t *testing.T) {
	f := newFixture()
	_, err := f.client.ResolveVertexResource(context.Background(), "projects/proj/locations/us-central1/customJobs/j1")
	assert.ErrorIs(t, err, ErrUnsupportedResource)
}

func TestResolveVertexResourcesPreservesOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	dataset := "projects/proj/locations/us-central1/datasets/d1"
	artifacts, err := f.client.ResolveVertexResources(ctx, []string{testModel, dataset})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, schema.TitleVertexModel, artifacts[0].SchemaTitle())
	assert.Equal(t, schema.TitleVertexDataset, artifacts[1].SchemaTitle())
}
