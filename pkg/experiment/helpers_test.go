package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/tensorboard"
)

var testScope = metadata.Scope{Project: "proj", Location: "us-central1", MetadataStore: "default"}

const testTensorboard = "projects/proj/locations/us-central1/tensorboards/tb1"

type fixture struct {
	client  *Client
	store   *metadata.StoreMock
	service *tensorboard.ServiceMock
}

func newFixture() *fixture {
	store := metadata.NewStoreMock()
	service := tensorboard.NewServiceMock()
	nodes := node.New(store, testScope)
	registry := metadata.NewSchemaRegistry(store, testScope)
	return &fixture{
		client:  NewClient(nodes, registry, service),
		store:   store,
		service: service,
	}
}

func (f *fixture) experiment(t *testing.T, id string) *Experiment {
	t.Helper()
	experiment, err := f.client.GetOrCreateExperiment(context.Background(), id, "")
	require.NoError(t, err)
	return experiment
}

func (f *fixture) contextName(t *testing.T, id string) string {
	t.Helper()
	name, err := f.client.nodes.Scope().FullName(metadata.NounContexts, id)
	require.NoError(t, err)
	return name
}
