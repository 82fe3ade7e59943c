package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCreatesSchemaOnce(t *testing.T) {
	store := NewStoreMock()
	registry := NewSchemaRegistry(store, testScope)

	require.NoError(t, registry.Ensure(context.Background(), "system.ExperimentRun", "0.0.1", SchemaTypeContext))
	require.Len(t, store.Schemas, 1)

	name := testScope.Parent() + "/metadataSchemas/system-experimentrun"
	created, ok := store.Schemas[name]
	require.True(t, ok)
	assert.Equal(t, "0.0.1", created.SchemaVersion)
	assert.Equal(t, SchemaTypeContext, created.SchemaType)

	require.NoError(t, registry.Ensure(context.Background(), "system.ExperimentRun", "0.0.1", SchemaTypeContext))
	assert.Len(t, store.Schemas, 1)
}

func TestEnsureToleratesExistingSchema(t *testing.T) {
	store := NewStoreMock()
	_, err := store.CreateMetadataSchema(context.Background(), testScope.Parent(), "system-run", &MetadataSchema{
		SchemaVersion: "0.0.1",
		SchemaType:    SchemaTypeExecution,
	})
	require.NoError(t, err)

	registry := NewSchemaRegistry(store, testScope)
	require.NoError(t, registry.Ensure(context.Background(), "system.Run", "0.0.1", SchemaTypeExecution))
	assert.Len(t, store.Schemas, 1)
}
