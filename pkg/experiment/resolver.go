package experiment

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

// ResolveVertexResource maps a Vertex resource name onto the artifact that
// mirrors it in the metadata store. Lookup is by (schema title, derived URI),
// most recent first; a miss creates the mirror artifact with
// metadata.resourceName pointing back at the source.
func (c *Client) ResolveVertexResource(ctx context.Context, resourceName string) (*node.Artifact, error) {
	title, ok := schema.ArtifactTitleForResource(resourceName)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedResource, resourceName)
	}
	uri, err := schema.VertexURI(resourceName, "")
	if err != nil {
		return nil, err
	}

	filter := metadata.NewFilter().SchemaTitle(title).Uri(uri).String()
	existing, err := c.nodes.ListArtifacts(ctx, filter, "create_time desc")
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	if err := c.registry.Ensure(ctx, title, schema.DefaultVersion, metadata.SchemaTypeArtifact); err != nil {
		return nil, err
	}
	return c.nodes.CreateArtifact(ctx, node.ArtifactSpec{
		ID:            "vertex-" + uuid.NewString(),
		SchemaTitle:   title,
		SchemaVersion: schema.DefaultVersion,
		DisplayName:   shortID(resourceName),
		Uri:           uri,
		State:         metadata.LifecycleStateLive,
		Metadata: map[string]interface{}{
			schema.KeyResourceName: resourceName,
		},
	})
}

// ResolveVertexResources resolves several resource names, preserving order.
func (c *Client) ResolveVertexResources(ctx context.Context, resourceNames []string) ([]*node.Artifact, error) {
	artifacts := make([]*node.Artifact, 0, len(resourceNames))
	for _, resourceName := range resourceNames {
		artifact, err := c.ResolveVertexResource(ctx, resourceName)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}
