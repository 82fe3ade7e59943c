package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

// DefaultVertexHost is the API host URIs derive against unless overridden.
const DefaultVertexHost = "aiplatform.googleapis.com"

var vertexResourcePattern = regexp.MustCompile(`^projects/[\w-]+/locations/([\w-]+)(/metadataStores/[\w-]+)?(/[\w-]+/[\w-]+)+$`)

// VertexURI derives the canonical URI of a Vertex resource:
// https://{location}-{host}/v1/{resource_name}.
func VertexURI(resourceName, host string) (string, error) {
	if host == "" {
		host = DefaultVertexHost
	}
	match := vertexResourcePattern.FindStringSubmatch(resourceName)
	if match == nil {
		return "", errors.Wrap(metadata.ErrMalformedResourceName, resourceName)
	}
	return fmt.Sprintf("https://%s-%s/v1/%s", match[1], host, resourceName), nil
}

// vertexArtifactTitles maps a Vertex resource collection to the artifact
// schema that mirrors it. Resources outside this set cannot be lineage nodes.
var vertexArtifactTitles = map[string]string{
	"datasets":  TitleVertexDataset,
	"models":    TitleVertexModel,
	"endpoints": TitleVertexEndpoint,
}

// ArtifactTitleForResource picks the artifact schema for a Vertex resource
// name, or ok=false when the resource kind is not supported.
func ArtifactTitleForResource(resourceName string) (string, bool) {
	parts := strings.Split(resourceName, "/")
	if len(parts) < 2 {
		return "", false
	}
	title, ok := vertexArtifactTitles[parts[len(parts)-2]]
	return title, ok
}
