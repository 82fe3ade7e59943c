// Package schema is the closed catalog of node schema classes: the titles
// the service recognizes, the typed fields each projects into the generic
// metadata map, and the derived URIs of Vertex-backed artifacts.
package schema

import (
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

type Kind string

const (
	KindArtifact  Kind = "artifact"
	KindExecution Kind = "execution"
	KindContext   Kind = "context"
)

// DefaultVersion is used whenever the caller does not pin a schema version.
const DefaultVersion = "0.0.1"

const (
	TitleArtifact                = "system.Artifact"
	TitleDataset                 = "system.Dataset"
	TitleModel                   = "system.Model"
	TitleMetrics                 = "system.Metrics"
	TitleExperiment              = "system.Experiment"
	TitleExperimentRun           = "system.ExperimentRun"
	TitleRun                     = "system.Run"
	TitlePipeline                = "system.Pipeline"
	TitlePipelineRun             = "system.PipelineRun"
	TitleContainerExecution      = "system.ContainerExecution"
	TitleCustomJobExecution      = "system.CustomJobExecution"
	TitleDagExecution            = "system.DagExecution"
	TitleVertexDataset           = "google.VertexDataset"
	TitleVertexModel             = "google.VertexModel"
	TitleVertexEndpoint          = "google.VertexEndpoint"
	TitleUnmanagedContainerModel = "google.UnmanagedContainerModel"
	TitleClassificationMetrics   = "google.ClassificationMetrics"
	TitleRegressionMetrics       = "google.RegressionMetrics"
	TitleForecastingMetrics      = "google.ForecastingMetrics"
	TitleTensorboardRunReference = "google-tensorboard-run-reference"
)

type Entry struct {
	Title          string
	Kind           Kind
	DefaultVersion string
	SchemaType     metadata.SchemaType
}

var catalog = map[string]Entry{}

func register(title string, kind Kind) {
	schemaType := metadata.SchemaTypeArtifact
	switch kind {
	case KindExecution:
		schemaType = metadata.SchemaTypeExecution
	case KindContext:
		schemaType = metadata.SchemaTypeContext
	}
	catalog[title] = Entry{
		Title:          title,
		Kind:           kind,
		DefaultVersion: DefaultVersion,
		SchemaType:     schemaType,
	}
}

func init() {
	for _, title := range []string{
		TitleArtifact, TitleDataset, TitleModel, TitleMetrics,
		TitleVertexDataset, TitleVertexModel, TitleVertexEndpoint,
		TitleUnmanagedContainerModel, TitleClassificationMetrics,
		TitleRegressionMetrics, TitleForecastingMetrics,
		TitleTensorboardRunReference,
	} {
		register(title, KindArtifact)
	}
	for _, title := range []string{
		TitleRun, TitleContainerExecution, TitleCustomJobExecution, TitleDagExecution,
	} {
		register(title, KindExecution)
	}
	for _, title := range []string{
		TitleExperiment, TitleExperimentRun, TitlePipeline, TitlePipelineRun,
	} {
		register(title, KindContext)
	}
}

// Lookup resolves a schema title against the closed catalog.
func Lookup(title string) (Entry, bool) {
	entry, ok := catalog[title]
	return entry, ok
}

// Well-known metadata keys.
const (
	KeyResourceName       = "resourceName"
	KeyParams             = "_params"
	KeyMetrics            = "_metrics"
	KeyState              = "_state"
	KeyBackingTensorboard = "backing_tensorboard_resource"
	KeyExperimentDeleted  = "experiment_deleted"
	KeyVertexTracking     = "vertex_experiment_tracking"

	// PipelineParamPrefix marks pipeline parameter keys on system.Run
	// executions and is stripped during row projection.
	PipelineParamPrefix = "input:"
)
