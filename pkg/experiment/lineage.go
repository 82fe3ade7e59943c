package experiment

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/schema"
)

// Rows projects every run of the experiment into the row surface: run and
// pipeline-run contexts found via parent_contexts, plus legacy execution runs
// found via in_context. Each node is projected in its own worker; all
// projection errors are drained before the first surfaces.
func (e *Experiment) Rows(ctx context.Context) ([]Row, error) {
	contextFilter := metadata.NewFilter().
		SchemaTitle(schema.TitleExperimentRun, schema.TitlePipelineRun).
		ParentContexts(e.Name()).
		String()
	contexts, err := e.client.nodes.ListContexts(ctx, contextFilter, "")
	if err != nil {
		return nil, err
	}

	executionFilter := metadata.NewFilter().
		SchemaTitle(schema.TitleRun).
		InContext(e.Name()).
		String()
	executions, err := e.client.nodes.ListExecutions(ctx, executionFilter, "")
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var merr *multierror.Error
	var rows []Row
	collect := func(projected []Row, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			merr = multierror.Append(merr, err)
			return
		}
		rows = append(rows, projected...)
	}

	g := &errgroup.Group{}
	g.SetLimit(fanOutLimit)
	for _, item := range contexts {
		item := item
		g.Go(func() error {
			switch item.SchemaTitle() {
			case schema.TitlePipelineRun:
				collect(e.projectPipelineRun(ctx, item))
			default:
				collect(e.projectRunContext(ctx, item))
			}
			return nil
		})
	}
	for _, item := range executions {
		item := item
		g.Go(func() error {
			collect(e.projectLegacyExecution(ctx, item))
			return nil
		})
	}
	_ = g.Wait()

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RunName < rows[j].RunName })
	return rows, nil
}

func (e *Experiment) runNameFromID(id string) string {
	return strings.TrimPrefix(shortID(id), e.ID()+"-")
}

func (e *Experiment) projectRunContext(ctx context.Context, item *node.Context) ([]Row, error) {
	run := &ExperimentRun{
		experiment: e,
		name:       e.runNameFromID(item.Name()),
		context:    item,
	}
	if err := run.bindTensorboardRef(ctx); err != nil {
		return nil, err
	}
	timeSeries, err := run.TimeSeriesMetrics(ctx)
	if err != nil {
		return nil, err
	}
	return []Row{{
		ExperimentName:    e.ID(),
		RunName:           run.Name(),
		RunType:           item.SchemaTitle(),
		State:             string(run.State()),
		Params:            run.Params(),
		Metrics:           run.Metrics(),
		TimeSeriesMetrics: timeSeries,
	}}, nil
}

func (e *Experiment) projectLegacyExecution(ctx context.Context, item *node.Execution) ([]Row, error) {
	run := &ExperimentRun{
		experiment: e,
		name:       e.runNameFromID(item.Name()),
		execution:  item,
	}
	artifact, err := metadata.GetArtifactOrNull(ctx, e.client.nodes.Store(), mustFullName(e, metadata.NounArtifacts, e.runID(run.name)+metricsArtifactSuffix))
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		run.metricsArtifact = e.client.nodes.WrapArtifact(artifact)
	}
	return []Row{{
		ExperimentName: e.ID(),
		RunName:        run.Name(),
		RunType:        item.SchemaTitle(),
		State:          string(run.State()),
		Params:         run.Params(),
		Metrics:        run.Metrics(),
	}}, nil
}

func mustFullName(e *Experiment, noun, id string) string {
	name, err := e.client.nodes.Scope().FullName(noun, id)
	if err != nil {
		return id
	}
	return name
}

// projectPipelineRun expands one pipeline-run context into rows, one per
// component execution with metric outputs. The system.Run execution carries
// the pipeline parameters; control-flow DAG executions are skipped.
func (e *Experiment) projectPipelineRun(ctx context.Context, item *node.Context) ([]Row, error) {
	subgraph, err := item.LineageSubgraph(ctx)
	if err != nil {
		return nil, err
	}

	artifactByName := make(map[string]*metadata.Artifact, len(subgraph.Artifacts))
	for _, artifact := range subgraph.Artifacts {
		artifactByName[artifact.Name] = artifact
	}
	outputsByExecution := make(map[string][]string)
	for _, event := range subgraph.Events {
		if event.Type == metadata.EventTypeOutput {
			outputsByExecution[event.Execution] = append(outputsByExecution[event.Execution], event.Artifact)
		}
	}

	pipelineParams := map[string]interface{}{}
	type component struct {
		params  map[string]interface{}
		metrics []map[string]interface{}
	}
	var components []component

	for _, execution := range subgraph.Executions {
		switch execution.SchemaTitle {
		case schema.TitleRun:
			pipelineParams = stripParamPrefix(execution.Metadata)
		case schema.TitleDagExecution:
			continue
		default:
			comp := component{params: stripParamPrefix(execution.Metadata)}
			for _, artifactName := range outputsByExecution[execution.Name] {
				artifact := artifactByName[artifactName]
				if artifact == nil || artifact.SchemaTitle != schema.TitleMetrics || len(artifact.Metadata) == 0 {
					continue
				}
				comp.metrics = append(comp.metrics, artifact.Metadata)
			}
			if len(comp.metrics) > 0 {
				components = append(components, comp)
			}
		}
	}

	identity := Row{
		ExperimentName: e.ID(),
		RunName:        item.DisplayName(),
		RunType:        schema.TitlePipelineRun,
	}
	if identity.RunName == "" {
		identity.RunName = shortID(item.Name())
	}

	var rows []Row
	for _, comp := range components {
		params := metadata.MergeMetadata(pipelineParams, comp.params)
		if len(comp.metrics) == 1 {
			row := identity
			row.Params = params
			row.Metrics = comp.metrics[0]
			rows = append(rows, row)
			continue
		}
		for _, metrics := range comp.metrics {
			row := identity
			row.Metrics = metrics
			rows = append(rows, row)
		}
		paramRow := identity
		paramRow.Params = params
		rows = append(rows, paramRow)
	}
	return rows, nil
}

func stripParamPrefix(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for key, value := range md {
		out[strings.TrimPrefix(key, schema.PipelineParamPrefix)] = value
	}
	return out
}
