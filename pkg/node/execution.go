package node

import (
	"context"

	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

// Execution is a handle on a remote execution node.
type Execution struct {
	nodes *Nodes
	data  *metadata.Execution
}

type ExecutionSpec struct {
	ID            string
	SchemaTitle   string
	SchemaVersion string
	DisplayName   string
	Description   string
	Metadata      map[string]interface{}
	State         metadata.ExecutionState
}

func (n *Nodes) GetExecution(ctx context.Context, idOrName string) (*Execution, error) {
	name, err := n.scope.FullName(metadata.NounExecutions, idOrName)
	if err != nil {
		return nil, err
	}
	data, err := n.store.GetExecution(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Execution{nodes: n, data: data}, nil
}

func (n *Nodes) GetOrCreateExecution(ctx context.Context, spec ExecutionSpec) (*Execution, error) {
	name, err := n.scope.FullName(metadata.NounExecutions, spec.ID)
	if err != nil {
		return nil, err
	}

	var data *metadata.Execution
	err = retryOnCreateRace(func() error {
		existing, err := metadata.GetExecutionOrNull(ctx, n.store, name)
		if err != nil {
			return err
		}
		if existing != nil {
			data = existing
			return nil
		}
		created, err := n.store.CreateExecution(ctx, n.scope.Parent(), spec.ID, &metadata.Execution{
			DisplayName:   spec.DisplayName,
			Description:   spec.Description,
			SchemaTitle:   spec.SchemaTitle,
			SchemaVersion: spec.SchemaVersion,
			State:         spec.State,
			Metadata:      spec.Metadata,
		})
		if err != nil {
			return err
		}
		data = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Execution{nodes: n, data: data}, nil
}

func (n *Nodes) ListExecutions(ctx context.Context, filter string, orderBy string) ([]*Execution, error) {
	items, err := metadata.ListAllExecutions(ctx, n.store, n.scope.Parent(), metadata.ListOptions{
		Filter:  filter,
		OrderBy: orderBy,
	})
	if err != nil {
		return nil, err
	}
	executions := make([]*Execution, len(items))
	for i, item := range items {
		executions[i] = &Execution{nodes: n, data: item}
	}
	return executions, nil
}

// WrapExecution builds a handle around an already-fetched snapshot.
func (n *Nodes) WrapExecution(data *metadata.Execution) *Execution {
	return &Execution{nodes: n, data: data}
}

func (e *Execution) Name() string { return e.data.Name }
func (e *Execution) DisplayName() string { return e.data.DisplayName }
func (e *Execution) SchemaTitle() string { return e.data.SchemaTitle }
func (e *Execution) SchemaVersion() string { return e.data.SchemaVersion }
func (e *Execution) State() metadata.ExecutionState { return e.data.State }
func (e *Execution) Metadata() map[string]interface{} { return e.data.Metadata }
func (e *Execution) Snapshot() metadata.Execution { return *e.data }

type UpdateExecutionOptions struct {
	Metadata    map[string]interface{}
	DisplayName *string
	Description *string
	State       metadata.ExecutionState
}

func (e *Execution) Update(ctx context.Context, opts UpdateExecutionOptions) error {
	if opts.State != "" {
		if err := e.checkTransition(opts.State); err != nil {
			return err
		}
	}
	return retryOnConflict(ctx, func() error {
		snapshot := *e.data
		snapshot.Metadata = metadata.MergeMetadata(e.data.Metadata, opts.Metadata)
		if opts.DisplayName != nil {
			snapshot.DisplayName = *opts.DisplayName
		}
		if opts.Description != nil {
			snapshot.Description = *opts.Description
		}
		if opts.State != "" {
			snapshot.State = opts.State
		}

		updated, err := e.nodes.store.UpdateExecution(ctx, &snapshot)
		if metadata.IsConflict(err) {
			if fresh, gerr := e.nodes.store.GetExecution(ctx, e.data.Name); gerr == nil {
				e.data = fresh
			}
			return err
		}
		if err != nil {
			return err
		}
		e.data = updated
		return nil
	})
}

// checkTransition enforces the client-side state machine: NEW -> RUNNING ->
// one of the terminal states, and nothing after that.
func (e *Execution) checkTransition(next metadata.ExecutionState) error {
	current := e.data.State
	if current.Terminal() {
		return errors.Wrapf(metadata.ErrIllegalTransition, "%s is already %s", e.data.Name, current)
	}
	if current == metadata.ExecutionStateNew && next != metadata.ExecutionStateRunning && !next.Terminal() {
		return errors.Wrapf(metadata.ErrIllegalTransition, "%s cannot move from NEW to %s", e.data.Name, next)
	}
	return nil
}

// UpdateState transitions the execution state.
func (e *Execution) UpdateState(ctx context.Context, state metadata.ExecutionState) error {
	return e.Update(ctx, UpdateExecutionOptions{State: state})
}

func (e *Execution) Sync(ctx context.Context) error {
	fresh, err := e.nodes.store.GetExecution(ctx, e.data.Name)
	if err != nil {
		return err
	}
	e.data = fresh
	return nil
}

func (e *Execution) Delete(ctx context.Context) error {
	return e.nodes.store.DeleteExecution(ctx, e.data.Name)
}

// AssignInputArtifacts records INPUT events from the given artifacts,
// de-duplicated by resource name.
func (e *Execution) AssignInputArtifacts(ctx context.Context, artifacts ...*Artifact) error {
	return e.assignArtifacts(ctx, metadata.EventTypeInput, artifacts)
}

// AssignOutputArtifacts records OUTPUT events to the given artifacts,
// de-duplicated by resource name.
func (e *Execution) AssignOutputArtifacts(ctx context.Context, artifacts ...*Artifact) error {
	return e.assignArtifacts(ctx, metadata.EventTypeOutput, artifacts)
}

func (e *Execution) assignArtifacts(ctx context.Context, eventType metadata.EventType, artifacts []*Artifact) error {
	names := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		names = append(names, artifact.Name())
	}
	names = dedupeNames(names)
	if len(names) == 0 {
		return nil
	}
	events := make([]metadata.Event, len(names))
	for i, name := range names {
		events[i] = metadata.Event{Artifact: name, Type: eventType}
	}
	return e.nodes.store.AddExecutionEvents(ctx, e.data.Name, events)
}

// InputsAndOutputs resolves the events recorded on this execution.
func (e *Execution) InputsAndOutputs(ctx context.Context) (*metadata.LineageSubgraph, error) {
	return e.nodes.store.QueryExecutionInputsAndOutputs(ctx, e.data.Name)
}

// Scoped runs fn with the execution held RUNNING. A nil return transitions
// to COMPLETE, an error or panic to FAILED; the terminal write happens on
// every exit path.
func (e *Execution) Scoped(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if e.data.State == metadata.ExecutionStateNew {
		if serr := e.UpdateState(ctx, metadata.ExecutionStateRunning); serr != nil {
			return serr
		}
	}

	defer func() {
		if r := recover(); r != nil {
			_ = e.UpdateState(ctx, metadata.ExecutionStateFailed)
			panic(r)
		}
		final := metadata.ExecutionStateComplete
		if err != nil {
			final = metadata.ExecutionStateFailed
		}
		if serr := e.UpdateState(ctx, final); serr != nil && err == nil {
			err = serr
		}
	}()

	err = fn(ctx)
	return err
}
