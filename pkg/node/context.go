package node

import (
	"context"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

// Context is a handle on a remote context node.
type Context struct {
	nodes *Nodes
	data  *metadata.Context
}

type ContextSpec struct {
	ID            string
	SchemaTitle   string
	SchemaVersion string
	DisplayName   string
	Description   string
	Metadata      map[string]interface{}
}

func (n *Nodes) GetContext(ctx context.Context, idOrName string) (*Context, error) {
	name, err := n.scope.FullName(metadata.NounContexts, idOrName)
	if err != nil {
		return nil, err
	}
	data, err := n.store.GetContext(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Context{nodes: n, data: data}, nil
}

func (n *Nodes) GetOrCreateContext(ctx context.Context, spec ContextSpec) (*Context, error) {
	name, err := n.scope.FullName(metadata.NounContexts, spec.ID)
	if err != nil {
		return nil, err
	}

	var data *metadata.Context
	err = retryOnCreateRace(func() error {
		existing, err := metadata.GetContextOrNull(ctx, n.store, name)
		if err != nil {
			return err
		}
		if existing != nil {
			data = existing
			return nil
		}
		created, err := n.store.CreateContext(ctx, n.scope.Parent(), spec.ID, &metadata.Context{
			DisplayName:   spec.DisplayName,
			Description:   spec.Description,
			SchemaTitle:   spec.SchemaTitle,
			SchemaVersion: spec.SchemaVersion,
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
	return &Context{nodes: n, data: data}, nil
}

func (n *Nodes) ListContexts(ctx context.Context, filter string, orderBy string) ([]*Context, error) {
	items, err := metadata.ListAllContexts(ctx, n.store, n.scope.Parent(), metadata.ListOptions{
		Filter:  filter,
		OrderBy: orderBy,
	})
	if err != nil {
		return nil, err
	}
	contexts := make([]*Context, len(items))
	for i, item := range items {
		contexts[i] = &Context{nodes: n, data: item}
	}
	return contexts, nil
}

// WrapContext builds a handle around an already-fetched snapshot, e.g. a
// node returned by a lineage query.
func (n *Nodes) WrapContext(data *metadata.Context) *Context {
	return &Context{nodes: n, data: data}
}

func (c *Context) Name() string { return c.data.Name }
func (c *Context) DisplayName() string { return c.data.DisplayName }
func (c *Context) SchemaTitle() string { return c.data.SchemaTitle }
func (c *Context) SchemaVersion() string { return c.data.SchemaVersion }
func (c *Context) Metadata() map[string]interface{} { return c.data.Metadata }
func (c *Context) ParentContexts() []string { return c.data.ParentContexts }
func (c *Context) Snapshot() metadata.Context { return *c.data }

type UpdateContextOptions struct {
	Metadata    map[string]interface{}
	DisplayName *string
	Description *string
}

func (c *Context) Update(ctx context.Context, opts UpdateContextOptions) error {
	return retryOnConflict(ctx, func() error {
		snapshot := *c.data
		snapshot.Metadata = metadata.MergeMetadata(c.data.Metadata, opts.Metadata)
		if opts.DisplayName != nil {
			snapshot.DisplayName = *opts.DisplayName
		}
		if opts.Description != nil {
			snapshot.Description = *opts.Description
		}

		updated, err := c.nodes.store.UpdateContext(ctx, &snapshot)
		if metadata.IsConflict(err) {
			if fresh, gerr := c.nodes.store.GetContext(ctx, c.data.Name); gerr == nil {
				c.data = fresh
			}
			return err
		}
		if err != nil {
			return err
		}
		c.data = updated
		return nil
	})
}

func (c *Context) Sync(ctx context.Context) error {
	fresh, err := c.nodes.store.GetContext(ctx, c.data.Name)
	if err != nil {
		return err
	}
	c.data = fresh
	return nil
}

func (c *Context) Delete(ctx context.Context) error {
	return c.nodes.store.DeleteContext(ctx, c.data.Name)
}

// AddChildren links the given contexts under this one. Membership is
// additive; the server rejects cycles.
func (c *Context) AddChildren(ctx context.Context, children ...*Context) error {
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.Name())
	}
	names = dedupeNames(names)
	if len(names) == 0 {
		return nil
	}
	return c.nodes.store.AddContextChildren(ctx, c.data.Name, names)
}

// AddMembers associates artifacts and executions with this context.
func (c *Context) AddMembers(ctx context.Context, artifacts []*Artifact, executions []*Execution) error {
	artifactNames := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		artifactNames = append(artifactNames, artifact.Name())
	}
	executionNames := make([]string, 0, len(executions))
	for _, execution := range executions {
		executionNames = append(executionNames, execution.Name())
	}
	artifactNames = dedupeNames(artifactNames)
	executionNames = dedupeNames(executionNames)
	if len(artifactNames) == 0 && len(executionNames) == 0 {
		return nil
	}
	return c.nodes.store.AddContextArtifactsAndExecutions(ctx, c.data.Name, artifactNames, executionNames)
}

// LineageSubgraph resolves the contexts, executions, artifacts, and events
// reachable from this context.
func (c *Context) LineageSubgraph(ctx context.Context) (*metadata.LineageSubgraph, error) {
	return c.nodes.store.QueryContextLineageSubgraph(ctx, c.data.Name)
}
