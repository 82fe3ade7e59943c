package node

import (
	"context"

	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

// Artifact is a handle on a remote artifact node.
type Artifact struct {
	nodes *Nodes
	data  *metadata.Artifact
}

// ArtifactSpec describes the node a get-or-create materializes. On a hit the
// existing node wins and none of these fields are reconciled.
type ArtifactSpec struct {
	ID            string
	SchemaTitle   string
	SchemaVersion string
	DisplayName   string
	Description   string
	Uri           string
	Metadata      map[string]interface{}
	State         metadata.LifecycleState
}

func (n *Nodes) GetArtifact(ctx context.Context, idOrName string) (*Artifact, error) {
	name, err := n.scope.FullName(metadata.NounArtifacts, idOrName)
	if err != nil {
		return nil, err
	}
	data, err := n.store.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Artifact{nodes: n, data: data}, nil
}

func (n *Nodes) GetOrCreateArtifact(ctx context.Context, spec ArtifactSpec) (*Artifact, error) {
	name, err := n.scope.FullName(metadata.NounArtifacts, spec.ID)
	if err != nil {
		return nil, err
	}

	var data *metadata.Artifact
	err = retryOnCreateRace(func() error {
		existing, err := metadata.GetArtifactOrNull(ctx, n.store, name)
		if err != nil {
			return err
		}
		if existing != nil {
			data = existing
			return nil
		}
		created, err := n.store.CreateArtifact(ctx, n.scope.Parent(), spec.ID, &metadata.Artifact{
			DisplayName:   spec.DisplayName,
			Description:   spec.Description,
			Uri:           spec.Uri,
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
	return &Artifact{nodes: n, data: data}, nil
}

func (n *Nodes) CreateArtifact(ctx context.Context, spec ArtifactSpec) (*Artifact, error) {
	data, err := n.store.CreateArtifact(ctx, n.scope.Parent(), spec.ID, &metadata.Artifact{
		DisplayName:   spec.DisplayName,
		Description:   spec.Description,
		Uri:           spec.Uri,
		SchemaTitle:   spec.SchemaTitle,
		SchemaVersion: spec.SchemaVersion,
		State:         spec.State,
		Metadata:      spec.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &Artifact{nodes: n, data: data}, nil
}

// ListArtifacts materializes every artifact in scope matching filter and
// wraps the items as handles.
func (n *Nodes) ListArtifacts(ctx context.Context, filter string, orderBy string) ([]*Artifact, error) {
	items, err := metadata.ListAllArtifacts(ctx, n.store, n.scope.Parent(), metadata.ListOptions{
		Filter:  filter,
		OrderBy: orderBy,
	})
	if err != nil {
		return nil, err
	}
	artifacts := make([]*Artifact, len(items))
	for i, item := range items {
		artifacts[i] = &Artifact{nodes: n, data: item}
	}
	return artifacts, nil
}

// WrapArtifact builds a handle around an already-fetched snapshot.
func (n *Nodes) WrapArtifact(data *metadata.Artifact) *Artifact {
	return &Artifact{nodes: n, data: data}
}

func (a *Artifact) Name() string { return a.data.Name }
func (a *Artifact) DisplayName() string { return a.data.DisplayName }
func (a *Artifact) SchemaTitle() string { return a.data.SchemaTitle }
func (a *Artifact) SchemaVersion() string { return a.data.SchemaVersion }
func (a *Artifact) Uri() string { return a.data.Uri }
func (a *Artifact) State() metadata.LifecycleState { return a.data.State }
func (a *Artifact) Metadata() map[string]interface{} { return a.data.Metadata }
func (a *Artifact) Snapshot() metadata.Artifact { return *a.data }

// UpdateArtifactOptions is a partial write. Metadata deep-merges into the
// current snapshot; non-nil scalars replace.
type UpdateArtifactOptions struct {
	Metadata    map[string]interface{}
	DisplayName *string
	Description *string
	Uri         *string
	State       metadata.LifecycleState
}

// Update applies the patch with optimistic concurrency: on a version
// conflict the handle re-reads and re-applies the same patch, up to the
// retry budget.
func (a *Artifact) Update(ctx context.Context, opts UpdateArtifactOptions) error {
	return retryOnConflict(ctx, func() error {
		snapshot := *a.data
		snapshot.Metadata = metadata.MergeMetadata(a.data.Metadata, opts.Metadata)
		if opts.DisplayName != nil {
			snapshot.DisplayName = *opts.DisplayName
		}
		if opts.Description != nil {
			snapshot.Description = *opts.Description
		}
		if opts.Uri != nil {
			snapshot.Uri = *opts.Uri
		}
		if opts.State != "" {
			snapshot.State = opts.State
		}

		updated, err := a.nodes.store.UpdateArtifact(ctx, &snapshot)
		if metadata.IsConflict(err) {
			if fresh, gerr := a.nodes.store.GetArtifact(ctx, a.data.Name); gerr == nil {
				a.data = fresh
			}
			return err
		}
		if err != nil {
			return err
		}
		a.data = updated
		return nil
	})
}

// Sync discards the cached snapshot and re-reads the node.
func (a *Artifact) Sync(ctx context.Context) error {
	fresh, err := a.nodes.store.GetArtifact(ctx, a.data.Name)
	if err != nil {
		return err
	}
	a.data = fresh
	return nil
}

func (a *Artifact) Delete(ctx context.Context) error {
	return a.nodes.store.DeleteArtifact(ctx, a.data.Name)
}
