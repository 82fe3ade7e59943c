package metadata

import (
	"context"
)

// ListOptions are the query knobs shared by every list call.
type ListOptions struct {
	Filter    string `json:"filter,omitempty"`
	OrderBy   string `json:"orderBy,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ArtifactStore interface {
	GetArtifact(ctx context.Context, name string) (*Artifact, error)
	CreateArtifact(ctx context.Context, parent, id string, artifact *Artifact) (*Artifact, error)
	UpdateArtifact(ctx context.Context, artifact *Artifact) (*Artifact, error)
	ListArtifacts(ctx context.Context, parent string, opts ListOptions) ([]*Artifact, string, error)
	DeleteArtifact(ctx context.Context, name string) error
}

type ExecutionStore interface {
	GetExecution(ctx context.Context, name string) (*Execution, error)
	CreateExecution(ctx context.Context, parent, id string, execution *Execution) (*Execution, error)
	UpdateExecution(ctx context.Context, execution *Execution) (*Execution, error)
	ListExecutions(ctx context.Context, parent string, opts ListOptions) ([]*Execution, string, error)
	DeleteExecution(ctx context.Context, name string) error
	AddExecutionEvents(ctx context.Context, execution string, events []Event) error
	QueryExecutionInputsAndOutputs(ctx context.Context, execution string) (*LineageSubgraph, error)
}

type ContextStore interface {
	GetContext(ctx context.Context, name string) (*Context, error)
	CreateContext(ctx context.Context, parent, id string, c *Context) (*Context, error)
	UpdateContext(ctx context.Context, c *Context) (*Context, error)
	ListContexts(ctx context.Context, parent string, opts ListOptions) ([]*Context, string, error)
	DeleteContext(ctx context.Context, name string) error
	AddContextChildren(ctx context.Context, parent string, children []string) error
	AddContextArtifactsAndExecutions(ctx context.Context, c string, artifacts, executions []string) error
	QueryContextLineageSubgraph(ctx context.Context, c string) (*LineageSubgraph, error)
}

type SchemaStore interface {
	GetMetadataSchema(ctx context.Context, name string) (*MetadataSchema, error)
	CreateMetadataSchema(ctx context.Context, parent, id string, schema *MetadataSchema) (*MetadataSchema, error)
}

// Store is the narrow surface the SDK consumes from the metadata service.
// Every method returns taxonomy errors (ErrNotFound, ErrAlreadyExists,
// ErrConflict) for the failures callers are expected to recover from.
type Store interface {
	ArtifactStore
	ExecutionStore
	ContextStore
	SchemaStore
}

// GetArtifactOrNull converts ErrNotFound into an absent result for the
// get-or-create path. Sibling helpers below do the same per kind.
func GetArtifactOrNull(ctx context.Context, store ArtifactStore, name string) (*Artifact, error) {
	artifact, err := store.GetArtifact(ctx, name)
	if IsNotFound(err) {
		return nil, nil
	}
	return artifact, err
}

func GetExecutionOrNull(ctx context.Context, store ExecutionStore, name string) (*Execution, error) {
	execution, err := store.GetExecution(ctx, name)
	if IsNotFound(err) {
		return nil, nil
	}
	return execution, err
}

func GetContextOrNull(ctx context.Context, store ContextStore, name string) (*Context, error) {
	c, err := store.GetContext(ctx, name)
	if IsNotFound(err) {
		return nil, nil
	}
	return c, err
}
