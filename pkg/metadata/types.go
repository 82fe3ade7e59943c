package metadata

import "time"

type LifecycleState string

const (
	LifecycleStatePending LifecycleState = "PENDING"
	LifecycleStateLive    LifecycleState = "LIVE"
	LifecycleStateDeleted LifecycleState = "DELETED"
)

type ExecutionState string

const (
	ExecutionStateNew       ExecutionState = "NEW"
	ExecutionStateRunning   ExecutionState = "RUNNING"
	ExecutionStateComplete  ExecutionState = "COMPLETE"
	ExecutionStateFailed    ExecutionState = "FAILED"
	ExecutionStateCached    ExecutionState = "CACHED"
	ExecutionStateCancelled ExecutionState = "CANCELLED"
)

// Terminal reports whether no further state writes are accepted.
func (s ExecutionState) Terminal() bool {
	switch s {
	case ExecutionStateComplete, ExecutionStateFailed, ExecutionStateCached, ExecutionStateCancelled:
		return true
	}
	return false
}

type EventType string

const (
	EventTypeInput  EventType = "INPUT"
	EventTypeOutput EventType = "OUTPUT"
)

type Artifact struct {
	Name          string                 `json:"name,omitempty"`
	DisplayName   string                 `json:"displayName,omitempty"`
	Uri           string                 `json:"uri,omitempty"`
	Etag          string                 `json:"etag,omitempty"`
	SchemaTitle   string                 `json:"schemaTitle,omitempty"`
	SchemaVersion string                 `json:"schemaVersion,omitempty"`
	State         LifecycleState         `json:"state,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreateTime    time.Time              `json:"createTime,omitempty"`
	UpdateTime    time.Time              `json:"updateTime,omitempty"`
}

type Execution struct {
	Name          string                 `json:"name,omitempty"`
	DisplayName   string                 `json:"displayName,omitempty"`
	Etag          string                 `json:"etag,omitempty"`
	SchemaTitle   string                 `json:"schemaTitle,omitempty"`
	SchemaVersion string                 `json:"schemaVersion,omitempty"`
	State         ExecutionState         `json:"state,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreateTime    time.Time              `json:"createTime,omitempty"`
	UpdateTime    time.Time              `json:"updateTime,omitempty"`
}

type Context struct {
	Name           string                 `json:"name,omitempty"`
	DisplayName    string                 `json:"displayName,omitempty"`
	Etag           string                 `json:"etag,omitempty"`
	SchemaTitle    string                 `json:"schemaTitle,omitempty"`
	SchemaVersion  string                 `json:"schemaVersion,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	ParentContexts []string               `json:"parentContexts,omitempty"`
	CreateTime     time.Time              `json:"createTime,omitempty"`
	UpdateTime     time.Time              `json:"updateTime,omitempty"`
}

// Event is a typed edge between an execution and an artifact.
type Event struct {
	Artifact  string    `json:"artifact,omitempty"`
	Execution string    `json:"execution,omitempty"`
	Type      EventType `json:"type,omitempty"`
}

// LineageSubgraph is the answer to both lineage queries: the nodes and edges
// reachable from a starting context or execution.
type LineageSubgraph struct {
	Artifacts  []*Artifact  `json:"artifacts,omitempty"`
	Executions []*Execution `json:"executions,omitempty"`
	Events     []Event      `json:"events,omitempty"`
}

type SchemaType string

const (
	SchemaTypeArtifact  SchemaType = "ARTIFACT_TYPE"
	SchemaTypeExecution SchemaType = "EXECUTION_TYPE"
	SchemaTypeContext   SchemaType = "CONTEXT_TYPE"
)

type MetadataSchema struct {
	Name          string     `json:"name,omitempty"`
	SchemaVersion string     `json:"schemaVersion,omitempty"`
	Schema        string     `json:"schema,omitempty"`
	SchemaType    SchemaType `json:"schemaType,omitempty"`
	Description   string     `json:"description,omitempty"`
	CreateTime    time.Time  `json:"createTime,omitempty"`
}
