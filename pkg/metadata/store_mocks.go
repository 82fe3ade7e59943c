package metadata

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// StoreMock is an in-memory Store with the same contract as the REST client:
// taxonomy errors, etag checking on update, additive relations, and filter
// evaluation for the clause forms the SDK produces.
type StoreMock struct {
	mu sync.Mutex

	Artifacts  map[string]*Artifact
	Executions map[string]*Execution
	Contexts   map[string]*Context
	Schemas    map[string]*MetadataSchema

	ChildContexts     map[string][]string
	ContextArtifacts  map[string][]string
	ContextExecutions map[string][]string
	Events            []Event

	// UpdateConflicts forces the next N update calls to fail with ErrConflict
	// without applying anything.
	UpdateConflicts int
	// UpdateCalls counts update attempts, conflicted ones included.
	UpdateCalls int

	tick int64
}

var _ Store = &StoreMock{}

func NewStoreMock() *StoreMock {
	return &StoreMock{
		Artifacts:         make(map[string]*Artifact),
		Executions:        make(map[string]*Execution),
		Contexts:          make(map[string]*Context),
		Schemas:           make(map[string]*MetadataSchema),
		ChildContexts:     make(map[string][]string),
		ContextArtifacts:  make(map[string][]string),
		ContextExecutions: make(map[string][]string),
	}
}

func (m *StoreMock) now() time.Time {
	m.tick++
	return time.Unix(1700000000, 0).Add(time.Duration(m.tick) * time.Millisecond).UTC()
}

func (m *StoreMock) nextEtag(etag string) string {
	n, _ := strconv.Atoi(etag)
	return strconv.Itoa(n + 1)
}

func (m *StoreMock) GetArtifact(_ context.Context, name string) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	artifact, ok := m.Artifacts[name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	copied := *artifact
	copied.Metadata = CopyMetadata(artifact.Metadata)
	return &copied, nil
}

func (m *StoreMock) CreateArtifact(_ context.Context, parent, id string, artifact *Artifact) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/artifacts/" + id
	if _, ok := m.Artifacts[name]; ok {
		return nil, errors.Wrap(ErrAlreadyExists, name)
	}
	created := *artifact
	created.Name = name
	created.Etag = "1"
	created.CreateTime = m.now()
	created.UpdateTime = created.CreateTime
	if created.State == "" {
		created.State = LifecycleStateLive
	}
	created.Metadata = CopyMetadata(artifact.Metadata)
	m.Artifacts[name] = &created
	copied := created
	copied.Metadata = CopyMetadata(created.Metadata)
	return &copied, nil
}

func (m *StoreMock) UpdateArtifact(_ context.Context, artifact *Artifact) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateConflicts > 0 {
		m.UpdateConflicts--
		return nil, errors.Wrap(ErrConflict, artifact.Name)
	}
	existing, ok := m.Artifacts[artifact.Name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, artifact.Name)
	}
	if artifact.Etag != "" && artifact.Etag != existing.Etag {
		return nil, errors.Wrap(ErrConflict, artifact.Name)
	}
	updated := *artifact
	updated.CreateTime = existing.CreateTime
	updated.UpdateTime = m.now()
	updated.Etag = m.nextEtag(existing.Etag)
	updated.Metadata = CopyMetadata(artifact.Metadata)
	m.Artifacts[artifact.Name] = &updated
	copied := updated
	copied.Metadata = CopyMetadata(updated.Metadata)
	return &copied, nil
}

func (m *StoreMock) ListArtifacts(_ context.Context, _ string, opts ListOptions) ([]*Artifact, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*Artifact, 0)
	for _, artifact := range m.Artifacts {
		if m.matches(opts.Filter, filterTarget{
			name:        artifact.Name,
			schemaTitle: artifact.SchemaTitle,
			uri:         artifact.Uri,
			contexts:    m.contextsOfArtifact(artifact.Name),
			createTime:  artifact.CreateTime,
		}) {
			copied := *artifact
			copied.Metadata = CopyMetadata(artifact.Metadata)
			matched = append(matched, &copied)
		}
	}
	sortByCreateTime(matched, opts.OrderBy, func(a *Artifact) time.Time { return a.CreateTime }, func(a *Artifact) string { return a.Name })
	return matched, "", nil
}

func (m *StoreMock) DeleteArtifact(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Artifacts[name]; !ok {
		return errors.Wrap(ErrNotFound, name)
	}
	delete(m.Artifacts, name)
	return nil
}

func (m *StoreMock) GetExecution(_ context.Context, name string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	execution, ok := m.Executions[name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	copied := *execution
	copied.Metadata = CopyMetadata(execution.Metadata)
	return &copied, nil
}

func (m *StoreMock) CreateExecution(_ context.Context, parent, id string, execution *Execution) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/executions/" + id
	if _, ok := m.Executions[name]; ok {
		return nil, errors.Wrap(ErrAlreadyExists, name)
	}
	created := *execution
	created.Name = name
	created.Etag = "1"
	created.CreateTime = m.now()
	created.UpdateTime = created.CreateTime
	created.Metadata = CopyMetadata(execution.Metadata)
	m.Executions[name] = &created
	copied := created
	copied.Metadata = CopyMetadata(created.Metadata)
	return &copied, nil
}

func (m *StoreMock) UpdateExecution(_ context.Context, execution *Execution) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateConflicts > 0 {
		m.UpdateConflicts--
		return nil, errors.Wrap(ErrConflict, execution.Name)
	}
	existing, ok := m.Executions[execution.Name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, execution.Name)
	}
	if execution.Etag != "" && execution.Etag != existing.Etag {
		return nil, errors.Wrap(ErrConflict, execution.Name)
	}
	updated := *execution
	updated.CreateTime = existing.CreateTime
	updated.UpdateTime = m.now()
	updated.Etag = m.nextEtag(existing.Etag)
	updated.Metadata = CopyMetadata(execution.Metadata)
	m.Executions[execution.Name] = &updated
	copied := updated
	copied.Metadata = CopyMetadata(updated.Metadata)
	return &copied, nil
}

func (m *StoreMock) ListExecutions(_ context.Context, _ string, opts ListOptions) ([]*Execution, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*Execution, 0)
	for _, execution := range m.Executions {
		if m.matches(opts.Filter, filterTarget{
			name:        execution.Name,
			schemaTitle: execution.SchemaTitle,
			contexts:    m.contextsOfExecution(execution.Name),
			createTime:  execution.CreateTime,
		}) {
			copied := *execution
			copied.Metadata = CopyMetadata(execution.Metadata)
			matched = append(matched, &copied)
		}
	}
	sortByCreateTime(matched, opts.OrderBy, func(e *Execution) time.Time { return e.CreateTime }, func(e *Execution) string { return e.Name })
	return matched, "", nil
}

func (m *StoreMock) DeleteExecution(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Executions[name]; !ok {
		return errors.Wrap(ErrNotFound, name)
	}
	delete(m.Executions, name)
	return nil
}

func (m *StoreMock) AddExecutionEvents(_ context.Context, execution string, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Executions[execution]; !ok {
		return errors.Wrap(ErrNotFound, execution)
	}
	for _, event := range events {
		event.Execution = execution
		m.Events = append(m.Events, event)
	}
	return nil
}

func (m *StoreMock) QueryExecutionInputsAndOutputs(_ context.Context, execution string) (*LineageSubgraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Executions[execution]; !ok {
		return nil, errors.Wrap(ErrNotFound, execution)
	}
	subgraph := &LineageSubgraph{}
	seen := make(map[string]bool)
	for _, event := range m.Events {
		if event.Execution != execution {
			continue
		}
		subgraph.Events = append(subgraph.Events, event)
		if artifact, ok := m.Artifacts[event.Artifact]; ok && !seen[event.Artifact] {
			seen[event.Artifact] = true
			copied := *artifact
			copied.Metadata = CopyMetadata(artifact.Metadata)
			subgraph.Artifacts = append(subgraph.Artifacts, &copied)
		}
	}
	return subgraph, nil
}

func (m *StoreMock) GetContext(_ context.Context, name string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.Contexts[name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	copied := *node
	copied.Metadata = CopyMetadata(node.Metadata)
	copied.ParentContexts = m.parentsOfContext(name)
	return &copied, nil
}

func (m *StoreMock) CreateContext(_ context.Context, parent, id string, node *Context) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/contexts/" + id
	if _, ok := m.Contexts[name]; ok {
		return nil, errors.Wrap(ErrAlreadyExists, name)
	}
	created := *node
	created.Name = name
	created.Etag = "1"
	created.CreateTime = m.now()
	created.UpdateTime = created.CreateTime
	created.Metadata = CopyMetadata(node.Metadata)
	m.Contexts[name] = &created
	copied := created
	copied.Metadata = CopyMetadata(created.Metadata)
	return &copied, nil
}

func (m *StoreMock) UpdateContext(_ context.Context, node *Context) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateConflicts > 0 {
		m.UpdateConflicts--
		return nil, errors.Wrap(ErrConflict, node.Name)
	}
	existing, ok := m.Contexts[node.Name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, node.Name)
	}
	if node.Etag != "" && node.Etag != existing.Etag {
		return nil, errors.Wrap(ErrConflict, node.Name)
	}
	updated := *node
	updated.CreateTime = existing.CreateTime
	updated.UpdateTime = m.now()
	updated.Etag = m.nextEtag(existing.Etag)
	updated.Metadata = CopyMetadata(node.Metadata)
	m.Contexts[node.Name] = &updated
	copied := updated
	copied.Metadata = CopyMetadata(updated.Metadata)
	return &copied, nil
}

func (m *StoreMock) ListContexts(_ context.Context, _ string, opts ListOptions) ([]*Context, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*Context, 0)
	for _, node := range m.Contexts {
		if m.matches(opts.Filter, filterTarget{
			name:        node.Name,
			schemaTitle: node.SchemaTitle,
			parents:     m.parentsOfContext(node.Name),
			createTime:  node.CreateTime,
		}) {
			copied := *node
			copied.Metadata = CopyMetadata(node.Metadata)
			copied.ParentContexts = m.parentsOfContext(node.Name)
			matched = append(matched, &copied)
		}
	}
	sortByCreateTime(matched, opts.OrderBy, func(c *Context) time.Time { return c.CreateTime }, func(c *Context) string { return c.Name })
	return matched, "", nil
}

func (m *StoreMock) DeleteContext(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Contexts[name]; !ok {
		return errors.Wrap(ErrNotFound, name)
	}
	delete(m.Contexts, name)
	delete(m.ChildContexts, name)
	delete(m.ContextArtifacts, name)
	delete(m.ContextExecutions, name)
	return nil
}

func (m *StoreMock) AddContextChildren(_ context.Context, parent string, children []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Contexts[parent]; !ok {
		return errors.Wrap(ErrNotFound, parent)
	}
	m.ChildContexts[parent] = appendUnique(m.ChildContexts[parent], children...)
	return nil
}

func (m *StoreMock) AddContextArtifactsAndExecutions(_ context.Context, node string, artifacts, executions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Contexts[node]; !ok {
		return errors.Wrap(ErrNotFound, node)
	}
	m.ContextArtifacts[node] = appendUnique(m.ContextArtifacts[node], artifacts...)
	m.ContextExecutions[node] = appendUnique(m.ContextExecutions[node], executions...)
	return nil
}

func (m *StoreMock) QueryContextLineageSubgraph(_ context.Context, node string) (*LineageSubgraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Contexts[node]; !ok {
		return nil, errors.Wrap(ErrNotFound, node)
	}

	contexts := []string{node}
	for i := 0; i < len(contexts); i++ {
		contexts = append(contexts, m.ChildContexts[contexts[i]]...)
	}

	subgraph := &LineageSubgraph{}
	artifactSet := make(map[string]bool)
	executionSet := make(map[string]bool)
	for _, c := range contexts {
		for _, name := range m.ContextArtifacts[c] {
			if artifact, ok := m.Artifacts[name]; ok && !artifactSet[name] {
				artifactSet[name] = true
				copied := *artifact
				copied.Metadata = CopyMetadata(artifact.Metadata)
				subgraph.Artifacts = append(subgraph.Artifacts, &copied)
			}
		}
		for _, name := range m.ContextExecutions[c] {
			if execution, ok := m.Executions[name]; ok && !executionSet[name] {
				executionSet[name] = true
				copied := *execution
				copied.Metadata = CopyMetadata(execution.Metadata)
				subgraph.Executions = append(subgraph.Executions, &copied)
			}
		}
	}
	for _, event := range m.Events {
		if executionSet[event.Execution] {
			subgraph.Events = append(subgraph.Events, event)
		}
	}
	return subgraph, nil
}

func (m *StoreMock) GetMetadataSchema(_ context.Context, name string) (*MetadataSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schema, ok := m.Schemas[name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	copied := *schema
	return &copied, nil
}

func (m *StoreMock) CreateMetadataSchema(_ context.Context, parent, id string, schema *MetadataSchema) (*MetadataSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/metadataSchemas/" + id
	if _, ok := m.Schemas[name]; ok {
		return nil, errors.Wrap(ErrAlreadyExists, name)
	}
	created := *schema
	created.Name = name
	created.CreateTime = m.now()
	m.Schemas[name] = &created
	copied := created
	return &copied, nil
}

func (m *StoreMock) contextsOfArtifact(name string) []string {
	var contexts []string
	for c, members := range m.ContextArtifacts {
		for _, member := range members {
			if member == name {
				contexts = append(contexts, c)
			}
		}
	}
	return contexts
}

func (m *StoreMock) contextsOfExecution(name string) []string {
	var contexts []string
	for c, members := range m.ContextExecutions {
		for _, member := range members {
			if member == name {
				contexts = append(contexts, c)
			}
		}
	}
	return contexts
}

func (m *StoreMock) parentsOfContext(name string) []string {
	var parents []string
	for parent, children := range m.ChildContexts {
		for _, child := range children {
			if child == name {
				parents = append(parents, parent)
			}
		}
	}
	sort.Strings(parents)
	return parents
}

func appendUnique(existing []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, e := range existing {
			if e == item {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, item)
		}
	}
	return existing
}

func sortByCreateTime[T any](items []T, orderBy string, createTime func(T) time.Time, name func(T) string) {
	desc := strings.Contains(orderBy, "desc")
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := createTime(items[i]), createTime(items[j])
		if ti.Equal(tj) {
			return name(items[i]) < name(items[j])
		}
		if desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}

// filterTarget is the view of a node the mock filter evaluator sees.
type filterTarget struct {
	name        string
	schemaTitle string
	uri         string
	contexts    []string
	parents     []string
	createTime  time.Time
}

// matches evaluates the conjunctive filter grammar the SDK produces.
func (m *StoreMock) matches(filter string, target filterTarget) bool {
	if filter == "" {
		return true
	}
	for _, clause := range strings.Split(filter, " AND ") {
		if !m.matchClause(clause, target) {
			return false
		}
	}
	return true
}

func (m *StoreMock) matchClause(clause string, target filterTarget) bool {
	clause = strings.TrimSpace(clause)
	switch {
	case strings.HasPrefix(clause, "(") && strings.HasSuffix(clause, ")"):
		for _, alt := range strings.Split(clause[1:len(clause)-1], " OR ") {
			if m.matchClause(alt, target) {
				return true
			}
		}
		return false
	case strings.HasPrefix(clause, "schema_title="):
		return unquote(strings.TrimPrefix(clause, "schema_title=")) == target.schemaTitle
	case strings.HasPrefix(clause, "uri="):
		return unquote(strings.TrimPrefix(clause, "uri=")) == target.uri
	case strings.HasPrefix(clause, "in_context(") && strings.HasSuffix(clause, ")"):
		wanted := unquote(clause[len("in_context(") : len(clause)-1])
		for _, c := range target.contexts {
			if c == wanted {
				return true
			}
		}
		return false
	case strings.HasPrefix(clause, "parent_contexts:"):
		for _, wanted := range strings.Split(unquote(strings.TrimPrefix(clause, "parent_contexts:")), ",") {
			for _, p := range target.parents {
				if p == wanted {
					return true
				}
			}
		}
		return false
	case strings.HasPrefix(clause, "create_time>="):
		bound, err := time.Parse(time.RFC3339Nano, unquote(strings.TrimPrefix(clause, "create_time>=")))
		return err == nil && !target.createTime.Before(bound)
	case strings.HasPrefix(clause, "create_time<="):
		bound, err := time.Parse(time.RFC3339Nano, unquote(strings.TrimPrefix(clause, "create_time<=")))
		return err == nil && !target.createTime.After(bound)
	}
	return false
}

func unquote(s string) string {
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}
