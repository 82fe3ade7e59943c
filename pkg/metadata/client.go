package metadata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase"
	cbhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http"
	cbhttpmiddleware "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http/middleware"
	lhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/http"
)

const (
	transientAttempts = 3
	transientBackoff  = 500 * time.Millisecond
)

// Client is the REST implementation of Store.
type Client struct {
	baseUrl     string
	cfg         *Config
	connections *clientbase.Connections
}

var _ Store = &Client{}

func NewClient(cfg *Config, connections *clientbase.Connections) *Client {
	return &Client{
		baseUrl:     cfg.BaseUrl,
		cfg:         cfg,
		connections: connections,
	}
}

func (c *Client) Scope() Scope {
	return c.cfg.Scope
}

func (c *Client) url(name string) string {
	return fmt.Sprintf("%s/v1/%s", c.baseUrl, name)
}

func queryValues(pairs ...string) url.Values {
	values := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return values
}

func (c *Client) defaultOptions() []cbhttp.RequestOption {
	options := []cbhttp.RequestOption{
		cbhttp.RetryAttempts(transientAttempts),
		cbhttp.RetryBackoffDelay(transientBackoff),
		cbhttp.RetryIf(func(herr *lhttp.HttpError) bool { return herr.Transient() }),
	}
	if c.connections.Cfg.ApiToken != "" {
		options = append(options, cbhttp.SetHeader("authorization", fmt.Sprintf("Bearer %s", c.connections.Cfg.ApiToken)))
	}
	return options
}

// call runs a request and decodes the JSON response into out when non-nil.
func (c *Client) call(req *cbhttp.Request, out interface{}, onConflict error) error {
	if out != nil {
		_, herr := c.connections.HttpClient.Do(req, cbhttpmiddleware.JsonDecoder(out))
		return FromTransport(herr, onConflict)
	}
	return FromTransport(c.connections.HttpClient.DoNoResponse(req), onConflict)
}

func (c *Client) GetArtifact(ctx context.Context, name string) (*Artifact, error) {
	var artifact Artifact
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &artifact, ErrConflict); err != nil {
		log.Debugf("failed to fetch artifact %s: %s", name, err)
		return nil, err
	}
	return &artifact, nil
}

func (c *Client) CreateArtifact(ctx context.Context, parent, id string, artifact *Artifact) (*Artifact, error) {
	var created Artifact
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/artifacts",
		append(c.defaultOptions(),
			cbhttp.Query(queryValues("artifactId", id)),
			cbhttp.BodyObj(artifact))...)
	if err := c.call(req, &created, ErrAlreadyExists); err != nil {
		log.Debugf("failed to create artifact %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateArtifact(ctx context.Context, artifact *Artifact) (*Artifact, error) {
	var updated Artifact
	req := cbhttp.NewRequest(ctx, "PATCH", c.url(artifact.Name),
		append(c.defaultOptions(), cbhttp.BodyObj(artifact))...)
	if err := c.call(req, &updated, ErrConflict); err != nil {
		log.Debugf("failed to update artifact %s: %s", artifact.Name, err)
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ListArtifacts(ctx context.Context, parent string, opts ListOptions) ([]*Artifact, string, error) {
	var page struct {
		Artifacts     []*Artifact `json:"artifacts"`
		NextPageToken string      `json:"nextPageToken"`
	}
	req := cbhttp.NewRequest(ctx, "GET", c.url(parent)+"/artifacts",
		append(c.defaultOptions(), cbhttp.QueryObj(opts))...)
	if err := c.call(req, &page, ErrConflict); err != nil {
		log.Debugf("failed to list artifacts under %s: %s", parent, err)
		return nil, "", err
	}
	return page.Artifacts, page.NextPageToken, nil
}

func (c *Client) DeleteArtifact(ctx context.Context, name string) error {
	req := cbhttp.NewRequest(ctx, "DELETE", c.url(name), c.defaultOptions()...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) GetExecution(ctx context.Context, name string) (*Execution, error) {
	var execution Execution
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &execution, ErrConflict); err != nil {
		log.Debugf("failed to fetch execution %s: %s", name, err)
		return nil, err
	}
	return &execution, nil
}

func (c *Client) CreateExecution(ctx context.Context, parent, id string, execution *Execution) (*Execution, error) {
	var created Execution
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/executions",
		append(c.defaultOptions(),
			cbhttp.Query(queryValues("executionId", id)),
			cbhttp.BodyObj(execution))...)
	if err := c.call(req, &created, ErrAlreadyExists); err != nil {
		log.Debugf("failed to create execution %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateExecution(ctx context.Context, execution *Execution) (*Execution, error) {
	var updated Execution
	req := cbhttp.NewRequest(ctx, "PATCH", c.url(execution.Name),
		append(c.defaultOptions(), cbhttp.BodyObj(execution))...)
	if err := c.call(req, &updated, ErrConflict); err != nil {
		log.Debugf("failed to update execution %s: %s", execution.Name, err)
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ListExecutions(ctx context.Context, parent string, opts ListOptions) ([]*Execution, string, error) {
	var page struct {
		Executions    []*Execution `json:"executions"`
		NextPageToken string       `json:"nextPageToken"`
	}
	req := cbhttp.NewRequest(ctx, "GET", c.url(parent)+"/executions",
		append(c.defaultOptions(), cbhttp.QueryObj(opts))...)
	if err := c.call(req, &page, ErrConflict); err != nil {
		log.Debugf("failed to list executions under %s: %s", parent, err)
		return nil, "", err
	}
	return page.Executions, page.NextPageToken, nil
}

func (c *Client) DeleteExecution(ctx context.Context, name string) error {
	req := cbhttp.NewRequest(ctx, "DELETE", c.url(name), c.defaultOptions()...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) AddExecutionEvents(ctx context.Context, execution string, events []Event) error {
	body := map[string]interface{}{"events": events}
	req := cbhttp.NewRequest(ctx, "POST", c.url(execution)+":addExecutionEvents",
		append(c.defaultOptions(), cbhttp.BodyObj(body))...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) QueryExecutionInputsAndOutputs(ctx context.Context, execution string) (*LineageSubgraph, error) {
	var subgraph LineageSubgraph
	req := cbhttp.NewRequest(ctx, "GET", c.url(execution)+":queryExecutionInputsAndOutputs", c.defaultOptions()...)
	if err := c.call(req, &subgraph, ErrConflict); err != nil {
		log.Debugf("failed to query inputs and outputs of %s: %s", execution, err)
		return nil, err
	}
	return &subgraph, nil
}

func (c *Client) GetContext(ctx context.Context, name string) (*Context, error) {
	var node Context
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &node, ErrConflict); err != nil {
		log.Debugf("failed to fetch context %s: %s", name, err)
		return nil, err
	}
	return &node, nil
}

func (c *Client) CreateContext(ctx context.Context, parent, id string, node *Context) (*Context, error) {
	var created Context
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/contexts",
		append(c.defaultOptions(),
			cbhttp.Query(queryValues("contextId", id)),
			cbhttp.BodyObj(node))...)
	if err := c.call(req, &created, ErrAlreadyExists); err != nil {
		log.Debugf("failed to create context %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateContext(ctx context.Context, node *Context) (*Context, error) {
	var updated Context
	req := cbhttp.NewRequest(ctx, "PATCH", c.url(node.Name),
		append(c.defaultOptions(), cbhttp.BodyObj(node))...)
	if err := c.call(req, &updated, ErrConflict); err != nil {
		log.Debugf("failed to update context %s: %s", node.Name, err)
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ListContexts(ctx context.Context, parent string, opts ListOptions) ([]*Context, string, error) {
	var page struct {
		Contexts      []*Context `json:"contexts"`
		NextPageToken string     `json:"nextPageToken"`
	}
	req := cbhttp.NewRequest(ctx, "GET", c.url(parent)+"/contexts",
		append(c.defaultOptions(), cbhttp.QueryObj(opts))...)
	if err := c.call(req, &page, ErrConflict); err != nil {
		log.Debugf("failed to list contexts under %s: %s", parent, err)
		return nil, "", err
	}
	return page.Contexts, page.NextPageToken, nil
}

func (c *Client) DeleteContext(ctx context.Context, name string) error {
	req := cbhttp.NewRequest(ctx, "DELETE", c.url(name),
		append(c.defaultOptions(), cbhttp.Query(queryValues("force", "true")))...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) AddContextChildren(ctx context.Context, parent string, children []string) error {
	body := map[string]interface{}{"childContexts": children}
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+":addContextChildren",
		append(c.defaultOptions(), cbhttp.BodyObj(body))...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) AddContextArtifactsAndExecutions(ctx context.Context, node string, artifacts, executions []string) error {
	body := map[string]interface{}{
		"artifacts":  artifacts,
		"executions": executions,
	}
	req := cbhttp.NewRequest(ctx, "POST", c.url(node)+":addContextArtifactsAndExecutions",
		append(c.defaultOptions(), cbhttp.BodyObj(body))...)
	return c.call(req, nil, ErrConflict)
}

func (c *Client) QueryContextLineageSubgraph(ctx context.Context, node string) (*LineageSubgraph, error) {
	var subgraph LineageSubgraph
	req := cbhttp.NewRequest(ctx, "GET", c.url(node)+":queryContextLineageSubgraph", c.defaultOptions()...)
	if err := c.call(req, &subgraph, ErrConflict); err != nil {
		log.Debugf("failed to query lineage subgraph of %s: %s", node, err)
		return nil, err
	}
	return &subgraph, nil
}

func (c *Client) GetMetadataSchema(ctx context.Context, name string) (*MetadataSchema, error) {
	var schema MetadataSchema
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &schema, ErrConflict); err != nil {
		log.Debugf("failed to fetch metadata schema %s: %s", name, err)
		return nil, err
	}
	return &schema, nil
}

func (c *Client) CreateMetadataSchema(ctx context.Context, parent, id string, schema *MetadataSchema) (*MetadataSchema, error) {
	var created MetadataSchema
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/metadataSchemas",
		append(c.defaultOptions(),
			cbhttp.Query(queryValues("metadataSchemaId", id)),
			cbhttp.BodyObj(schema))...)
	if err := c.call(req, &created, ErrAlreadyExists); err != nil {
		log.Debugf("failed to create metadata schema %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}
