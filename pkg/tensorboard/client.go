package tensorboard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase"
	cbhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http"
	cbhttpmiddleware "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http/middleware"
	lhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/http"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

const (
	transientAttempts = 3
	transientBackoff  = 500 * time.Millisecond
)

// Client is the REST implementation of Service.
type Client struct {
	baseUrl     string
	connections *clientbase.Connections
}

var _ Service = &Client{}

func NewClient(cfg *Config, connections *clientbase.Connections) *Client {
	return &Client{
		baseUrl:     cfg.BaseUrl,
		connections: connections,
	}
}

func isNotFound(err error) bool {
	return metadata.IsNotFound(err)
}

func (c *Client) url(name string) string {
	return fmt.Sprintf("%s/v1/%s", c.baseUrl, name)
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

func (c *Client) call(req *cbhttp.Request, out interface{}) error {
	if out != nil {
		_, herr := c.connections.HttpClient.Do(req, cbhttpmiddleware.JsonDecoder(out))
		return metadata.FromTransport(herr, metadata.ErrConflict)
	}
	return metadata.FromTransport(c.connections.HttpClient.DoNoResponse(req), metadata.ErrConflict)
}

func (c *Client) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	var experiment Experiment
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &experiment); err != nil {
		log.Debugf("failed to fetch tensorboard experiment %s: %s", name, err)
		return nil, err
	}
	return &experiment, nil
}

func (c *Client) CreateExperiment(ctx context.Context, parent, id string, experiment *Experiment) (*Experiment, error) {
	var created Experiment
	query := url.Values{}
	query.Set("tensorboardExperimentId", id)
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/experiments",
		append(c.defaultOptions(),
			cbhttp.Query(query),
			cbhttp.BodyObj(experiment))...)
	if err := c.call(req, &created); err != nil {
		log.Debugf("failed to create tensorboard experiment %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetRun(ctx context.Context, name string) (*Run, error) {
	var run Run
	req := cbhttp.NewRequest(ctx, "GET", c.url(name), c.defaultOptions()...)
	if err := c.call(req, &run); err != nil {
		log.Debugf("failed to fetch tensorboard run %s: %s", name, err)
		return nil, err
	}
	return &run, nil
}

func (c *Client) CreateRun(ctx context.Context, parent, id string, run *Run) (*Run, error) {
	var created Run
	query := url.Values{}
	query.Set("tensorboardRunId", id)
	req := cbhttp.NewRequest(ctx, "POST", c.url(parent)+"/runs",
		append(c.defaultOptions(),
			cbhttp.Query(query),
			cbhttp.BodyObj(run))...)
	if err := c.call(req, &created); err != nil {
		log.Debugf("failed to create tensorboard run %s under %s: %s", id, parent, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteRun(ctx context.Context, name string) error {
	req := cbhttp.NewRequest(ctx, "DELETE", c.url(name), c.defaultOptions()...)
	return c.call(req, nil)
}

func (c *Client) ListTimeSeries(ctx context.Context, run string) ([]*TimeSeries, error) {
	var all []*TimeSeries
	pageToken := ""
	for {
		var page struct {
			TimeSeries    []*TimeSeries `json:"timeSeries"`
			NextPageToken string        `json:"nextPageToken"`
		}
		options := c.defaultOptions()
		if pageToken != "" {
			query := url.Values{}
			query.Set("pageToken", pageToken)
			options = append(options, cbhttp.Query(query))
		}
		req := cbhttp.NewRequest(ctx, "GET", c.url(run)+"/timeSeries", options...)
		if err := c.call(req, &page); err != nil {
			log.Debugf("failed to list time series under %s: %s", run, err)
			return nil, err
		}
		all = append(all, page.TimeSeries...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) CreateTimeSeries(ctx context.Context, run string, series *TimeSeries) (*TimeSeries, error) {
	var created TimeSeries
	req := cbhttp.NewRequest(ctx, "POST", c.url(run)+"/timeSeries",
		append(c.defaultOptions(), cbhttp.BodyObj(series))...)
	if err := c.call(req, &created); err != nil {
		log.Debugf("failed to create time series %s under %s: %s", series.DisplayName, run, err)
		return nil, err
	}
	return &created, nil
}

func (c *Client) WriteRunData(ctx context.Context, run string, data []TimeSeriesData) error {
	body := map[string]interface{}{
		"tensorboardRun": run,
		"timeSeriesData": data,
	}
	req := cbhttp.NewRequest(ctx, "POST", c.url(run)+":write",
		append(c.defaultOptions(), cbhttp.BodyObj(body))...)
	if err := c.call(req, nil); err != nil {
		log.Debugf("failed to write %d series to %s: %s", len(data), run, err)
		return err
	}
	return nil
}

func (c *Client) ReadRunData(ctx context.Context, run string, timeSeriesIds []string) (map[string]TimeSeriesData, error) {
	var page struct {
		TimeSeriesData []TimeSeriesData `json:"timeSeriesData"`
	}
	query := url.Values{}
	query.Set("timeSeriesIds", strings.Join(timeSeriesIds, ","))
	req := cbhttp.NewRequest(ctx, "GET", c.url(run)+":read",
		append(c.defaultOptions(), cbhttp.Query(query))...)
	if err := c.call(req, &page); err != nil {
		log.Debugf("failed to read run data from %s: %s", run, err)
		return nil, err
	}
	out := make(map[string]TimeSeriesData, len(page.TimeSeriesData))
	for _, data := range page.TimeSeriesData {
		out[data.TimeSeriesId] = data
	}
	return out, nil
}
