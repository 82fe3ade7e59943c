// Package tensorboard is the boundary to the tensorboard time-series
// service. Runs hold streams of scalar points keyed by a display name; the
// metadata layer only stores a reference artifact pointing at a run here.
package tensorboard

import (
	"context"
	"time"
)

const (
	ValueTypeScalar = "SCALAR"
	PluginScalars   = "scalars"
)

type Experiment struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type Run struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// TimeSeries is one named scalar stream within a run.
type TimeSeries struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	ValueType   string `json:"valueType,omitempty"`
	PluginName  string `json:"pluginName,omitempty"`
}

type Scalar struct {
	Value float64 `json:"value"`
}

type TimeSeriesDataPoint struct {
	WallTime time.Time `json:"wallTime"`
	Step     int64     `json:"step"`
	Scalar   Scalar    `json:"scalar"`
}

// TimeSeriesData is a batch of points destined for, or read from, a single
// time series.
type TimeSeriesData struct {
	TimeSeriesId string                `json:"tensorboardTimeSeriesId"`
	ValueType    string                `json:"valueType,omitempty"`
	Values       []TimeSeriesDataPoint `json:"values"`
}

// Service is everything the tracking layer needs from the tensorboard API.
type Service interface {
	GetExperiment(ctx context.Context, name string) (*Experiment, error)
	CreateExperiment(ctx context.Context, parent, id string, experiment *Experiment) (*Experiment, error)
	GetRun(ctx context.Context, name string) (*Run, error)
	CreateRun(ctx context.Context, parent, id string, run *Run) (*Run, error)
	DeleteRun(ctx context.Context, name string) error
	ListTimeSeries(ctx context.Context, run string) ([]*TimeSeries, error)
	CreateTimeSeries(ctx context.Context, run string, series *TimeSeries) (*TimeSeries, error)
	WriteRunData(ctx context.Context, run string, data []TimeSeriesData) error
	// ReadRunData returns the stored points of the requested series, keyed
	// by time series id. Unknown ids are simply absent from the result.
	ReadRunData(ctx context.Context, run string, timeSeriesIds []string) (map[string]TimeSeriesData, error)
}

func GetExperimentOrNull(ctx context.Context, service Service, name string) (*Experiment, error) {
	experiment, err := service.GetExperiment(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return experiment, nil
}

func GetRunOrNull(ctx context.Context, service Service, name string) (*Run, error) {
	run, err := service.GetRun(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}
