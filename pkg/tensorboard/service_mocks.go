package tensorboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
)

// ServiceMock is an in-memory Service for tests.
type ServiceMock struct {
	mu          sync.Mutex
	Experiments map[string]*Experiment
	Runs        map[string]*Run
	// Series maps run name to the series that live under it.
	Series map[string][]*TimeSeries
	// Data maps run name, then time series id, to stored points.
	Data map[string]map[string][]TimeSeriesDataPoint

	nextSeriesID int
	WriteCalls   int
}

var _ Service = &ServiceMock{}

func NewServiceMock() *ServiceMock {
	return &ServiceMock{
		Experiments: make(map[string]*Experiment),
		Runs:        make(map[string]*Run),
		Series:      make(map[string][]*TimeSeries),
		Data:        make(map[string]map[string][]TimeSeriesDataPoint),
	}
}

func (m *ServiceMock) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	experiment, ok := m.Experiments[name]
	if !ok {
		return nil, errors.Wrap(metadata.ErrNotFound, name)
	}
	clone := *experiment
	return &clone, nil
}

func (m *ServiceMock) CreateExperiment(ctx context.Context, parent, id string, experiment *Experiment) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/experiments/" + id
	if _, ok := m.Experiments[name]; ok {
		return nil, errors.Wrap(metadata.ErrAlreadyExists, name)
	}
	clone := *experiment
	clone.Name = name
	m.Experiments[name] = &clone
	out := clone
	return &out, nil
}

func (m *ServiceMock) GetRun(ctx context.Context, name string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[name]
	if !ok {
		return nil, errors.Wrap(metadata.ErrNotFound, name)
	}
	clone := *run
	return &clone, nil
}

func (m *ServiceMock) CreateRun(ctx context.Context, parent, id string, run *Run) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := parent + "/runs/" + id
	if _, ok := m.Runs[name]; ok {
		return nil, errors.Wrap(metadata.ErrAlreadyExists, name)
	}
	clone := *run
	clone.Name = name
	m.Runs[name] = &clone
	out := clone
	return &out, nil
}

func (m *ServiceMock) DeleteRun(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[name]; !ok {
		return errors.Wrap(metadata.ErrNotFound, name)
	}
	delete(m.Runs, name)
	delete(m.Series, name)
	delete(m.Data, name)
	return nil
}

func (m *ServiceMock) ListTimeSeries(ctx context.Context, run string) ([]*TimeSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[run]; !ok {
		return nil, errors.Wrap(metadata.ErrNotFound, run)
	}
	out := make([]*TimeSeries, 0, len(m.Series[run]))
	for _, series := range m.Series[run] {
		clone := *series
		out = append(out, &clone)
	}
	return out, nil
}

func (m *ServiceMock) CreateTimeSeries(ctx context.Context, run string, series *TimeSeries) (*TimeSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[run]; !ok {
		return nil, errors.Wrap(metadata.ErrNotFound, run)
	}
	for _, existing := range m.Series[run] {
		if existing.DisplayName == series.DisplayName {
			return nil, errors.Wrap(metadata.ErrAlreadyExists, series.DisplayName)
		}
	}
	m.nextSeriesID++
	clone := *series
	clone.Name = fmt.Sprintf("%s/timeSeries/ts-%d", run, m.nextSeriesID)
	m.Series[run] = append(m.Series[run], &clone)
	out := clone
	return &out, nil
}

func (m *ServiceMock) WriteRunData(ctx context.Context, run string, data []TimeSeriesData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[run]; !ok {
		return errors.Wrap(metadata.ErrNotFound, run)
	}
	m.WriteCalls++
	stored := m.Data[run]
	if stored == nil {
		stored = make(map[string][]TimeSeriesDataPoint)
		m.Data[run] = stored
	}
	for _, batch := range data {
		stored[batch.TimeSeriesId] = append(stored[batch.TimeSeriesId], batch.Values...)
	}
	return nil
}

func (m *ServiceMock) ReadRunData(ctx context.Context, run string, timeSeriesIds []string) (map[string]TimeSeriesData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[run]; !ok {
		return nil, errors.Wrap(metadata.ErrNotFound, run)
	}
	out := make(map[string]TimeSeriesData)
	for _, id := range timeSeriesIds {
		points, ok := m.Data[run][id]
		if !ok {
			continue
		}
		values := make([]TimeSeriesDataPoint, len(points))
		copy(values, points)
		out[id] = TimeSeriesData{
			TimeSeriesId: id,
			ValueType:    ValueTypeScalar,
			Values:       values,
		}
	}
	return out, nil
}
