package tensorboard

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RunHandle wraps one tensorboard run with the bookkeeping scalar logging
// needs: a display-name to time-series-id cache and the largest step seen so
// far. Safe for concurrent use.
type RunHandle struct {
	service Service
	name    string

	mu          sync.Mutex
	seriesIDs   map[string]string
	largestStep int64
	stepPrimed  bool
}

func NewRunHandle(service Service, name string) *RunHandle {
	return &RunHandle{
		service:   service,
		name:      name,
		seriesIDs: make(map[string]string),
	}
}

func (h *RunHandle) Name() string {
	return h.name
}

func seriesID(name string) string {
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}

// refreshSeriesIDs reloads the display-name mapping from the service.
// Callers hold h.mu.
func (h *RunHandle) refreshSeriesIDs(ctx context.Context) error {
	series, err := h.service.ListTimeSeries(ctx, h.name)
	if err != nil {
		return err
	}
	for _, s := range series {
		h.seriesIDs[s.DisplayName] = seriesID(s.Name)
	}
	return nil
}

// ensureSeries resolves the time series ids behind the given display names,
// creating any that do not exist yet. Callers hold h.mu.
func (h *RunHandle) ensureSeries(ctx context.Context, displayNames []string) (map[string]string, error) {
	refreshed := false
	ids := make(map[string]string, len(displayNames))
	for _, displayName := range displayNames {
		id, ok := h.seriesIDs[displayName]
		if !ok && !refreshed {
			if err := h.refreshSeriesIDs(ctx); err != nil {
				return nil, err
			}
			refreshed = true
			id, ok = h.seriesIDs[displayName]
		}
		if !ok {
			created, err := h.service.CreateTimeSeries(ctx, h.name, &TimeSeries{
				DisplayName: displayName,
				ValueType:   ValueTypeScalar,
				PluginName:  PluginScalars,
			})
			if err != nil {
				return nil, err
			}
			id = seriesID(created.Name)
			h.seriesIDs[displayName] = id
		}
		ids[displayName] = id
	}
	return ids, nil
}

// nextStep picks the step for a write with no explicit step. The first call
// consults the service for the largest stored step; after that the local
// counter is authoritative. Callers hold h.mu.
func (h *RunHandle) nextStep(ctx context.Context) (int64, error) {
	if !h.stepPrimed {
		all := make([]string, 0, len(h.seriesIDs))
		for _, id := range h.seriesIDs {
			all = append(all, id)
		}
		stored, err := h.service.ReadRunData(ctx, h.name, all)
		if err != nil {
			return 0, err
		}
		for _, data := range stored {
			for _, point := range data.Values {
				if point.Step > h.largestStep {
					h.largestStep = point.Step
				}
			}
		}
		h.stepPrimed = true
	}
	h.largestStep++
	return h.largestStep, nil
}

// WriteScalars appends one point per entry of values. A nil step means one
// past the largest step seen so far; a nil wallTime means now.
func (h *RunHandle) WriteScalars(ctx context.Context, values map[string]float64, step *int64, wallTime *time.Time) error {
	if len(values) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	displayNames := make([]string, 0, len(values))
	for displayName := range values {
		displayNames = append(displayNames, displayName)
	}
	ids, err := h.ensureSeries(ctx, displayNames)
	if err != nil {
		return err
	}

	var effectiveStep int64
	if step != nil {
		effectiveStep = *step
		if effectiveStep > h.largestStep {
			h.largestStep = effectiveStep
		}
	} else {
		effectiveStep, err = h.nextStep(ctx)
		if err != nil {
			return err
		}
	}

	at := time.Now().UTC()
	if wallTime != nil {
		at = *wallTime
	}

	data := make([]TimeSeriesData, 0, len(values))
	for displayName, value := range values {
		data = append(data, TimeSeriesData{
			TimeSeriesId: ids[displayName],
			ValueType:    ValueTypeScalar,
			Values: []TimeSeriesDataPoint{{
				WallTime: at,
				Step:     effectiveStep,
				Scalar:   Scalar{Value: value},
			}},
		})
	}
	return h.service.WriteRunData(ctx, h.name, data)
}

// LatestScalars reads back the most recent point of every series in the run,
// keyed by display name.
func (h *RunHandle) LatestScalars(ctx context.Context) (map[string]float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.refreshSeriesIDs(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(h.seriesIDs))
	byID := make(map[string]string, len(h.seriesIDs))
	for displayName, id := range h.seriesIDs {
		ids = append(ids, id)
		byID[id] = displayName
	}
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	stored, err := h.service.ReadRunData(ctx, h.name, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(stored))
	for id, data := range stored {
		displayName, ok := byID[id]
		if !ok || len(data.Values) == 0 {
			continue
		}
		latest := data.Values[0]
		for _, point := range data.Values[1:] {
			if point.Step > latest.Step {
				latest = point
			}
		}
		out[displayName] = latest.Scalar.Value
	}
	return out, nil
}
