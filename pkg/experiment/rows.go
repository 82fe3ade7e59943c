package experiment

import (
	"sort"
)

// Column prefixes of the projected row surface.
const (
	ColumnExperimentName = "experiment_name"
	ColumnRunName        = "run_name"
	ColumnRunType        = "run_type"
	ColumnState          = "state"

	ParamColumnPrefix            = "param."
	MetricColumnPrefix           = "metric."
	TimeSeriesMetricColumnPrefix = "time_series_metric."
)

// Row is one projected run: identity columns plus the prefixed parameter and
// metric maps.
type Row struct {
	ExperimentName    string
	RunName           string
	RunType           string
	State             string
	Params            map[string]interface{}
	Metrics           map[string]interface{}
	TimeSeriesMetrics map[string]float64
	Extra             map[string]interface{}
}

// ToMap flattens the row under the prefixed column names.
func (r Row) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		ColumnExperimentName: r.ExperimentName,
		ColumnRunName:        r.RunName,
		ColumnRunType:        r.RunType,
		ColumnState:          r.State,
	}
	for key, value := range r.Params {
		out[ParamColumnPrefix+key] = value
	}
	for key, value := range r.Metrics {
		out[MetricColumnPrefix+key] = value
	}
	for key, value := range r.TimeSeriesMetrics {
		out[TimeSeriesMetricColumnPrefix+key] = value
	}
	for key, value := range r.Extra {
		out[key] = value
	}
	return out
}

// Columns is the union of the rows' columns in presentation order: the four
// identity columns, parameters alphabetically, then metric and
// time-series-metric columns together alphabetically, then everything else.
func Columns(rows []Row) []string {
	params := map[string]bool{}
	metrics := map[string]bool{}
	extras := map[string]bool{}
	for _, row := range rows {
		for key := range row.Params {
			params[ParamColumnPrefix+key] = true
		}
		for key := range row.Metrics {
			metrics[MetricColumnPrefix+key] = true
		}
		for key := range row.TimeSeriesMetrics {
			metrics[TimeSeriesMetricColumnPrefix+key] = true
		}
		for key := range row.Extra {
			extras[key] = true
		}
	}

	columns := []string{ColumnExperimentName, ColumnRunName, ColumnRunType, ColumnState}
	columns = append(columns, sortedKeys(params)...)
	columns = append(columns, sortedKeys(metrics)...)
	columns = append(columns, sortedKeys(extras)...)
	return columns
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
