package schema

// Typed schema classes project strongly-typed fields into and out of the
// generic metadata map. Reads never depend on the registered schema body;
// the projection here is the source of truth.

// Metrics carries the scalar fields of a system.Metrics artifact.
type Metrics struct {
	Accuracy          *float64
	Precision         *float64
	Recall            *float64
	F1Score           *float64
	MeanAbsoluteError *float64
	MeanSquaredError  *float64
	ResourceName      string
}

func (m Metrics) ToMetadata() map[string]interface{} {
	md := make(map[string]interface{})
	setFloat(md, "accuracy", m.Accuracy)
	setFloat(md, "precision", m.Precision)
	setFloat(md, "recall", m.Recall)
	setFloat(md, "f1score", m.F1Score)
	setFloat(md, "mean_absolute_error", m.MeanAbsoluteError)
	setFloat(md, "mean_squared_error", m.MeanSquaredError)
	setString(md, KeyResourceName, m.ResourceName)
	return md
}

func MetricsFromMetadata(md map[string]interface{}) Metrics {
	return Metrics{
		Accuracy:          getFloat(md, "accuracy"),
		Precision:         getFloat(md, "precision"),
		Recall:            getFloat(md, "recall"),
		F1Score:           getFloat(md, "f1score"),
		MeanAbsoluteError: getFloat(md, "mean_absolute_error"),
		MeanSquaredError:  getFloat(md, "mean_squared_error"),
		ResourceName:      getString(md, KeyResourceName),
	}
}

// ClassificationMetrics carries the scalar fields of a
// google.ClassificationMetrics artifact.
type ClassificationMetrics struct {
	AuPrc   *float64
	AuRoc   *float64
	LogLoss *float64
}

func (m ClassificationMetrics) ToMetadata() map[string]interface{} {
	md := make(map[string]interface{})
	setFloat(md, "auPrc", m.AuPrc)
	setFloat(md, "auRoc", m.AuRoc)
	setFloat(md, "logLoss", m.LogLoss)
	return md
}

func ClassificationMetricsFromMetadata(md map[string]interface{}) ClassificationMetrics {
	return ClassificationMetrics{
		AuPrc:   getFloat(md, "auPrc"),
		AuRoc:   getFloat(md, "auRoc"),
		LogLoss: getFloat(md, "logLoss"),
	}
}

type RegressionMetrics struct {
	RootMeanSquaredError        *float64
	MeanAbsoluteError           *float64
	MeanAbsolutePercentageError *float64
	RSquared                    *float64
	RootMeanSquaredLogError     *float64
}

func (m RegressionMetrics) ToMetadata() map[string]interface{} {
	md := make(map[string]interface{})
	setFloat(md, "rootMeanSquaredError", m.RootMeanSquaredError)
	setFloat(md, "meanAbsoluteError", m.MeanAbsoluteError)
	setFloat(md, "meanAbsolutePercentageError", m.MeanAbsolutePercentageError)
	setFloat(md, "rSquared", m.RSquared)
	setFloat(md, "rootMeanSquaredLogError", m.RootMeanSquaredLogError)
	return md
}

func RegressionMetricsFromMetadata(md map[string]interface{}) RegressionMetrics {
	return RegressionMetrics{
		RootMeanSquaredError:        getFloat(md, "rootMeanSquaredError"),
		MeanAbsoluteError:           getFloat(md, "meanAbsoluteError"),
		MeanAbsolutePercentageError: getFloat(md, "meanAbsolutePercentageError"),
		RSquared:                    getFloat(md, "rSquared"),
		RootMeanSquaredLogError:     getFloat(md, "rootMeanSquaredLogError"),
	}
}

type ForecastingMetrics struct {
	RootMeanSquaredError            *float64
	MeanAbsolutePercentageError     *float64
	WeightedAbsolutePercentageError *float64
}

func (m ForecastingMetrics) ToMetadata() map[string]interface{} {
	md := make(map[string]interface{})
	setFloat(md, "rootMeanSquaredError", m.RootMeanSquaredError)
	setFloat(md, "meanAbsolutePercentageError", m.MeanAbsolutePercentageError)
	setFloat(md, "weightedAbsolutePercentageError", m.WeightedAbsolutePercentageError)
	return md
}

func ForecastingMetricsFromMetadata(md map[string]interface{}) ForecastingMetrics {
	return ForecastingMetrics{
		RootMeanSquaredError:            getFloat(md, "rootMeanSquaredError"),
		MeanAbsolutePercentageError:     getFloat(md, "meanAbsolutePercentageError"),
		WeightedAbsolutePercentageError: getFloat(md, "weightedAbsolutePercentageError"),
	}
}

type PredictSchemata struct {
	InstanceSchemaUri   string
	ParametersSchemaUri string
	PredictionSchemaUri string
}

type EnvVar struct {
	Name  string
	Value string
}

type Port struct {
	ContainerPort int
}

type ContainerSpec struct {
	ImageUri     string
	Command      []string
	Args         []string
	Env          []EnvVar
	Ports        []Port
	PredictRoute string
	HealthRoute  string
}

// UnmanagedContainerModel is a model served from a user-managed container.
type UnmanagedContainerModel struct {
	PredictSchemata PredictSchemata
	ContainerSpec   ContainerSpec
}

func (m UnmanagedContainerModel) ToMetadata() map[string]interface{} {
	schemata := make(map[string]interface{})
	setString(schemata, "instanceSchemaUri", m.PredictSchemata.InstanceSchemaUri)
	setString(schemata, "parametersSchemaUri", m.PredictSchemata.ParametersSchemaUri)
	setString(schemata, "predictionSchemaUri", m.PredictSchemata.PredictionSchemaUri)

	spec := make(map[string]interface{})
	setString(spec, "imageUri", m.ContainerSpec.ImageUri)
	if len(m.ContainerSpec.Command) > 0 {
		spec["command"] = toInterfaceSlice(m.ContainerSpec.Command)
	}
	if len(m.ContainerSpec.Args) > 0 {
		spec["args"] = toInterfaceSlice(m.ContainerSpec.Args)
	}
	if len(m.ContainerSpec.Env) > 0 {
		env := make([]interface{}, len(m.ContainerSpec.Env))
		for i, e := range m.ContainerSpec.Env {
			env[i] = map[string]interface{}{"name": e.Name, "value": e.Value}
		}
		spec["env"] = env
	}
	if len(m.ContainerSpec.Ports) > 0 {
		ports := make([]interface{}, len(m.ContainerSpec.Ports))
		for i, p := range m.ContainerSpec.Ports {
			ports[i] = map[string]interface{}{"containerPort": float64(p.ContainerPort)}
		}
		spec["ports"] = ports
	}
	setString(spec, "predictRoute", m.ContainerSpec.PredictRoute)
	setString(spec, "healthRoute", m.ContainerSpec.HealthRoute)

	return map[string]interface{}{
		"predictSchemata": schemata,
		"containerSpec":   spec,
	}
}

func UnmanagedContainerModelFromMetadata(md map[string]interface{}) UnmanagedContainerModel {
	var m UnmanagedContainerModel
	if schemata, ok := md["predictSchemata"].(map[string]interface{}); ok {
		m.PredictSchemata = PredictSchemata{
			InstanceSchemaUri:   getString(schemata, "instanceSchemaUri"),
			ParametersSchemaUri: getString(schemata, "parametersSchemaUri"),
			PredictionSchemaUri: getString(schemata, "predictionSchemaUri"),
		}
	}
	if spec, ok := md["containerSpec"].(map[string]interface{}); ok {
		m.ContainerSpec = ContainerSpec{
			ImageUri:     getString(spec, "imageUri"),
			Command:      toStringSlice(spec["command"]),
			Args:         toStringSlice(spec["args"]),
			PredictRoute: getString(spec, "predictRoute"),
			HealthRoute:  getString(spec, "healthRoute"),
		}
		if env, ok := spec["env"].([]interface{}); ok {
			for _, item := range env {
				if entry, ok := item.(map[string]interface{}); ok {
					m.ContainerSpec.Env = append(m.ContainerSpec.Env, EnvVar{
						Name:  getString(entry, "name"),
						Value: getString(entry, "value"),
					})
				}
			}
		}
		if ports, ok := spec["ports"].([]interface{}); ok {
			for _, item := range ports {
				if entry, ok := item.(map[string]interface{}); ok {
					if port := getFloat(entry, "containerPort"); port != nil {
						m.ContainerSpec.Ports = append(m.ContainerSpec.Ports, Port{ContainerPort: int(*port)})
					}
				}
			}
		}
	}
	return m
}

// ResourceNameFromMetadata reads the mirrored Vertex resource name, if any.
func ResourceNameFromMetadata(md map[string]interface{}) string {
	return getString(md, KeyResourceName)
}

func setFloat(md map[string]interface{}, key string, v *float64) {
	if v != nil {
		md[key] = *v
	}
}

func getFloat(md map[string]interface{}, key string) *float64 {
	switch v := md[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func setString(md map[string]interface{}, key, v string) {
	if v != "" {
		md[key] = v
	}
}

func getString(md map[string]interface{}, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}

func toInterfaceSlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func toStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
