package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/app"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase"
	cbhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/experiment"
)

type recordingTransport struct {
	idleClosed bool
}

func (r *recordingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, http.ErrSkipAltProtocol
}

func (r *recordingTransport) CloseIdleConnections() {
	r.idleClosed = true
}

func TestShutdownClosesConnections(t *testing.T) {
	instance := app.NewInstance()
	transport := &recordingTransport{}
	connections := &clientbase.Connections{
		HttpClient: &cbhttp.Instance{Client: &http.Client{Transport: transport}},
	}

	newDependencies(instance, connections, nil, nil)
	require.NoError(t, instance.Shutdown())
	assert.True(t, transport.idleClosed)
}

func TestWriteCSV(t *testing.T) {
	rows := []experiment.Row{{
		ExperimentName: "exp1",
		RunName:        "r1",
		RunType:        "system.ExperimentRun",
		State:          "COMPLETE",
		Params:         map[string]interface{}{"lr": 0.1},
		Metrics:        map[string]interface{}{"acc": 0.9},
	}}

	var out bytes.Buffer
	require.NoError(t, write(&out, rows, "csv"))
	assert.Equal(t,
		"experiment_name,run_name,run_type,state,param.lr,metric.acc\n"+
			"exp1,r1,system.ExperimentRun,COMPLETE,0.1,0.9\n",
		out.String())
}

func TestWriteJSON(t *testing.T) {
	rows := []experiment.Row{{
		ExperimentName: "exp1",
		RunName:        "r1",
		RunType:        "system.ExperimentRun",
		State:          "COMPLETE",
	}}

	var out bytes.Buffer
	require.NoError(t, write(&out, rows, "json"))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "exp1", decoded[0]["experiment_name"])
	assert.Equal(t, "r1", decoded[0]["run_name"])
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, write(&bytes.Buffer{}, nil, "yaml"))
}
