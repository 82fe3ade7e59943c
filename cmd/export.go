package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/app"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/experiment"
)

type dependencies struct {
	app         *app.Instance
	connections *clientbase.Connections
	client      *experiment.Client
	tracker     *experiment.Tracker
}

func newDependencies(instance *app.Instance, connections *clientbase.Connections,
	client *experiment.Client, tracker *experiment.Tracker) *dependencies {
	instance.AddCloser(connections)
	return &dependencies{
		app:         instance,
		connections: connections,
		client:      client,
		tracker:     tracker,
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	name := flag.String("experiment", "", "experiment to export")
	format := flag.String("format", "csv", "output format, csv or json")
	flag.Parse()
	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	deps, err := InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	ctx, cancel := app.BackgroundTimeoutContext()
	defer cancel()

	exp, err := deps.client.GetExperiment(ctx, *name)
	if err != nil {
		log.Fatalf("failed to resolve experiment %s: %v", *name, err)
	}
	rows, err := exp.Rows(ctx)
	if err != nil {
		log.Fatalf("failed to project runs of %s: %v", *name, err)
	}
	if err := write(os.Stdout, rows, *format); err != nil {
		log.Fatalf("failed to write rows: %v", err)
	}

	if err := deps.app.Shutdown(); err != nil {
		os.Exit(1)
	}
}

func write(out io.Writer, rows []experiment.Row, format string) error {
	switch format {
	case "json":
		flattened := make([]map[string]interface{}, len(rows))
		for i, row := range rows {
			flattened[i] = row.ToMap()
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(flattened)
	case "csv":
		columns := experiment.Columns(rows)
		writer := csv.NewWriter(out)
		if err := writer.Write(columns); err != nil {
			return err
		}
		for _, row := range rows {
			values := row.ToMap()
			record := make([]string, len(columns))
			for i, column := range columns {
				if value, ok := values[column]; ok {
					record[i] = fmt.Sprint(value)
				}
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	default:
		return errors.Errorf("unknown format %q", format)
	}
}
