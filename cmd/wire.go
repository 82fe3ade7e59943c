//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/app/builders"
)

// wire up the dependencies.
func InitializeDependencies() (*dependencies, error) {
	wire.Build(builders.ClientSet, newDependencies)
	return &dependencies{}, nil
}
