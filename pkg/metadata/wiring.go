package metadata

import "github.com/google/wire"

func ScopeFromConfig(cfg *Config) Scope {
	return cfg.Scope
}

var WireSet = wire.NewSet(
	NewConfigFromEnv,
	NewClient,
	NewSchemaRegistry,
	ScopeFromConfig,
	wire.Bind(new(Store), new(*Client)),
	wire.Bind(new(SchemaStore), new(*Client)),
)
