package metadata

import (
	lconfig "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/config"
)

type Config struct {
	Scope
	BaseUrl string `env:"METADATA_BASE_URL"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
