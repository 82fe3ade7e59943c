package tensorboard

import (
	lconfig "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/config"
)

type Config struct {
	BaseUrl string `env:"TENSORBOARD_BASE_URL" envDefault:""`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
