package clientbase

import (
	lconfig "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/config"
)

type Config struct {
	// ApiToken, when set, is sent as a bearer token on every request.
	ApiToken string `env:"CLIENT_API_TOKEN" envDefault:""`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
