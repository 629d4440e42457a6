package config

import (
	"fmt"

	"github.com/driftnetio/driftnet/pkg/api"
	"github.com/driftnetio/driftnet/pkg/lib"
	"github.com/driftnetio/driftnet/pkg/lib/log"
	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/driftnetio/driftnet/pkg/storage/postgres"
	"github.com/joeshaw/envdecode"
)

type Config struct {
	DB        postgres.Config      `env:""`
	API       api.Config           `env:""`
	Log       log.Config           `env:""`
	Scrape    scrape.Config        `env:""`
	Providers types.ProviderConfig `env:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := lib.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
