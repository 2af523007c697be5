// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store kinds accepted by Config.Store.
const (
	StoreFile     = "file"
	StoreDuckDB   = "duckdb"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Geocoder kinds accepted by Config.Geocoder.
const (
	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"
)

// Config holds every setting that can come from the environment. Command
// line flags override these values.
type Config struct {
	DataDir      string        `env:"PBLOOD_DATA"          envDefault:"data"`
	Store        string        `env:"PBLOOD_STORE"         envDefault:"file"`
	BackendURL   string        `env:"PBLOOD_BACKEND"       envDefault:"http://localhost:3000/api"`
	Geocoder     string        `env:"PBLOOD_GEOCODER"      envDefault:"nominatim"`
	NominatimURL string        `env:"PBLOOD_NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
	IPLocatorURL string        `env:"PBLOOD_IPLOCATOR_URL" envDefault:"http://ip-api.com/json"`
	Listen       string        `env:"PBLOOD_LISTEN"        envDefault:":8080"`
	UserAgent    string        `env:"PBLOOD_USER_AGENT"    envDefault:"peopleblood/dev"`
	HTTPTimeout  time.Duration `env:"PBLOOD_HTTP_TIMEOUT"  envDefault:"30s"`
	PostgresDSN  string        `env:"PBLOOD_POSTGRES_DSN"`

	// OTelEndpoint enables trace export over OTLP/HTTP when set, e.g.
	// "http://localhost:4318".
	OTelEndpoint string `env:"PBLOOD_OTEL_ENDPOINT"`

	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`
	GoogleProject    string `env:"GOOGLE_CLOUD_PROJECT"`
}

// Load reads the given .env files, when they exist, and then parses the
// environment. Variables already set in the environment win over .env
// values. Without files, ".env" in the working directory is tried. Load
// does not validate: callers apply their overrides and then call Validate.
func Load(files ...string) (*Config, error) {
	if err := loadDotEnv(files...); err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreFile, StoreDuckDB, StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres store needs PBLOOD_POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want one of %s)", c.Store,
			strings.Join([]string{StoreFile, StoreDuckDB, StoreSQLite, StorePostgres, StoreMemory}, ", ")))
	}

	switch c.Geocoder {
	case GeocoderNominatim, GeocoderGoogle:
	default:
		errs = append(errs, fmt.Errorf("unknown geocoder %q (want %s or %s)", c.Geocoder, GeocoderNominatim, GeocoderGoogle))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout))
	}

	return errors.Join(errs...)
}
