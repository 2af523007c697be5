// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/peopleblood/peopleblood/bloodbank"
	"github.com/peopleblood/peopleblood/config"
	"github.com/peopleblood/peopleblood/geocode"
	"github.com/peopleblood/peopleblood/locator"
	"github.com/peopleblood/peopleblood/storage"
	"github.com/peopleblood/peopleblood/utils/httputils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags. Empty values fall back to the
// environment configuration.
type rootOptions struct {
	DataDir   string
	Store     string
	Backend   string
	Geocoder  string
	EnvFile   string
	HTTPTrace bool
	TraceBody bool
	Verbose   bool
}

var (
	rootOpts rootOptions
	cfg      *config.Config
	logger   = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "pblood",
	Short: "blood donation coordination toolkit",
	Long: `
pblood talks to the blood bank backend: it registers donors, creates blood
requests placed on the map, and resolves addresses to coordinates through a
cached geocoding service.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})

		if rootOpts.Verbose {
			logger.SetLevel(logrus.DebugLevel)
		}

		var files []string
		if rootOpts.EnvFile != "" {
			files = append(files, rootOpts.EnvFile)
		}

		var err error
		if cfg, err = config.Load(files...); err != nil {
			return err
		}

		overrides := []struct {
			flag  string
			value *string
		}{
			{rootOpts.DataDir, &cfg.DataDir},
			{rootOpts.Store, &cfg.Store},
			{rootOpts.Backend, &cfg.BackendURL},
			{rootOpts.Geocoder, &cfg.Geocoder},
		}
		for _, o := range overrides {
			if o.flag != "" {
				*o.value = o.flag
			}
		}

		return cfg.Validate()
	},
}

var Version = "dev"

// geocoderTimeout bounds geocoding calls. Backend calls use the configured
// HTTP timeout.
const geocoderTimeout = 10 * time.Second

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.DataDir, "data", "", "Directory holding the local state (env PBLOOD_DATA)")
	flags.StringVar(&rootOpts.Store, "store", "", "Cache store: file, duckdb, sqlite, postgres or memory (env PBLOOD_STORE)")
	flags.StringVar(&rootOpts.Backend, "backend", "", "Blood bank API base URL (env PBLOOD_BACKEND)")
	flags.StringVar(&rootOpts.Geocoder, "geocoder", "", "Geocoding provider: nominatim or google (env PBLOOD_GEOCODER)")
	flags.StringVar(&rootOpts.EnvFile, "env-file", "", "Read settings from this file instead of ./.env")
	flags.BoolVar(&rootOpts.HTTPTrace, "http-trace", false, "Display HTTP requests-responses")
	flags.BoolVar(&rootOpts.TraceBody, "http-trace-body", false, "Display HTTP requests-responses bodies")
	flags.BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "Enable debug logging")
}

func userAgent() string {
	if cfg.UserAgent != "" && cfg.UserAgent != "peopleblood/dev" {
		return cfg.UserAgent
	}

	return fmt.Sprintf("peopleblood/%s (+https://github.com/peopleblood/peopleblood)", Version)
}

func httpClientOptions() httputils.ClientOptions {
	var trace io.Writer
	if rootOpts.HTTPTrace || rootOpts.TraceBody {
		trace = os.Stderr
	}

	return httputils.ClientOptions{
		UserAgent: userAgent(),
		Timeout:   cfg.HTTPTimeout,
		Trace:     trace,
		TraceBody: rootOpts.TraceBody,
	}
}

// openStore opens the configured cache store. The returned function
// releases it.
func openStore() (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemoryStore(), noop, nil
	case config.StoreDuckDB:
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}

		s, err := storage.OpenDuckDBStore(filepath.Join(cfg.DataDir, "peopleblood.duckdb"))
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}

		s, err := storage.OpenSQLiteStore(filepath.Join(cfg.DataDir, "peopleblood.sqlite"))
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	case config.StorePostgres:
		s, err := storage.OpenPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	default:
		return storage.NewFileStore(filepath.Join(cfg.DataDir, "cache")), noop, nil
	}
}

func geocoderClientOptions() httputils.ClientOptions {
	opts := httpClientOptions()
	opts.Timeout = geocoderTimeout

	return opts
}

func newGeocoder(ctx context.Context) (geocode.Geocoder, error) {
	opts := geocoderClientOptions()

	if cfg.Geocoder != config.GeocoderGoogle {
		return geocode.NewNominatim(
			geocode.WithNominatimURL(cfg.NominatimURL),
			geocode.WithHTTPClient(httputils.NewClient(opts)),
		), nil
	}

	key := cfg.GoogleMapsAPIKey
	if key == "" {
		logger.Info("GOOGLE_MAPS_API_KEY is not set, looking it up through application default credentials")

		var err error
		if key, err = geocode.APIKeyFromADC(ctx, cfg.GoogleProject); err != nil {
			return nil, fmt.Errorf("google geocoder needs an API key: %w", err)
		}
	}

	return geocode.NewGoogleMapsGeocoder(key, "", httputils.NewClient(opts)), nil
}

// newResolver wires store, geocoder and device into a Resolver. The
// returned function closes the store.
func newResolver(ctx context.Context, device locator.DeviceLocator) (*locator.Resolver, func() error, error) {
	store, closeStore, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	g, err := newGeocoder(ctx)
	if err != nil {
		return nil, nil, errors.Join(err, closeStore())
	}

	opts := []locator.Option{locator.WithLogger(logger)}
	if device != nil {
		opts = append(opts, locator.WithDeviceLocator(device))
	}

	return locator.NewResolver(ctx, store, g, opts...), closeStore, nil
}

func newBackend() *bloodbank.Client {
	opts := httpClientOptions()
	opts.RequestIDs = true

	return bloodbank.NewClient(bloodbank.ClientOptions{
		BaseURL:    cfg.BackendURL,
		HTTPClient: httputils.NewClient(opts),
	})
}
