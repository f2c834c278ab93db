package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geowerk/tilefetch/internal/fetcher"
	"github.com/geowerk/tilefetch/internal/pipeline"
	"github.com/geowerk/tilefetch/internal/region"
	"github.com/geowerk/tilefetch/internal/resilience"
	"github.com/geowerk/tilefetch/internal/store"
	"github.com/geowerk/tilefetch/pkg/geocode"
)

// env bundles the wired application components shared by the commands.
type env struct {
	Regions  region.Map
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initEnv(ctx context.Context) (*env, error) {
	regions, err := region.Load(cfg.Regions.File)
	if err != nil {
		return nil, eris.Wrap(err, "load regions")
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open manifest store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate manifest store")
	}

	tf := fetcher.NewTileFetcher(cfg.Download.Dir,
		fetcher.HTTPOptions{
			UserAgent:         cfg.Download.UserAgent,
			Timeout:           time.Duration(cfg.Download.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.Download.RequestsPerSecond,
		},
		fetcher.WithRetry(resilience.RetryConfig{
			MaxAttempts: cfg.Download.MaxAttempts,
			OnRetry:     resilience.RetryLogger("tile download"),
		}),
	)

	p := pipeline.New(regions, pipeline.NewResolver(buildGeocoder()), tf, st, pipeline.Options{
		Concurrency: cfg.Download.Concurrency,
		PointOnly:   cfg.Download.PointOnly,
	})

	return &env{Regions: regions, Store: st, Pipeline: p}, nil
}

// buildGeocoder assembles the provider cascade: the keyed buildings API
// first, the public Nominatim instance as fallback. Unconfigured providers
// are skipped by the cascade at call time.
func buildGeocoder() geocode.Client {
	var providers []geocode.Provider

	providers = append(providers, geocode.NewBuildingsProvider(geocode.BuildingsOptions{
		BaseURL:         cfg.Geocoder.Buildings.BaseURL,
		GeometryURL:     cfg.Geocoder.Buildings.GeometryURL,
		SubscriptionKey: cfg.Geocoder.Buildings.Key,
	}))

	if cfg.Geocoder.Nominatim.Enabled {
		providers = append(providers, geocode.NewNominatimProvider(geocode.NominatimOptions{
			BaseURL:   cfg.Geocoder.Nominatim.BaseURL,
			UserAgent: cfg.Download.UserAgent,
		}))
	}

	return geocode.NewCascade(providers...)
}
