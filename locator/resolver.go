// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Package locator resolves addresses to coordinates and back, caching
// forward lookups and rate limiting device location requests.
package locator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/peopleblood/peopleblood/geocode"
	"github.com/peopleblood/peopleblood/spatial"
	"github.com/peopleblood/peopleblood/storage"
	"github.com/peopleblood/peopleblood/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DeviceRequestInterval is the minimum spacing between device location requests.
	DeviceRequestInterval = 5 * time.Second

	// LocationUnavailable is shown when a reverse lookup fails.
	LocationUnavailable = "Location unavailable"

	// AddressNotAvailable is shown when a reverse lookup has no display name.
	AddressNotAvailable = "Address not available"
)

// Resolver turns addresses and device positions into coordinates. A single
// Resolver is meant to be shared by all callers of a session or process.
type Resolver struct {
	geocoder geocode.Geocoder
	device   DeviceLocator
	now      func() time.Time
	log      logrus.FieldLogger

	mu                  sync.Mutex
	cache               *geocodeCache
	lastDeviceRequestAt time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDeviceLocator sets the device position source. Without one,
// RequestDeviceLocation fails with ErrUnsupported.
func WithDeviceLocator(d DeviceLocator) Option {
	return func(r *Resolver) {
		r.device = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a Resolver backed by store and sweeps stale cache
// entries once.
func NewResolver(ctx context.Context, store storage.Store, geocoder geocode.Geocoder, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: geocoder,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.cache = newGeocodeCache(store, r.log)

	if _, err := r.SweepStaleCacheEntries(ctx); err != nil {
		r.log.WithError(err).Warn("sweeping geocode cache")
	}

	return r
}

// ResolveAddress returns the coordinates of address, from the cache when a
// fresh entry exists. A blank address is a no-op and returns the zero Point.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (spatial.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return spatial.Point{}, nil
	}

	key := NormalizeAddress(address)
	log := r.log.WithField("address", key)

	r.mu.Lock()
	p, ok := r.cache.lookup(ctx, key, r.now())
	r.mu.Unlock()

	if ok {
		log.Debug("geocode cache hit")

		return p, nil
	}

	p, err := r.geocodeAddress(ctx, key, address)
	if err != nil {
		return spatial.Point{}, err
	}

	r.mu.Lock()
	err = r.cache.put(ctx, key, p, r.now())
	r.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("caching geocoding result")
	}

	return p, nil
}

// geocodeAddress asks the geocoder for the best match of address.
func (r *Resolver) geocodeAddress(ctx context.Context, key, address string) (_ spatial.Point, err error) {
	ctx, span := telemetry.Start(ctx, "locator.geocode", attribute.String("address", key))
	defer func() { telemetry.End(span, err) }()

	places, err := r.geocoder.Search(ctx, address, 1)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("geocoding %q: %w", address, err)
	}

	if len(places) == 0 {
		return spatial.Point{}, fmt.Errorf("%w: %q", ErrNotFound, address)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("geocoding %q: parsing latitude: %w", address, err)
	}

	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("geocoding %q: parsing longitude: %w", address, err)
	}

	span.SetAttributes(attribute.String("provider", places[0].Provider))
	r.log.WithField("address", key).WithField("provider", places[0].Provider).Debug("geocoded address")

	return spatial.NewPoint(lat, lng), nil
}

// ReverseGeocode returns the structured address at the given coordinates.
// Reverse lookups are not cached.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lng float64) (_ *geocode.Address, err error) {
	ctx, span := telemetry.Start(ctx, "locator.reverse",
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
	)
	defer func() { telemetry.End(span, err) }()

	addr, err := r.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding (%f, %f): %w", lat, lng, err)
	}

	return addr, nil
}

// ResolveCoordinatesToAddress returns a display string for the given
// coordinates. It never fails: errors yield LocationUnavailable.
func (r *Resolver) ResolveCoordinatesToAddress(ctx context.Context, lat, lng float64) string {
	addr, err := r.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		r.log.WithError(err).Debug("reverse geocoding failed")

		return LocationUnavailable
	}

	if addr.DisplayName == "" {
		return AddressNotAvailable
	}

	return addr.DisplayName
}

// RequestDeviceLocation asks the device locator for a one-shot position fix.
// Calls closer than DeviceRequestInterval to the previous accepted call fail
// with ErrRateLimited, whatever the outcome of that previous call.
func (r *Resolver) RequestDeviceLocation(ctx context.Context) (spatial.Point, error) {
	r.mu.Lock()

	now := r.now()
	if !r.lastDeviceRequestAt.IsZero() {
		if wait := DeviceRequestInterval - now.Sub(r.lastDeviceRequestAt); wait > 0 {
			r.mu.Unlock()

			return spatial.Point{}, fmt.Errorf("%w (retry in %s)", ErrRateLimited, wait.Round(100*time.Millisecond))
		}
	}

	r.lastDeviceRequestAt = now
	device := r.device
	r.mu.Unlock()

	if device == nil {
		return spatial.Point{}, ErrUnsupported
	}

	pos, err := device.CurrentPosition(ctx)
	if err != nil {
		return spatial.Point{}, deviceError(err)
	}

	return spatial.NewPoint(pos.Latitude, pos.Longitude), nil
}

// SweepStaleCacheEntries removes expired cache entries and returns how many
// were removed. The cache is only rewritten when something was removed.
func (r *Resolver) SweepStaleCacheEntries(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed, err := r.cache.sweep(ctx, r.now())
	if removed > 0 {
		r.log.WithField("removed", removed).Debug("swept stale geocode cache entries")
	}

	return removed, err
}

// CacheEntries returns the cached entries sorted by address, stale ones
// included.
func (r *Resolver) CacheEntries(ctx context.Context) []CacheEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.snapshot(ctx)
}

// ClearCache drops every cached entry.
func (r *Resolver) ClearCache(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cache.clear(ctx)
}
