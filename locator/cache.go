// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/peopleblood/peopleblood/spatial"
	"github.com/peopleblood/peopleblood/storage"
	"github.com/sirupsen/logrus"
)

const (
	// CacheKey is the storage key holding the whole geocoding cache.
	CacheKey = "geocodeCache"

	// MaxCacheAge is the age at which a cache entry stops being served.
	MaxCacheAge = 24 * time.Hour
)

// CacheEntry is a cached forward geocoding result.
type CacheEntry struct {
	Address     string        `json:"address"`
	Coordinates spatial.Point `json:"coordinates"`
	Timestamp   time.Time     `json:"timestamp"`
}

// persistedEntry is the stored shape: coordinates as a bare [lng, lat]
// pair and the timestamp in epoch milliseconds.
type persistedEntry struct {
	Coordinates orb.Point `json:"coordinates"`
	Timestamp   int64     `json:"timestamp"`
}

// NormalizeAddress returns the cache key for an address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// geocodeCache is the in-memory view of the persisted cache. It is not safe
// for concurrent use; the Resolver serializes access.
type geocodeCache struct {
	store   storage.Store
	log     logrus.FieldLogger
	entries map[string]persistedEntry
}

func newGeocodeCache(store storage.Store, log logrus.FieldLogger) *geocodeCache {
	return &geocodeCache{store: store, log: log}
}

// load reads the persisted cache the first time it is needed. Missing or
// unreadable data yields an empty cache.
func (c *geocodeCache) load(ctx context.Context) {
	if c.entries != nil {
		return
	}

	c.entries = make(map[string]persistedEntry)

	data, err := c.store.Get(ctx, CacheKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.WithError(err).Warn("reading geocode cache, starting empty")
		}

		return
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.log.WithError(err).Warn("geocode cache is corrupt, starting empty")

		c.entries = make(map[string]persistedEntry)
	}
}

func (c *geocodeCache) save(ctx context.Context) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encoding geocode cache: %w", err)
	}

	if err := c.store.Set(ctx, CacheKey, data); err != nil {
		return fmt.Errorf("persisting geocode cache: %w", err)
	}

	return nil
}

func isStale(e persistedEntry, now time.Time) bool {
	return now.Sub(time.UnixMilli(e.Timestamp)) >= MaxCacheAge
}

// lookup returns the fresh entry for key, if any.
func (c *geocodeCache) lookup(ctx context.Context, key string, now time.Time) (spatial.Point, bool) {
	c.load(ctx)

	e, ok := c.entries[key]
	if !ok || isStale(e, now) {
		return spatial.Point{}, false
	}

	return spatial.Point(e.Coordinates), true
}

func (c *geocodeCache) put(ctx context.Context, key string, p spatial.Point, now time.Time) error {
	c.load(ctx)

	c.entries[key] = persistedEntry{
		Coordinates: orb.Point(p),
		Timestamp:   now.UnixMilli(),
	}

	return c.save(ctx)
}

// sweep drops stale entries and persists only when something was dropped.
func (c *geocodeCache) sweep(ctx context.Context, now time.Time) (int, error) {
	c.load(ctx)

	removed := 0

	for key, e := range c.entries {
		if isStale(e, now) {
			delete(c.entries, key)

			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	return removed, c.save(ctx)
}

func (c *geocodeCache) snapshot(ctx context.Context) []CacheEntry {
	c.load(ctx)

	out := make([]CacheEntry, 0, len(c.entries))
	for key, e := range c.entries {
		out = append(out, CacheEntry{
			Address:     key,
			Coordinates: spatial.Point(e.Coordinates),
			Timestamp:   time.UnixMilli(e.Timestamp),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	return out
}

func (c *geocodeCache) clear(ctx context.Context) error {
	c.entries = make(map[string]persistedEntry)

	if err := c.store.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("clearing geocode cache: %w", err)
	}

	return nil
}
