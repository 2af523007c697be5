// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode talks to forward and reverse geocoding services.
package geocode

import "context"

// Place is a forward geocoding result. Coordinates are kept as the decimal
// strings the services return; callers parse them.
type Place struct {
	Lat         string
	Lon         string
	DisplayName string
	Confidence  string // high, medium, low
	Provider    string
}

// Address is a reverse geocoding result.
type Address struct {
	DisplayName string            `json:"display_name"`
	Details     map[string]string `json:"details,omitempty"`
	Provider    string            `json:"provider"`
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	// Search resolves free text to at most limit places. No match is an
	// empty slice, not an error.
	Search(ctx context.Context, query string, limit int) ([]Place, error)

	// Reverse resolves a coordinate to a human readable address.
	Reverse(ctx context.Context, lat, lng float64) (*Address, error)
}
