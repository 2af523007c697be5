// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"fmt"
	"math"
	"slices"

	"github.com/peopleblood/peopleblood/spatial"
	"github.com/uber/h3-go/v4"
)

const (
	// nearbyResolution is the H3 resolution of the prefilter grid.
	nearbyResolution = 6

	// nearbyMinEdgeKm underestimates the edge length of a resolution 6 cell
	// so the grid disk always covers the search radius.
	nearbyMinEdgeKm = 2.0

	// nearbyMaxRings bounds the grid disk. Larger radii scan every request.
	nearbyMaxRings = 100
)

// NearbyRequest is a blood request with its distance to a search origin.
type NearbyRequest struct {
	BloodRequest
	DistanceKm float64 `json:"distanceKm"`
}

// Nearby returns the requests located within radiusKm of origin, closest
// first. Requests without a location are skipped.
func Nearby(reqs []BloodRequest, origin spatial.Point, radiusKm float64) ([]NearbyRequest, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: origin out of range %s", ErrValidation, origin)
	}

	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("%w: radius must be positive", ErrValidation)
	}

	inDisk, err := diskFilter(origin, radiusKm)
	if err != nil {
		return nil, err
	}

	var out []NearbyRequest

	for i := range reqs {
		r := &reqs[i]
		if !r.Resolved() || !r.Location.Valid() {
			continue
		}

		if inDisk != nil {
			cell, err := r.Location.Cell(nearbyResolution)
			if err != nil || !inDisk[cell] {
				continue
			}
		}

		km := origin.DistanceTo(*r.Location) / 1000
		if km <= radiusKm {
			out = append(out, NearbyRequest{BloodRequest: *r, DistanceKm: km})
		}
	}

	slices.SortStableFunc(out, func(a, b NearbyRequest) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})

	return out, nil
}

// diskFilter returns the set of cells around origin that may hold points
// within radiusKm, or nil when the radius is too large to prefilter.
func diskFilter(origin spatial.Point, radiusKm float64) (map[h3.Cell]bool, error) {
	rings := int(math.Ceil(radiusKm/nearbyMinEdgeKm)) + 1
	if rings > nearbyMaxRings {
		return nil, nil
	}

	center, err := origin.Cell(nearbyResolution)
	if err != nil {
		return nil, err
	}

	cells, err := center.GridDisk(rings)
	if err != nil {
		return nil, fmt.Errorf("computing grid disk: %w", err)
	}

	set := make(map[h3.Cell]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}

	return set, nil
}
