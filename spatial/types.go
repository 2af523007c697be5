// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the geographic primitives shared by the resolver and
// the blood bank client.
package spatial

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/uber/h3-go/v4"
)

// Point is a geographic position in GeoJSON axis order: longitude first.
type Point orb.Point

// NewPoint builds a Point from the usual (lat, lng) argument order.
func NewPoint(lat, lng float64) Point {
	return Point{lng, lat}
}

// Lng returns the longitude.
func (p Point) Lng() float64 { return p[0] }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p[1] }

// IsZero reports whether both components are 0, which the backend and the
// submission forms use to mean "not resolved yet".
func (p Point) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) &&
		p[0] >= -180 && p[0] <= 180 &&
		p[1] >= -90 && p[1] <= 90
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng(), p.Lat())
}

// DistanceTo returns the great-circle distance to other in meters.
func (p Point) DistanceTo(other Point) float64 {
	return geo.DistanceHaversine(orb.Point(p), orb.Point(other))
}

// Cell returns the H3 cell containing p at the given resolution.
func (p Point) Cell(res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat(), p.Lng()), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// MarshalJSON encodes the point as a GeoJSON Point geometry.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(orb.Point(p)))
}

// UnmarshalJSON decodes a GeoJSON Point geometry.
func (p *Point) UnmarshalJSON(data []byte) error {
	var g geojson.Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("spatial: decoding geometry: %w", err)
	}

	pt, ok := g.Geometry().(orb.Point)
	if !ok {
		return fmt.Errorf("spatial: expected Point geometry, got %q", g.Type)
	}

	*p = Point(pt)

	return nil
}
