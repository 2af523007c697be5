// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointAxisOrder(t *testing.T) {
	p := NewPoint(40.7128, -74.0060)

	assert.InDelta(t, -74.0060, p[0], 1e-9, "first component must be longitude")
	assert.InDelta(t, 40.7128, p[1], 1e-9)
	assert.InDelta(t, 40.7128, p.Lat(), 1e-9)
	assert.InDelta(t, -74.0060, p.Lng(), 1e-9)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Point{}.IsZero())
	assert.False(t, NewPoint(0, 1).IsZero())
	assert.False(t, NewPoint(1, 0).IsZero())
}

func TestValid(t *testing.T) {
	assert.True(t, NewPoint(-34.88, -56.15).Valid())
	assert.False(t, NewPoint(91, 0).Valid())
	assert.False(t, NewPoint(0, -181).Valid())
}

func TestMarshalGeoJSON(t *testing.T) {
	data, err := json.Marshal(NewPoint(40.7128, -74.006))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"Point","coordinates":[-74.006,40.7128]}`, string(data))
}

func TestUnmarshalGeoJSON(t *testing.T) {
	var p Point

	err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[-56.1529602,-34.8822366]}`), &p)
	require.NoError(t, err)
	assert.InDelta(t, -34.8822366, p.Lat(), 1e-9)
	assert.InDelta(t, -56.1529602, p.Lng(), 1e-9)

	err = json.Unmarshal([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), &p)
	assert.Error(t, err)
}

func TestDistanceTo(t *testing.T) {
	montevideo := NewPoint(-34.9011, -56.1645)
	buenosAires := NewPoint(-34.6037, -58.3816)

	// Roughly 205 km across the Río de la Plata.
	assert.InDelta(t, 205_000, montevideo.DistanceTo(buenosAires), 5_000)
	assert.Zero(t, montevideo.DistanceTo(montevideo))
}

func TestCell(t *testing.T) {
	a, err := NewPoint(40.7128, -74.0060).Cell(7)
	require.NoError(t, err)

	b, err := NewPoint(40.7129, -74.0061).Cell(7)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 7, a.Resolution())
}
