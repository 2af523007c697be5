// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/peopleblood/peopleblood/spatial"
)

type coordinatesResponse struct {
	Address     string     `json:"address,omitempty"`
	Coordinates [2]float64 `json:"coordinates"` // lng, lat
}

func newCoordinatesResponse(address string, p spatial.Point) coordinatesResponse {
	return coordinatesResponse{Address: address, Coordinates: [2]float64{p.Lng(), p.Lat()}}
}

func (s *Server) geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		badRequest(c, "address query parameter is required")

		return
	}

	p, err := s.resolver.ResolveAddress(c.Request.Context(), address)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, newCoordinatesResponse(address, p))
}

// parseLatLng reads lat and lng query parameters.
func parseLatLng(c *gin.Context) (spatial.Point, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)

	p := spatial.NewPoint(lat, lng)
	if errLat != nil || errLng != nil || !p.Valid() {
		badRequest(c, "lat and lng must be valid coordinates")

		return spatial.Point{}, false
	}

	return p, true
}

func (s *Server) reverse(c *gin.Context) {
	p, ok := parseLatLng(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": s.resolver.ResolveCoordinatesToAddress(c.Request.Context(), p.Lat(), p.Lng()),
	})
}

func (s *Server) deviceLocation(c *gin.Context) {
	p, err := s.resolver.RequestDeviceLocation(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, newCoordinatesResponse("", p))
}

func (s *Server) listCache(c *gin.Context) {
	c.JSON(http.StatusOK, s.resolver.CacheEntries(c.Request.Context()))
}

func (s *Server) sweepCache(c *gin.Context) {
	removed, err := s.resolver.SweepStaleCacheEntries(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) clearCache(c *gin.Context) {
	if err := s.resolver.ClearCache(c.Request.Context()); err != nil {
		abort(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}
