// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/peopleblood/peopleblood/bloodbank"
)

// defaultNearbyRadiusKm is used when the radius parameter is missing.
const defaultNearbyRadiusKm = 10

func (s *Server) listDonors(c *gin.Context) {
	donors, err := s.backend.ListDonors(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	filter := bloodbank.DonorFilter{
		Query:     c.Query("search"),
		BloodType: bloodbank.BloodType(c.Query("bloodType")),
	}

	c.JSON(http.StatusOK, nonNil(bloodbank.FilterDonors(donors, filter)))
}

func (s *Server) createDonor(c *gin.Context) {
	var d bloodbank.Donor
	if err := c.ShouldBindJSON(&d); err != nil {
		badRequest(c, err.Error())

		return
	}

	if err := d.Validate(); err != nil {
		abort(c, err)

		return
	}

	created, err := s.backend.CreateDonor(c.Request.Context(), &d)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) listBloodRequests(c *gin.Context) {
	reqs, err := s.backend.ListBloodRequests(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	filter := bloodbank.RequestFilter{
		Query:     c.Query("search"),
		BloodType: bloodbank.BloodType(c.Query("bloodType")),
		Status:    bloodbank.RequestStatus(c.Query("status")),
		Urgency:   bloodbank.Urgency(c.Query("urgency")),
	}

	c.JSON(http.StatusOK, nonNil(bloodbank.FilterRequests(reqs, filter)))
}

func (s *Server) createBloodRequest(c *gin.Context) {
	var r bloodbank.BloodRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err.Error())

		return
	}

	created, err := s.submitter.Submit(c.Request.Context(), &r)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) nearbyBloodRequests(c *gin.Context) {
	origin, ok := parseLatLng(c)
	if !ok {
		return
	}

	radius := float64(defaultNearbyRadiusKm)

	if v := c.Query("radius"); v != "" {
		var err error
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			badRequest(c, "radius must be a number of kilometers")

			return
		}
	}

	reqs, err := s.backend.ListBloodRequests(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	nearby, err := bloodbank.Nearby(reqs, origin, radius)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, nonNil(nearby))
}

func (s *Server) describeRequestLocation(c *gin.Context) {
	reqs, err := s.backend.ListBloodRequests(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	id := c.Param("id")
	for i := range reqs {
		if reqs[i].ID == id {
			c.JSON(http.StatusOK, gin.H{
				"id":      id,
				"address": bloodbank.DescribeLocation(c.Request.Context(), s.resolver, &reqs[i]),
			})

			return
		}
	}

	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "blood request not found"})
}

func (s *Server) updateRequestStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())

		return
	}

	status, err := bloodbank.ParseStatus(body.Status)
	if err != nil {
		abort(c, err)

		return
	}

	updated, err := s.backend.UpdateRequestStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) stats(c *gin.Context) {
	donors, err := s.backend.ListDonors(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	reqs, err := s.backend.ListBloodRequests(c.Request.Context())
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, bloodbank.ComputeStats(donors, reqs))
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
