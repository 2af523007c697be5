// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the resolver and the blood bank backend over a
// JSON HTTP API.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/peopleblood/peopleblood/bloodbank"
	"github.com/peopleblood/peopleblood/locator"
	"github.com/peopleblood/peopleblood/utils/httputils"
	"github.com/sirupsen/logrus"
)

// Backend is the subset of the blood bank REST client the server needs.
type Backend interface {
	ListDonors(ctx context.Context) ([]bloodbank.Donor, error)
	CreateDonor(ctx context.Context, d *bloodbank.Donor) (*bloodbank.Donor, error)
	ListBloodRequests(ctx context.Context) ([]bloodbank.BloodRequest, error)
	CreateBloodRequest(ctx context.Context, r *bloodbank.BloodRequest) (*bloodbank.BloodRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status bloodbank.RequestStatus) (*bloodbank.BloodRequest, error)
}

// Server serves the geocoding and blood bank API.
type Server struct {
	resolver  *locator.Resolver
	backend   Backend
	submitter *bloodbank.Submitter
	metrics   *metrics
	log       logrus.FieldLogger
}

// NewServer creates a Server. Blood requests it creates go through a
// bloodbank.Submitter so they are never sent without a location. A nil log
// uses the logrus standard logger.
func NewServer(resolver *locator.Resolver, backend Backend, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Server{
		resolver: resolver,
		backend:  backend,
		submitter: &bloodbank.Submitter{
			Resolver: resolver,
			Backend:  backend,
			Log:      log,
		},
		metrics: newMetrics(),
		log:     log,
	}
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), tracing(), s.requestLogger(), s.metrics.middleware())

	r.GET("/metrics", s.metrics.handler())

	r.GET("/api/geocode", s.geocode)
	r.GET("/api/reverse", s.reverse)
	r.POST("/api/device-location", s.deviceLocation)

	r.GET("/api/cache", s.listCache)
	r.POST("/api/cache/sweep", s.sweepCache)
	r.DELETE("/api/cache", s.clearCache)

	r.GET("/api/donors", s.listDonors)
	r.POST("/api/donors", s.createDonor)
	r.GET("/api/blood-requests", s.listBloodRequests)
	r.POST("/api/blood-requests", s.createBloodRequest)
	r.GET("/api/blood-requests/nearby", s.nearbyBloodRequests)
	r.GET("/api/blood-requests/:id/location", s.describeRequestLocation)
	r.PATCH("/api/blood-requests/:id/status", s.updateRequestStatus)
	r.GET("/api/stats", s.stats)

	return r
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("serving API")

	return s.Handler().Run(addr)
}

// requestLogger logs one line per request and echoes the request ID.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(httputils.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(httputils.RequestIDHeader, id)

		start := time.Now()
		c.Next()

		entry := s.log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).Round(time.Millisecond),
			"requestId": id,
		})

		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	}
}
