// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peopleblood/peopleblood/spatial"
	"github.com/sirupsen/logrus"
)

// ErrLocationRequired means the request has no coordinates and none could be
// derived from its address.
var ErrLocationRequired = errors.New("location is required")

// AddressResolver turns a free-form address into coordinates.
type AddressResolver interface {
	ResolveAddress(ctx context.Context, address string) (spatial.Point, error)
}

// RequestCreator persists blood requests.
type RequestCreator interface {
	CreateBloodRequest(ctx context.Context, r *BloodRequest) (*BloodRequest, error)
}

// Submitter validates blood requests, makes sure they carry a location and
// hands them to the backend.
type Submitter struct {
	Resolver AddressResolver
	Backend  RequestCreator
	Log      logrus.FieldLogger
}

// Submit creates r on the backend. When r has no location, its address is
// geocoded first; if that fails the backend is never called and the error
// wraps ErrLocationRequired.
func (s *Submitter) Submit(ctx context.Context, r *BloodRequest) (*BloodRequest, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	if !r.Resolved() {
		address := strings.TrimSpace(r.Address)
		if address == "" {
			return nil, fmt.Errorf("%w: no coordinates and no address given", ErrLocationRequired)
		}

		p, err := s.Resolver.ResolveAddress(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocationRequired, err)
		}

		if p.IsZero() {
			return nil, fmt.Errorf("%w: %q did not resolve", ErrLocationRequired, address)
		}

		r.Location = &p
		log.WithFields(logrus.Fields{"address": address, "location": p.String()}).Debug("resolved request location")
	}

	if !r.Location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range %s", ErrValidation, r.Location)
	}

	created, err := s.Backend.CreateBloodRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"id":        created.ID,
		"bloodType": created.BloodType,
		"urgency":   created.Urgency,
	}).Info("blood request created")

	return created, nil
}

// NotAvailable is displayed for requests without a location.
const NotAvailable = "N/A"

// AddressDescriber turns coordinates into display text.
type AddressDescriber interface {
	ResolveCoordinatesToAddress(ctx context.Context, lat, lng float64) string
}

// DescribeLocation returns display text for the location of r: its stored
// address, else a reverse lookup of its point, else NotAvailable.
func DescribeLocation(ctx context.Context, d AddressDescriber, r *BloodRequest) string {
	if address := strings.TrimSpace(r.Address); address != "" {
		return address
	}

	if !r.Resolved() {
		return NotAvailable
	}

	return d.ResolveCoordinatesToAddress(ctx, r.Location.Lat(), r.Location.Lng())
}
