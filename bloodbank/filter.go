// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"slices"
	"strings"

	"github.com/peopleblood/peopleblood/utils/textutils"
)

// All in a filter field matches every value, like an empty field.
const All = "all"

func matches[T ~string](want, got T) bool {
	return want == "" || want == All || want == got
}

// DonorFilter selects donors. Zero fields match everything.
type DonorFilter struct {
	Query     string // matched against name, email, city and state
	BloodType BloodType
}

// Match reports whether d passes the filter.
func (f DonorFilter) Match(d *Donor) bool {
	if !matches(f.BloodType, d.BloodType) {
		return false
	}

	return textutils.ContainsFolded(strings.TrimSpace(f.Query), d.Name, d.Email, d.City, d.State)
}

// FilterDonors returns the donors matching f, keeping their order.
func FilterDonors(donors []Donor, f DonorFilter) []Donor {
	var out []Donor

	for i := range donors {
		if f.Match(&donors[i]) {
			out = append(out, donors[i])
		}
	}

	return out
}

// RequestFilter selects blood requests. Zero fields match everything.
type RequestFilter struct {
	Query     string // matched against patient, contact, hospital and address
	BloodType BloodType
	Status    RequestStatus
	Urgency   Urgency
}

// Match reports whether r passes the filter.
func (f RequestFilter) Match(r *BloodRequest) bool {
	if !matches(f.BloodType, r.BloodType) || !matches(f.Status, r.Status) || !matches(f.Urgency, r.Urgency) {
		return false
	}

	return textutils.ContainsFolded(strings.TrimSpace(f.Query), r.PatientName, r.ContactPerson, r.Hospital, r.Address)
}

// FilterRequests returns the requests matching f, most urgent first and
// then newest first. Requests without a creation time sort last within
// their urgency.
func FilterRequests(reqs []BloodRequest, f RequestFilter) []BloodRequest {
	var out []BloodRequest

	for i := range reqs {
		if f.Match(&reqs[i]) {
			out = append(out, reqs[i])
		}
	}

	slices.SortStableFunc(out, func(a, b BloodRequest) int {
		if d := urgencyRank(b.Urgency) - urgencyRank(a.Urgency); d != 0 {
			return d
		}

		// requests without a creation time go last
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return 0
		case a.CreatedAt == nil:
			return 1
		case b.CreatedAt == nil:
			return -1
		default:
			return b.CreatedAt.Compare(*a.CreatedAt)
		}
	})

	return out
}

func urgencyRank(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 4
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	}

	return 0
}
