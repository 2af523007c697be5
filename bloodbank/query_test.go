// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peopleblood/peopleblood/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(reqs []BloodRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}

	return out
}

func sampleRequests() []BloodRequest {
	day := func(d int) *time.Time { return ptr(time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)) }

	return []BloodRequest{
		{ID: "low", PatientName: "Ana", Hospital: "Clínicas", BloodType: APositive, Urgency: UrgencyLow, Status: StatusPending, CreatedAt: day(5)},
		{ID: "crit-old", PatientName: "José", Hospital: "Británico", BloodType: ONegative, Urgency: UrgencyCritical, Status: StatusProcessing, CreatedAt: day(1)},
		{ID: "crit-new", PatientName: "Zoe", Hospital: "Pereira Rossell", BloodType: ONegative, Urgency: UrgencyCritical, Status: StatusPending, CreatedAt: day(3)},
		{ID: "done", PatientName: "Raúl", Hospital: "Clinicas", BloodType: BPositive, Urgency: UrgencyCritical, Status: StatusFulfilled, CreatedAt: day(2)},
	}
}

func TestFilterRequests(t *testing.T) {
	reqs := sampleRequests()

	assert.Equal(t, []string{"crit-new", "done", "crit-old", "low"}, ids(FilterRequests(reqs, RequestFilter{})))
	assert.Equal(t, []string{"crit-new", "crit-old"}, ids(FilterRequests(reqs, RequestFilter{BloodType: ONegative})))
	assert.Equal(t, []string{"done", "low"}, ids(FilterRequests(reqs, RequestFilter{Query: "clinicas"})), "accents are folded")
	assert.Equal(t, []string{"crit-old"}, ids(FilterRequests(reqs, RequestFilter{Query: "JOSE", Status: StatusProcessing})))
	assert.Empty(t, FilterRequests(reqs, RequestFilter{Urgency: UrgencyMedium}))
}

func TestFilterRequestsByAddress(t *testing.T) {
	reqs := []BloodRequest{*validRequest()}

	assert.Len(t, FilterRequests(reqs, RequestFilter{Query: "italia"}), 1)
	assert.Empty(t, FilterRequests(reqs, RequestFilter{Query: "luis@example.com"}), "email is not searched")
}

func TestFilterRequestsUndatedLast(t *testing.T) {
	day := func(d int) *time.Time { return ptr(time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)) }
	reqs := []BloodRequest{
		{ID: "undated-1", Urgency: UrgencyHigh},
		{ID: "old", Urgency: UrgencyHigh, CreatedAt: day(1)},
		{ID: "undated-2", Urgency: UrgencyHigh},
		{ID: "new", Urgency: UrgencyHigh, CreatedAt: day(9)},
		{ID: "critical", Urgency: UrgencyCritical},
	}

	assert.Equal(t, []string{"critical", "new", "old", "undated-1", "undated-2"}, ids(FilterRequests(reqs, RequestFilter{})))
}

func TestFilterDonors(t *testing.T) {
	donors := []Donor{
		{ID: "1", Name: "María", City: "Montevideo", BloodType: APositive},
		{ID: "2", Name: "Pedro", City: "Salto", BloodType: ONegative},
	}

	got := FilterDonors(donors, DonorFilter{Query: "maria"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Len(t, FilterDonors(donors, DonorFilter{}), 2)
	assert.Len(t, FilterDonors(donors, DonorFilter{BloodType: All}), 2)
	assert.Empty(t, FilterDonors(donors, DonorFilter{Query: "salto", BloodType: APositive}))
}

func TestComputeStats(t *testing.T) {
	donors := []Donor{{BloodType: APositive}, {BloodType: APositive}, {BloodType: UnknownBloodType}}
	reqs := append(sampleRequests(), BloodRequest{BloodType: ABNegative, Urgency: UrgencyMedium})

	got := ComputeStats(donors, reqs)

	want := &Stats{
		TotalDonors:      3,
		TotalRequests:    5,
		PendingRequests:  3,
		CriticalRequests: 2,
		DonorsByType:     map[BloodType]int{APositive: 2, UnknownBloodType: 1},
		RequestsByType:   map[BloodType]int{APositive: 1, ONegative: 2, BPositive: 1, ABNegative: 1},
		RequestsByStatus: map[RequestStatus]int{StatusPending: 3, StatusProcessing: 1, StatusFulfilled: 1},
		RequestsByUrgency: map[Urgency]int{
			UrgencyLow: 1, UrgencyMedium: 1, UrgencyCritical: 3,
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeStats() mismatch (-want +got):\n%s", diff)
	}
}

func TestNearby(t *testing.T) {
	origin := spatial.NewPoint(-34.9011, -56.1645) // Montevideo centro

	reqs := []BloodRequest{
		{ID: "pocitos", Location: located(-34.9158, -56.1500)},
		{ID: "unresolved"},
		{ID: "zero", Location: located(0, 0)},
		{ID: "salto", Location: located(-31.3833, -57.9667)},
		{ID: "centro", Location: located(-34.9050, -56.1900)},
	}

	got, err := Nearby(reqs, origin, 10)
	require.NoError(t, err)

	var names []string
	for _, n := range got {
		names = append(names, n.ID)
		assert.LessOrEqual(t, n.DistanceKm, 10.0)
	}

	assert.Equal(t, []string{"pocitos", "centro"}, names)
	assert.InDelta(t, 2.1, got[0].DistanceKm, 0.3)

	// Too wide for the grid disk, falls back to scanning everything.
	got, err = Nearby(reqs, origin, 1000)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "salto", got[2].ID)
}

func TestNearbyInvalid(t *testing.T) {
	_, err := Nearby(nil, spatial.NewPoint(0, 0), 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = Nearby(nil, spatial.Point{200, 0}, 1)
	require.ErrorIs(t, err, ErrValidation)
}
