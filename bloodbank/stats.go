// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

// Stats summarizes donors and requests for the dashboard.
type Stats struct {
	TotalDonors       int                   `json:"totalDonors"`
	TotalRequests     int                   `json:"totalRequests"`
	PendingRequests   int                   `json:"pendingRequests"`
	CriticalRequests  int                   `json:"criticalRequests"`
	DonorsByType      map[BloodType]int     `json:"donorsByType"`
	RequestsByType    map[BloodType]int     `json:"requestsByType"`
	RequestsByStatus  map[RequestStatus]int `json:"requestsByStatus"`
	RequestsByUrgency map[Urgency]int       `json:"requestsByUrgency"`
}

// ComputeStats aggregates donors and requests. Critical requests only
// count while they are still open.
func ComputeStats(donors []Donor, reqs []BloodRequest) *Stats {
	s := &Stats{
		TotalDonors:       len(donors),
		TotalRequests:     len(reqs),
		DonorsByType:      make(map[BloodType]int),
		RequestsByType:    make(map[BloodType]int),
		RequestsByStatus:  make(map[RequestStatus]int),
		RequestsByUrgency: make(map[Urgency]int),
	}

	for i := range donors {
		s.DonorsByType[donors[i].BloodType]++
	}

	for i := range reqs {
		r := &reqs[i]

		status := r.Status
		if status == "" {
			status = StatusPending
		}

		s.RequestsByType[r.BloodType]++
		s.RequestsByStatus[status]++
		s.RequestsByUrgency[r.Urgency]++

		if status == StatusPending {
			s.PendingRequests++
		}

		if r.Urgency == UrgencyCritical && (status == StatusPending || status == StatusProcessing) {
			s.CriticalRequests++
		}
	}

	return s
}
