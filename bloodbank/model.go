// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"fmt"
	"time"

	"github.com/peopleblood/peopleblood/spatial"
)

// BloodType is an ABO/Rh blood group.
type BloodType string

const (
	APositive  BloodType = "A+"
	ANegative  BloodType = "A-"
	BPositive  BloodType = "B+"
	BNegative  BloodType = "B-"
	ABPositive BloodType = "AB+"
	ABNegative BloodType = "AB-"
	OPositive  BloodType = "O+"
	ONegative  BloodType = "O-"

	// UnknownBloodType is accepted for donors who don't know their group.
	UnknownBloodType BloodType = "unknown"
)

// BloodTypes lists the groups a request can ask for.
var BloodTypes = []BloodType{APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative}

// Valid reports whether t is one of BloodTypes.
func (t BloodType) Valid() bool {
	for _, bt := range BloodTypes {
		if t == bt {
			return true
		}
	}

	return false
}

// Urgency of a blood request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"      // within a week
	UrgencyMedium   Urgency = "medium"   // within 2-3 days
	UrgencyHigh     Urgency = "high"     // within 24 hours
	UrgencyCritical Urgency = "critical" // within hours
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}

	return false
}

// RequestStatus is the processing state of a blood request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusFulfilled  RequestStatus = "fulfilled"
	StatusCancelled  RequestStatus = "cancelled"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case StatusPending, StatusProcessing, StatusFulfilled, StatusCancelled:
		return st, nil
	}

	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Donor is a registered blood donor as stored by the backend.
type Donor struct {
	ID                string     `json:"_id,omitempty"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	DOB               *time.Time `json:"dob,omitempty"`
	Gender            string     `json:"gender"`
	BloodType         BloodType  `json:"bloodType"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	State             string     `json:"state"`
	ZipCode           string     `json:"zipCode"`
	PreviousDonation  string     `json:"previousDonation"` // yes, no
	MedicalConditions string     `json:"medicalConditions"`
	AdditionalInfo    string     `json:"additionalInfo"`
	AgreeTerms        bool       `json:"agreeTerms"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
}

// BloodRequest is a request for blood units for a patient. A nil Location
// means the request has not been placed on the map yet.
type BloodRequest struct {
	ID             string         `json:"_id,omitempty"`
	PatientName    string         `json:"patientName"`
	ContactPerson  string         `json:"contactPerson"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	BloodType      BloodType      `json:"bloodType"`
	UnitsNeeded    string         `json:"unitsNeeded"`
	Hospital       string         `json:"hospital"`
	Address        string         `json:"address,omitempty"`
	Location       *spatial.Point `json:"location,omitempty"`
	Urgency        Urgency        `json:"urgency"`
	RequiredBy     *time.Time     `json:"requiredBy,omitempty"`
	Reason         string         `json:"reason"`
	AdditionalInfo string         `json:"additionalInfo,omitempty"`
	Status         RequestStatus  `json:"status,omitempty"`
	CreatedAt      *time.Time     `json:"createdAt,omitempty"`
}

// Resolved reports whether the request carries a usable location.
func (r *BloodRequest) Resolved() bool {
	return r.Location != nil && !r.Location.IsZero()
}
