// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"time"

	"github.com/peopleblood/peopleblood/spatial"
)

func ptr[T any](v T) *T { return &v }

func validRequest() *BloodRequest {
	return &BloodRequest{
		PatientName:   "Ana Pérez",
		ContactPerson: "Luis Pérez",
		Email:         "luis@example.com",
		Phone:         "5551234567",
		BloodType:     ONegative,
		UnitsNeeded:   "2",
		Hospital:      "Hospital de Clínicas",
		Address:       "Av. Italia s/n, Montevideo",
		Urgency:       UrgencyHigh,
		RequiredBy:    ptr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Reason:        "Scheduled surgery with expected blood loss",
	}
}

func validDonor() *Donor {
	return &Donor{
		Name:             "María González",
		Email:            "maria@example.com",
		Phone:            "5557654321",
		DOB:              ptr(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)),
		Gender:           "female",
		BloodType:        APositive,
		Address:          "18 de Julio 1234",
		City:             "Montevideo",
		State:            "Montevideo",
		ZipCode:          "11200",
		PreviousDonation: "yes",
		AgreeTerms:       true,
	}
}

func located(lat, lng float64) *spatial.Point {
	p := spatial.NewPoint(lat, lng)

	return &p
}
