// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("invalid input")

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

type validator struct {
	errs []error
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.errs = append(v.errs, &FieldError{Field: field, Message: message})
	}
}

func (v *validator) minLen(value string, n int, field, message string) {
	v.check(len([]rune(strings.TrimSpace(value))) >= n, field, message)
}

func (v *validator) email(value, field string) {
	_, err := mail.ParseAddress(value)
	v.check(err == nil, field, "Please enter a valid email address.")
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrValidation, errors.Join(v.errs...))
}

// Validate applies the registration form rules.
func (d *Donor) Validate() error {
	var v validator

	v.minLen(d.Name, 2, "name", "Name must be at least 2 characters.")
	v.email(d.Email, "email")
	v.minLen(d.Phone, 10, "phone", "Please enter a valid phone number.")
	v.check(d.DOB != nil, "dob", "Please select your date of birth.")
	v.check(d.Gender != "", "gender", "Please select your gender.")
	v.check(d.BloodType.Valid() || d.BloodType == UnknownBloodType, "bloodType", "Please select your blood type.")
	v.minLen(d.Address, 5, "address", "Address must be at least 5 characters.")
	v.minLen(d.City, 2, "city", "City must be at least 2 characters.")
	v.minLen(d.State, 2, "state", "State must be at least 2 characters.")
	v.minLen(d.ZipCode, 5, "zipCode", "Zip code must be at least 5 characters.")
	v.check(d.PreviousDonation != "", "previousDonation", "Please indicate if you've donated before.")
	v.check(d.AgreeTerms, "agreeTerms", "You must agree to the terms and conditions.")

	return v.err()
}

// Validate applies the request form rules. Location is checked separately
// by the Submitter.
func (r *BloodRequest) Validate() error {
	var v validator

	v.minLen(r.PatientName, 2, "patientName", "Patient name must be at least 2 characters.")
	v.minLen(r.ContactPerson, 2, "contactPerson", "Contact person name must be at least 2 characters.")
	v.email(r.Email, "email")
	v.minLen(r.Phone, 10, "phone", "Please enter a valid phone number.")
	v.check(r.BloodType.Valid(), "bloodType", "Please select the required blood type.")

	units, err := strconv.Atoi(strings.TrimSpace(r.UnitsNeeded))
	v.check(err == nil && units >= 1, "unitsNeeded", "Please specify how many units are needed.")

	v.minLen(r.Hospital, 2, "hospital", "Hospital name must be at least 2 characters.")
	v.check(r.Urgency.Valid(), "urgency", "Please select the urgency level.")
	v.check(r.RequiredBy != nil, "requiredBy", "Please select when the blood is needed by.")
	v.minLen(r.Reason, 10, "reason", "Please provide a detailed reason for the request.")

	return v.err()
}
