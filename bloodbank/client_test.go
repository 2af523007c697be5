// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peopleblood/peopleblood/utils/httputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBloodRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/blood-requests", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(httputils.RequestIDHeader))
		_, _ = io.WriteString(w, `[
			{"_id": "r1", "patientName": "Ana", "bloodType": "O-", "urgency": "critical", "status": "pending",
			 "location": {"type": "Point", "coordinates": [-56.1645, -34.9011]}},
			{"_id": "r2", "patientName": "Beto", "bloodType": "A+", "urgency": "low", "status": "fulfilled"}
		]`)
	}))
	defer srv.Close()

	reqs, err := NewClient(ClientOptions{BaseURL: srv.URL + "/api/"}).ListBloodRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "r1", reqs[0].ID)
	require.True(t, reqs[0].Resolved())
	assert.InDelta(t, -34.9011, reqs[0].Location.Lat(), 1e-9)
	assert.InDelta(t, -56.1645, reqs[0].Location.Lng(), 1e-9)
	assert.False(t, reqs[1].Resolved())
}

func TestListDonors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/donors", r.URL.Path)
		_, _ = io.WriteString(w, `[{"_id": "d1", "name": "María", "bloodType": "unknown", "previousDonation": "yes"}]`)
	}))
	defer srv.Close()

	donors, err := NewClient(ClientOptions{BaseURL: srv.URL}).ListDonors(context.Background())
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, UnknownBloodType, donors[0].BloodType)
}

func TestCreateDonorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message": "Email already registered"}`)
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: srv.URL}).CreateDonor(context.Background(), validDonor())
	require.ErrorIs(t, err, ErrBackend)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Email already registered", apiErr.Message)
}

func TestUpdateRequestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/blood-requests/r1/status", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"status": "processing"}, body)

		_, _ = io.WriteString(w, `{"_id": "r1", "status": "processing"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})

	updated, err := c.UpdateRequestStatus(context.Background(), "r1", StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, updated.Status)

	_, err = c.UpdateRequestStatus(context.Background(), "r1", "approved")
	require.ErrorIs(t, err, ErrValidation)
}
