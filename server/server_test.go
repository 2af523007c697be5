// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peopleblood/peopleblood/bloodbank"
	"github.com/peopleblood/peopleblood/geocode"
	"github.com/peopleblood/peopleblood/locator"
	"github.com/peopleblood/peopleblood/spatial"
	"github.com/peopleblood/peopleblood/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Search(_ context.Context, query string, _ int) ([]geocode.Place, error) {
	switch query {
	case "Hospital Maciel":
		return []geocode.Place{{Lat: "-34.9067", Lon: "-56.2083", Provider: "fake"}}, nil
	case "offline":
		return nil, &geocode.GeocodingError{Type: geocode.ErrorTypeNetworkError, Message: "connection refused"}
	}

	return nil, nil
}

func (fakeGeocoder) Reverse(_ context.Context, lat, _ float64) (*geocode.Address, error) {
	if lat > 0 {
		return nil, errors.New("upstream down")
	}

	return &geocode.Address{DisplayName: "Ciudad Vieja, Montevideo"}, nil
}

type fakeBackend struct {
	donors   []bloodbank.Donor
	requests []bloodbank.BloodRequest
	created  []*bloodbank.BloodRequest
	err      error
}

func (b *fakeBackend) ListDonors(context.Context) ([]bloodbank.Donor, error) {
	return b.donors, b.err
}

func (b *fakeBackend) CreateDonor(_ context.Context, d *bloodbank.Donor) (*bloodbank.Donor, error) {
	if b.err != nil {
		return nil, b.err
	}

	out := *d
	out.ID = "d-new"

	return &out, nil
}

func (b *fakeBackend) ListBloodRequests(context.Context) ([]bloodbank.BloodRequest, error) {
	return b.requests, b.err
}

func (b *fakeBackend) CreateBloodRequest(_ context.Context, r *bloodbank.BloodRequest) (*bloodbank.BloodRequest, error) {
	b.created = append(b.created, r)
	out := *r
	out.ID = "r-new"
	out.Status = bloodbank.StatusPending

	return &out, nil
}

func (b *fakeBackend) UpdateRequestStatus(_ context.Context, id string, status bloodbank.RequestStatus) (*bloodbank.BloodRequest, error) {
	return &bloodbank.BloodRequest{ID: id, Status: status}, b.err
}

func setupServerTest(t *testing.T, opts ...locator.Option) (*gin.Engine, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	opts = append(opts, locator.WithLogger(log))
	resolver := locator.NewResolver(context.Background(), storage.NewMemoryStore(), fakeGeocoder{}, opts...)

	maciel := spatial.NewPoint(-34.9067, -56.2083)
	backend := &fakeBackend{
		donors: []bloodbank.Donor{
			{ID: "d1", Name: "María", City: "Montevideo", BloodType: bloodbank.ONegative},
			{ID: "d2", Name: "Pedro", City: "Salto", BloodType: bloodbank.APositive},
		},
		requests: []bloodbank.BloodRequest{
			{ID: "r1", PatientName: "Ana", BloodType: bloodbank.ONegative, Urgency: bloodbank.UrgencyCritical, Status: bloodbank.StatusPending, Location: &maciel},
			{ID: "r2", PatientName: "Beto", BloodType: bloodbank.APositive, Urgency: bloodbank.UrgencyLow, Status: bloodbank.StatusFulfilled},
		},
	}

	return NewServer(resolver, backend, log).Handler(), backend
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestGeocodeAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := do(t, router, http.MethodGet, "/api/geocode?address=Hospital+Maciel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	got := decode[coordinatesResponse](t, w)
	assert.Equal(t, [2]float64{-56.2083, -34.9067}, got.Coordinates)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/geocode?address=+", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/geocode?address=nowhere", nil).Code)
	assert.Equal(t, http.StatusBadGateway, do(t, router, http.MethodGet, "/api/geocode?address=offline", nil).Code)

	entries := decode[[]locator.CacheEntry](t, do(t, router, http.MethodGet, "/api/cache", nil))
	require.Len(t, entries, 1)
	assert.Equal(t, "hospital maciel", entries[0].Address)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/cache", nil).Code)
	assert.Empty(t, decode[[]locator.CacheEntry](t, do(t, router, http.MethodGet, "/api/cache", nil)))
}

func TestReverseAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := do(t, router, http.MethodGet, "/api/reverse?lat=-34.9&lng=-56.2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ciudad Vieja, Montevideo", decode[map[string]string](t, w)["address"])

	w = do(t, router, http.MethodGet, "/api/reverse?lat=10&lng=10", nil)
	require.Equal(t, http.StatusOK, w.Code, "reverse failures are not HTTP errors")
	assert.Equal(t, locator.LocationUnavailable, decode[map[string]string](t, w)["address"])

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/reverse?lat=100&lng=0", nil).Code)
}

func TestDeviceLocationAPI(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	device := locator.StaticLocator{Position: locator.Position{Latitude: -34.9, Longitude: -56.16}}
	router, _ := setupServerTest(t, locator.WithDeviceLocator(device), locator.WithClock(func() time.Time { return now }))

	w := do(t, router, http.MethodPost, "/api/device-location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]float64{-56.16, -34.9}, decode[coordinatesResponse](t, w).Coordinates)

	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodPost, "/api/device-location", nil).Code)
}

func TestDeviceLocationAPIUnsupported(t *testing.T) {
	router, _ := setupServerTest(t)

	assert.Equal(t, http.StatusNotImplemented, do(t, router, http.MethodPost, "/api/device-location", nil).Code)
}

func TestListAPIs(t *testing.T) {
	router, _ := setupServerTest(t)

	donors := decode[[]bloodbank.Donor](t, do(t, router, http.MethodGet, "/api/donors?search=maria&bloodType=all", nil))
	require.Len(t, donors, 1)
	assert.Equal(t, "d1", donors[0].ID)

	w := do(t, router, http.MethodGet, "/api/blood-requests?status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	reqs := decode[[]bloodbank.BloodRequest](t, do(t, router, http.MethodGet, "/api/blood-requests?bloodType=O-", nil))
	require.Len(t, reqs, 1)
	assert.Equal(t, "r1", reqs[0].ID)

	stats := decode[bloodbank.Stats](t, do(t, router, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, 2, stats.TotalDonors)
	assert.Equal(t, 1, stats.CriticalRequests)
}

func TestNearbyAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := do(t, router, http.MethodGet, "/api/blood-requests/nearby?lat=-34.9011&lng=-56.1645&radius=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]bloodbank.NearbyRequest](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Greater(t, got[0].DistanceKm, 0.0)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/blood-requests/nearby?lat=x&lng=0", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, router, http.MethodGet, "/api/blood-requests/nearby?lat=0&lng=0&radius=-1", nil).Code)
}

func TestDescribeRequestLocationAPI(t *testing.T) {
	router, backend := setupServerTest(t)
	backend.requests = append(backend.requests, bloodbank.BloodRequest{ID: "r3", Address: "Av. Italia s/n, Montevideo"})

	w := do(t, router, http.MethodGet, "/api/blood-requests/r1/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ciudad Vieja, Montevideo", decode[map[string]string](t, w)["address"])

	w = do(t, router, http.MethodGet, "/api/blood-requests/r2/location", nil)
	assert.Equal(t, bloodbank.NotAvailable, decode[map[string]string](t, w)["address"])

	w = do(t, router, http.MethodGet, "/api/blood-requests/r3/location", nil)
	assert.Equal(t, "Av. Italia s/n, Montevideo", decode[map[string]string](t, w)["address"])

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/blood-requests/zz/location", nil).Code)
}

func bloodRequestBody(address string) map[string]any {
	return map[string]any{
		"patientName":   "Ana Pérez",
		"contactPerson": "Luis Pérez",
		"email":         "luis@example.com",
		"phone":         "5551234567",
		"bloodType":     "O-",
		"unitsNeeded":   "2",
		"hospital":      "Maciel",
		"address":       address,
		"urgency":       "high",
		"requiredBy":    "2025-03-01T00:00:00Z",
		"reason":        "Scheduled surgery with expected blood loss",
	}
}

func TestCreateBloodRequestAPI(t *testing.T) {
	router, backend := setupServerTest(t)

	w := do(t, router, http.MethodPost, "/api/blood-requests", bloodRequestBody("Hospital Maciel"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[bloodbank.BloodRequest](t, w)
	assert.Equal(t, "r-new", created.ID)
	require.NotNil(t, created.Location)
	assert.InDelta(t, -56.2083, created.Location.Lng(), 1e-9)

	w = do(t, router, http.MethodPost, "/api/blood-requests", bloodRequestBody("nowhere"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, backend.created, 1, "unresolved requests never reach the backend")

	body := bloodRequestBody("Hospital Maciel")
	body["email"] = "nope"
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, router, http.MethodPost, "/api/blood-requests", body).Code)
}

func TestCreateDonorAPI(t *testing.T) {
	router, backend := setupServerTest(t)

	w := do(t, router, http.MethodPost, "/api/donors", map[string]any{"name": "X"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	backend.err = &bloodbank.APIError{StatusCode: http.StatusConflict, Message: "Email already registered"}
	w = do(t, router, http.MethodPost, "/api/donors", map[string]any{
		"name": "María González", "email": "maria@example.com", "phone": "5557654321",
		"dob": "1990-05-17T00:00:00Z", "gender": "female", "bloodType": "A+",
		"address": "18 de Julio 1234", "city": "Montevideo", "state": "Montevideo",
		"zipCode": "11200", "previousDonation": "no", "agreeTerms": true,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestUpdateRequestStatusAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := do(t, router, http.MethodPatch, "/api/blood-requests/r1/status", map[string]string{"status": "fulfilled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bloodbank.StatusFulfilled, decode[bloodbank.BloodRequest](t, w).Status)

	w = do(t, router, http.MethodPatch, "/api/blood-requests/r1/status", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBackendFailure(t *testing.T) {
	router, backend := setupServerTest(t)
	backend.err = errors.New("connection refused")

	assert.Equal(t, http.StatusBadGateway, do(t, router, http.MethodGet, "/api/donors", nil).Code)
	assert.Equal(t, http.StatusBadGateway, do(t, router, http.MethodGet, "/api/stats", nil).Code)
}

func TestMetricsAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	do(t, router, http.MethodGet, "/api/donors", nil)
	do(t, router, http.MethodGet, "/api/blood-requests/r1/location", nil)
	do(t, router, http.MethodGet, "/api/unknown", nil)

	w := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `pblood_http_requests_total{method="GET",path="/api/donors",status="200"} 1`)
	assert.Contains(t, body, `path="/api/blood-requests/:id/location"`)
	assert.Contains(t, body, `pblood_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
	assert.Contains(t, body, "pblood_http_requests_in_flight 0")
}

func TestTracingContinuesCallerTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	router, _ := setupServerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/geocode?address=Hospital+Maciel", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	geocodeSpan, serverSpan := spans[0], spans[1]
	assert.Equal(t, "locator.geocode", geocodeSpan.Name())
	assert.Equal(t, "GET /api/geocode", serverSpan.Name())

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", serverSpan.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", serverSpan.Parent().SpanID().String())
	assert.Equal(t, serverSpan.SpanContext().SpanID(), geocodeSpan.Parent().SpanID())
}
