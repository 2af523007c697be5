// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/peopleblood/peopleblood/utils/httputils"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim uses the OpenStreetMap Nominatim search and reverse endpoints.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
}

// NominatimOption customizes a Nominatim geocoder.
type NominatimOption func(*Nominatim)

// WithNominatimURL points the geocoder at another Nominatim instance.
func WithNominatimURL(baseURL string) NominatimOption {
	return func(n *Nominatim) {
		n.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) NominatimOption {
	return func(n *Nominatim) {
		n.httpClient = client
	}
}

// NewNominatim creates a new Nominatim geocoder. The usage policy of the
// public instance requires an identifying User-Agent, which the default
// client sends.
func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL: DefaultNominatimURL,
		httpClient: httputils.NewClient(httputils.ClientOptions{
			UserAgent: "peopleblood-geocoder",
			Timeout:   10 * time.Second,
		}),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

type nominatimReverse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := n.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ClassifyHTTPError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GeocodingError{Type: ErrorTypeMalformedResponse, Message: "decoding response", Err: err}
	}

	return nil
}

// Search implements Geocoder.
func (n *Nominatim) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	var results []nominatimPlace
	if err := n.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(results))

	for _, r := range results {
		// Nominatim importance is a 0..1 relevance score.
		confidence := "low"

		switch {
		case r.Importance >= 0.6:
			confidence = "high"
		case r.Importance >= 0.3:
			confidence = "medium"
		}

		places = append(places, Place{
			Lat:         r.Lat,
			Lon:         r.Lon,
			DisplayName: r.DisplayName,
			Confidence:  confidence,
			Provider:    "nominatim",
		})
	}

	return places, nil
}

// Reverse implements Geocoder.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (*Address, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var result nominatimReverse
	if err := n.get(ctx, "/reverse", params, &result); err != nil {
		return nil, err
	}

	// Nominatim answers 200 with an error field for points it can't place.
	if result.Error != "" {
		return nil, &GeocodingError{Type: ErrorTypeNotFound, Message: fmt.Sprintf("reverse geocoding: %s", result.Error)}
	}

	return &Address{
		DisplayName: result.DisplayName,
		Details:     result.Address,
		Provider:    "nominatim",
	}, nil
}
