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

// DefaultGoogleMapsURL is the Google Maps Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder. An empty endpoint
// selects DefaultGoogleMapsURL.
func NewGoogleMapsGeocoder(apiKey, endpoint string, client *http.Client) *GoogleMapsGeocoder {
	if endpoint == "" {
		endpoint = DefaultGoogleMapsURL
	}

	if client == nil {
		client = httputils.NewClient(httputils.ClientOptions{Timeout: 10 * time.Second})
	}

	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: client,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleMapsGeocoder) call(ctx context.Context, params url.Values) (*googleMapsResponse, error) {
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeMalformedResponse, Message: "decoding response", Err: err}
	}

	switch gmResp.Status {
	case "OK", "ZERO_RESULTS":
		return &gmResp, nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return nil, &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: fmt.Sprintf("google maps status: %s %s", gmResp.Status, gmResp.ErrorMessage),
		}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps status: INVALID_REQUEST"}
	default:
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps status: " + gmResp.Status}
	}
}

// Search implements Geocoder.
func (g *GoogleMapsGeocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("address", query)

	gmResp, err := g.call(ctx, params)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(gmResp.Results))

	for i, result := range gmResp.Results {
		if limit > 0 && i >= limit {
			break
		}

		confidence := "low"

		switch result.Geometry.LocationType {
		case "ROOFTOP", "RANGE_INTERPOLATED":
			confidence = "high"
		case "GEOMETRIC_CENTER":
			confidence = "medium"
		}

		places = append(places, Place{
			Lat:         strconv.FormatFloat(result.Geometry.Location.Lat, 'f', -1, 64),
			Lon:         strconv.FormatFloat(result.Geometry.Location.Lng, 'f', -1, 64),
			DisplayName: result.FormattedAddress,
			Confidence:  confidence,
			Provider:    "google_maps",
		})
	}

	return places, nil
}

// Reverse implements Geocoder.
func (g *GoogleMapsGeocoder) Reverse(ctx context.Context, lat, lng float64) (*Address, error) {
	params := url.Values{}
	params.Set("latlng", strings.Join([]string{
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
	}, ","))

	gmResp, err := g.call(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(gmResp.Results) == 0 {
		return nil, &GeocodingError{Type: ErrorTypeNotFound, Message: "no address found for coordinates"}
	}

	result := gmResp.Results[0]
	details := make(map[string]string, len(result.AddressComponents))

	for _, c := range result.AddressComponents {
		if len(c.Types) > 0 {
			details[c.Types[0]] = c.LongName
		}
	}

	return &Address{
		DisplayName: result.FormattedAddress,
		Details:     details,
		Provider:    "google_maps",
	}, nil
}
