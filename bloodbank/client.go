// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package bloodbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/peopleblood/peopleblood/telemetry"
	"github.com/peopleblood/peopleblood/utils/httputils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:3000/api"

// ErrBackend is wrapped by every non 2xx answer of the backend.
var ErrBackend = errors.New("backend error")

// APIError is a non 2xx answer of the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}

	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap makes errors.Is(err, ErrBackend) hold.
func (e *APIError) Unwrap() error {
	return ErrBackend
}

// Client talks to the donor and blood request REST backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// BaseURL of the API, DefaultBaseURL when empty
	BaseURL string

	// HTTPClient overrides the default traced client
	HTTPClient *http.Client

	// Trace receives a dump of every request and response when not nil
	Trace io.Writer

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string
}

// NewClient creates a backend client.
func NewClient(options ClientOptions) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := options.HTTPClient
	if client == nil {
		client = httputils.NewClient(httputils.ClientOptions{
			UserAgent:  options.UserAgent,
			Trace:      options.Trace,
			RequestIDs: true,
		})
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// ListDonors returns every registered donor.
func (c *Client) ListDonors(ctx context.Context) ([]Donor, error) {
	var donors []Donor
	if err := c.do(ctx, http.MethodGet, "/donors", nil, &donors); err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}

	return donors, nil
}

// CreateDonor registers a donor and returns it as stored.
func (c *Client) CreateDonor(ctx context.Context, d *Donor) (*Donor, error) {
	var created Donor
	if err := c.do(ctx, http.MethodPost, "/donors", d, &created); err != nil {
		return nil, fmt.Errorf("registering donor: %w", err)
	}

	return &created, nil
}

// ListBloodRequests returns every blood request.
func (c *Client) ListBloodRequests(ctx context.Context) ([]BloodRequest, error) {
	var reqs []BloodRequest
	if err := c.do(ctx, http.MethodGet, "/blood-requests", nil, &reqs); err != nil {
		return nil, fmt.Errorf("listing blood requests: %w", err)
	}

	return reqs, nil
}

// CreateBloodRequest stores a blood request and returns it as stored.
// Callers normally go through a Submitter, which resolves the location.
func (c *Client) CreateBloodRequest(ctx context.Context, r *BloodRequest) (*BloodRequest, error) {
	var created BloodRequest
	if err := c.do(ctx, http.MethodPost, "/blood-requests", r, &created); err != nil {
		return nil, fmt.Errorf("creating blood request: %w", err)
	}

	return &created, nil
}

// UpdateRequestStatus changes the status of a request and returns the
// updated request.
func (c *Client) UpdateRequestStatus(ctx context.Context, id string, status RequestStatus) (*BloodRequest, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	body := struct {
		Status RequestStatus `json:"status"`
	}{status}

	var updated BloodRequest

	path := "/blood-requests/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, body, &updated); err != nil {
		return nil, fmt.Errorf("updating status of %s: %w", id, err)
	}

	return &updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (err error) {
	ctx, span := telemetry.Start(ctx, "bloodbank "+method,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer func() { telemetry.End(span, err) }()

	var body io.Reader

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Message
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
