// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/peopleblood/peopleblood/utils/httputils"
)

// Position is a one-shot position fix reported by a device.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters, 0 when unknown
	Timestamp time.Time
}

// PositionErrorCode is the closed set of platform geolocation failures.
type PositionErrorCode int

// Position error codes, numbered like the W3C Geolocation API.
const (
	// PermissionDenied means the user or platform refused access.
	PermissionDenied PositionErrorCode = 1
	// PositionUnavailable means no fix could be obtained.
	PositionUnavailable PositionErrorCode = 2
	// Timeout means the fix took longer than allowed.
	Timeout PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("PositionErrorCode(%d)", int(c))
	}
}

// PositionError is returned by a DeviceLocator when a fix can't be obtained.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DeviceLocator produces the current position of the device.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// FuncLocator adapts a function to DeviceLocator.
type FuncLocator func(ctx context.Context) (Position, error)

// CurrentPosition implements DeviceLocator.
func (f FuncLocator) CurrentPosition(ctx context.Context) (Position, error) {
	return f(ctx)
}

// StaticLocator always reports the same position, e.g. one given on the
// command line.
type StaticLocator struct {
	Position Position
}

// CurrentPosition implements DeviceLocator.
func (s StaticLocator) CurrentPosition(_ context.Context) (Position, error) {
	p := s.Position
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	return p, nil
}

// DefaultIPLocatorURL answers with the approximate location of the caller's
// public IP address.
const DefaultIPLocatorURL = "http://ip-api.com/json"

// IPLocator approximates the device position from its public IP address.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
}

// NewIPLocator creates an IPLocator. An empty endpoint selects
// DefaultIPLocatorURL.
func NewIPLocator(endpoint string, client *http.Client) *IPLocator {
	if endpoint == "" {
		endpoint = DefaultIPLocatorURL
	}

	if client == nil {
		client = httputils.NewClient(httputils.ClientOptions{Timeout: 10 * time.Second})
	}

	return &IPLocator{endpoint: endpoint, httpClient: client}
}

type ipLocation struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentPosition implements DeviceLocator.
func (l *IPLocator) CurrentPosition(ctx context.Context) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return Position{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return Position{}, &PositionError{Code: Timeout, Message: err.Error()}
		}

		return Position{}, &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Position{}, &PositionError{Code: PermissionDenied, Message: resp.Status}
	case resp.StatusCode != http.StatusOK:
		return Position{}, &PositionError{Code: PositionUnavailable, Message: resp.Status}
	}

	var loc ipLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Position{}, &PositionError{Code: PositionUnavailable, Message: "decoding response: " + err.Error()}
	}

	if loc.Status != "" && loc.Status != "success" {
		return Position{}, &PositionError{Code: PositionUnavailable, Message: loc.Message}
	}

	return Position{
		Latitude:  loc.Lat,
		Longitude: loc.Lon,
		Timestamp: time.Now(),
	}, nil
}

// deviceError maps a locator failure onto the resolver's error taxonomy,
// keeping the original error in the chain.
func deviceError(err error) error {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		switch posErr.Code {
		case PermissionDenied:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case PositionUnavailable:
			return fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
		case Timeout:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrDeviceLocation, err)
}
