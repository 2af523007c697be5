// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package locator

import "errors"

// Errors returned by the Resolver. They are all recoverable: callers show
// the message and let the user retry.
var (
	// ErrNotFound means the geocoding service returned no results.
	ErrNotFound = errors.New("no coordinates found for address")

	// ErrRateLimited means the device location was requested too often.
	ErrRateLimited = errors.New("please wait a few seconds before requesting your location again")

	// ErrUnsupported means no device location source is available.
	ErrUnsupported = errors.New("geolocation is not supported on this device")

	// ErrPermissionDenied means the user or platform refused location access.
	ErrPermissionDenied = errors.New("location permission denied, allow location access and try again")

	// ErrPositionUnavailable means the platform could not determine a position.
	ErrPositionUnavailable = errors.New("location information is unavailable")

	// ErrTimeout means the platform did not produce a position in time.
	ErrTimeout = errors.New("the request to get your location timed out")

	// ErrDeviceLocation covers any other device location failure.
	ErrDeviceLocation = errors.New("an unknown error occurred while getting your location")
)
