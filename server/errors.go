// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peopleblood/peopleblood/bloodbank"
	"github.com/peopleblood/peopleblood/geocode"
	"github.com/peopleblood/peopleblood/locator"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *bloodbank.APIError

	switch {
	case errors.Is(err, bloodbank.ErrValidation), errors.Is(err, bloodbank.ErrLocationRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, locator.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, locator.ErrRateLimited), geocode.IsRateLimitError(err):
		return http.StatusTooManyRequests
	case errors.Is(err, locator.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, locator.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, locator.ErrTimeout), geocode.IsTimeoutError(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, locator.ErrPositionUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// abort replies with the error message and records err for the request log.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
