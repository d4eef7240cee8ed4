// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailureReason classifies why a resolution attempt failed.
type FailureReason string

// Failure taxonomy. Every failed outcome carries exactly one of these.
const (
	// ReasonMissingFields input record was incomplete, no network attempted.
	ReasonMissingFields FailureReason = "missing_fields"
	// ReasonNoResult every query variant returned no match.
	ReasonNoResult FailureReason = "no_result"
	// ReasonCoarseSkip the best available match was below the precision bar.
	ReasonCoarseSkip FailureReason = "coarse_skip"
	// ReasonCachedFailure a persisted failure was found, no new attempt made.
	ReasonCachedFailure FailureReason = "cached_failure"
	// ReasonRateLimited the provider returned a rate-limit response.
	ReasonRateLimited FailureReason = "rate_limited"
	// ReasonTimeout the network call exceeded its deadline.
	ReasonTimeout FailureReason = "timeout"
	// ReasonHTTPError non-2xx, non-429 response (status recorded).
	ReasonHTTPError FailureReason = "http_error"
	// ReasonParseError malformed or incomplete response body.
	ReasonParseError FailureReason = "parse_error"
	// ReasonUnsupported the provider variant is not available.
	ReasonUnsupported FailureReason = "unsupported"
)

// GeocodeError is a classified provider failure. Providers never let raw
// transport or decoding errors escape; they wrap them here so the resolver
// can make fallback decisions per category.
type GeocodeError struct {
	Reason  FailureReason
	Status  int // HTTP status for http_error / rate_limited, 0 otherwise
	Message string
	Err     error
}

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure category from an error, falling back to
// http_error for anything unclassified.
func ReasonOf(err error) FailureReason {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		return geoErr.Reason
	}

	return ReasonHTTPError
}

// IsRateLimitError verifies whether the error is a rate-limit failure.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		return geoErr.Reason == ReasonRateLimited
	}

	// Detect by common error message
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsTimeoutError verifies whether the error is a timeout.
func IsTimeoutError(err error) bool {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		return geoErr.Reason == ReasonTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsParseError verifies whether the error is a malformed-response failure.
func IsParseError(err error) bool {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		return geoErr.Reason == ReasonParseError
	}

	return false
}

// ClassifyHTTPStatus classifies a non-2xx HTTP status into a geocoding error.
// 429 maps to rate_limited; everything else is http_error with the status
// recorded for the diagnostic trail.
func ClassifyHTTPStatus(statusCode int) *GeocodeError {
	if statusCode == http.StatusTooManyRequests {
		return &GeocodeError{
			Reason:  ReasonRateLimited,
			Status:  statusCode,
			Message: "rate limit reached",
		}
	}

	return &GeocodeError{
		Reason:  ReasonHTTPError,
		Status:  statusCode,
		Message: fmt.Sprintf("HTTP error %d", statusCode),
	}
}
