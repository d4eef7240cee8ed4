// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"net/http"
	"testing"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limit error type",
			err: &GeocodeError{
				Reason:  ReasonRateLimited,
				Message: "rate limit reached",
			},
			want: true,
		},
		{
			name: "error message contains rate limit",
			err:  errors.New("rate limit exceeded"),
			want: true,
		},
		{
			name: "error message contains too many requests",
			err:  errors.New("too many requests"),
			want: true,
		},
		{
			name: "error message contains 429",
			err:  errors.New("nominatim returned status 429"),
			want: true,
		},
		{
			name: "other error type",
			err: &GeocodeError{
				Reason:  ReasonNoResult,
				Message: "no result",
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTimeoutError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "timeout error type",
			err: &GeocodeError{
				Reason:  ReasonTimeout,
				Message: "request exceeded 10s",
			},
			want: true,
		},
		{
			name: "error message contains timeout",
			err:  errors.New("i/o timeout"),
			want: true,
		},
		{
			name: "error message contains deadline exceeded",
			err:  errors.New("context deadline exceeded"),
			want: true,
		},
		{
			name: "other error type",
			err: &GeocodeError{
				Reason:  ReasonHTTPError,
				Message: "HTTP error 500",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeoutError(tt.err); got != tt.want {
				t.Errorf("IsTimeoutError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureReason
	}{
		{
			name: "classified error",
			err:  &GeocodeError{Reason: ReasonParseError, Message: "bad json"},
			want: ReasonParseError,
		},
		{
			name: "wrapped classified error",
			err: &GeocodeError{
				Reason:  ReasonTimeout,
				Message: "slow",
				Err:     errors.New("context deadline exceeded"),
			},
			want: ReasonTimeout,
		},
		{
			name: "unclassified error",
			err:  errors.New("boom"),
			want: ReasonHTTPError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.want {
				t.Errorf("ReasonOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	if got := ClassifyHTTPStatus(http.StatusTooManyRequests); got.Reason != ReasonRateLimited || got.Status != 429 {
		t.Errorf("ClassifyHTTPStatus(429) = %+v", got)
	}

	for _, status := range []int{http.StatusInternalServerError, http.StatusForbidden, http.StatusBadGateway} {
		got := ClassifyHTTPStatus(status)
		if got.Reason != ReasonHTTPError || got.Status != status {
			t.Errorf("ClassifyHTTPStatus(%d) = %+v", status, got)
		}
	}
}

func TestGeocodeErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &GeocodeError{Reason: ReasonHTTPError, Message: "nominatim request failed", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to be reachable via errors.Is")
	}

	want := "nominatim request failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
