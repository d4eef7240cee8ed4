// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves postal addresses to coordinates through an
// external geocoding provider, backed by a persistent lookup cache.
package geocode

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/georoute/georoute/spatial"
)

// Match is one geocoding hit from a provider. Precise marks whether the
// provider's place classification is accurate enough for routing (building/
// address level) as opposed to a city or region centroid.
type Match struct {
	Point       spatial.Point `json:"point"`
	DisplayName string        `json:"display_name"`
	PlaceType   string        `json:"place_type"`
	Precise     bool          `json:"precise"`
}

// Provider performs one network lookup per call.
//
// Geocode returns (nil, nil) when the provider answered cleanly with no
// results; a non-nil error is always a *GeocodeError carrying a failure
// category. Providers never retry internally: backoff policy belongs to
// the caller.
type Provider interface {
	Geocode(ctx context.Context, q Query) (*Match, error)

	// SourceName is the stable tag stored with cache entries for audit.
	SourceName() string

	// RateLimitDelay is the minimum spacing the resolver must enforce
	// before this provider's next call.
	RateLimitDelay() time.Duration
}

// Sink receives one diagnostic message per notable event (success, fallback,
// rate limit, HTTP error, timeout, parse error). It is invoked synchronously
// before the triggering call returns and must not panic. How the message is
// displayed is entirely the caller's business.
type Sink func(msg string)

// NopSink discards diagnostics. Pass it when no observer is wanted; sinks
// are required constructor parameters so there is no hidden global state.
func NopSink(string) {}

// Provider names accepted by the factory.
const (
	ProviderNominatim  = "nominatim"
	ProviderGoogleMaps = "google_maps"
)

// ProviderConfig carries the startup configuration a concrete provider
// may need.
type ProviderConfig struct {
	// Email is the contact address Nominatim's usage policy requires.
	Email string
	// UserAgent identifies this client to the provider.
	UserAgent string
	// APIKey enables the Google Maps backend.
	APIKey string
	// HTTPTrace, when non-nil, receives a dump of every HTTP transaction.
	HTTPTrace io.Writer
}

// NewProvider selects the concrete backend from configuration. Selection
// happens once at startup, not per call.
func NewProvider(name string, cfg ProviderConfig, sink Sink) (Provider, error) {
	switch name {
	case ProviderNominatim:
		return NewNominatimProvider(cfg.Email, cfg.UserAgent, cfg.HTTPTrace, sink), nil
	case ProviderGoogleMaps:
		return NewGoogleMapsProvider(cfg.APIKey, sink), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", name)
	}
}

// Diagnostic messages embed the originating query, truncated so a single
// pathological row cannot flood the log.
const maxDiagnosticQueryLen = 96

func truncateQuery(q string) string {
	if len(q) <= maxDiagnosticQueryLen {
		return q
	}

	return q[:maxDiagnosticQueryLen] + "…"
}
