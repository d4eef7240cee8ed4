// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/georoute/georoute/spatial"
	"github.com/georoute/georoute/utils/httputils"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// Complex queries and provider load spikes routinely blow past short
// defaults; 10s keeps slow-but-valid answers from being misread as failures.
const providerTimeout = 10 * time.Second

// Place types Nominatim reports that are accurate enough for routing.
// Anything else (city, administrative, ...) is a coarse centroid.
var preciseTypes = map[string]bool{
	"house":         true,
	"building":      true,
	"residential":   true,
	"yes":           true,
	"address":       true,
	"amenity":       true,
	"office":        true,
	"retail":        true,
	"commercial":    true,
	"industrial":    true,
	"shop":          true,
	"warehouse":     true,
	"apartments":    true,
	"place":         true,
	"locality":      true,
	"neighbourhood": true,
	"suburb":        true,
	"quarter":       true,
	"allotments":    true,
}

// NominatimProvider geocodes against OpenStreetMap's Nominatim service.
//
// Usage policy: at most 1 request per second, and a User-Agent with a
// contact address is mandatory.
// See https://operations.osmfoundation.org/policies/nominatim/
type NominatimProvider struct {
	email   string
	baseURL string
	client  *http.Client
	sink    Sink
}

// NewNominatimProvider builds the primary provider. The email is embedded in
// the identification header per Nominatim's usage policy. trace, when
// non-nil, receives a dump of every HTTP transaction.
func NewNominatimProvider(email, userAgent string, trace io.Writer, sink Sink) *NominatimProvider {
	if userAgent == "" {
		userAgent = "georoute/unknown"
	}

	if sink == nil {
		sink = NopSink
	}

	transport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent":      fmt.Sprintf("%s (+%s)", userAgent, email),
			"Accept-Language": "en",
		},
		Transport: &httputils.LoggingRoundTripper{
			Writer:    trace,
			Transport: http.DefaultTransport,
		},
	}

	return &NominatimProvider{
		email:   email,
		baseURL: nominatimBaseURL,
		client: &http.Client{
			Timeout:   providerTimeout,
			Transport: transport,
		},
		sink: sink,
	}
}

// SourceName implements Provider.
func (p *NominatimProvider) SourceName() string {
	return "nominatim"
}

// RateLimitDelay implements Provider. Nominatim requires at least one second
// between requests; 1.05s keeps a safety margin.
func (p *NominatimProvider) RateLimitDelay() time.Duration {
	return 1050 * time.Millisecond
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Class       string `json:"class"`
}

func (p *NominatimProvider) buildRequest(ctx context.Context, q Query) (*http.Request, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "5")
	params.Set("addressdetails", "1")
	// US and territories commonly present in client data
	params.Set("countrycodes", "us,pr,gu,vi,mp,as")

	if q.Street != "" {
		// Structured request: Nominatim matches individual fields far more
		// reliably than one opaque string.
		params.Set("street", q.Street)
		params.Set("city", q.City)
		params.Set("state", q.Region)
		params.Set("country", q.Country)

		if q.Postal != "" {
			params.Set("postalcode", q.Postal)
		}
	} else {
		params.Set("q", q.Text)
	}

	return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
}

// Geocode implements Provider. Every failure and every match is reported
// through the diagnostic sink before returning.
func (p *NominatimProvider) Geocode(ctx context.Context, q Query) (*Match, error) {
	req, err := p.buildRequest(ctx, q)
	if err != nil {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonHTTPError,
			Message: "building nominatim request",
			Err:     err,
		}, q)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, p.fail(&GeocodeError{
				Reason:  ReasonTimeout,
				Message: fmt.Sprintf("nominatim request exceeded %s", providerTimeout),
				Err:     err,
			}, q)
		}

		return nil, p.fail(&GeocodeError{
			Reason:  ReasonHTTPError,
			Message: "nominatim request failed",
			Err:     err,
		}, q)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, p.fail(ClassifyHTTPStatus(resp.StatusCode), q)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonParseError,
			Message: "decoding nominatim response",
			Err:     err,
		}, q)
	}

	// An empty list is a valid, non-error answer.
	if len(results) == 0 {
		p.sink(fmt.Sprintf("nominatim: no results for %q", truncateQuery(q.Text)))

		return nil, nil
	}

	// Only the provider's own top-ranked result is considered; re-ranking
	// happens across successive variants, never within one call.
	top := results[0]

	lat, latErr := strconv.ParseFloat(top.Lat, 64)
	lon, lonErr := strconv.ParseFloat(top.Lon, 64)

	if latErr != nil || lonErr != nil {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonParseError,
			Message: fmt.Sprintf("nominatim result has invalid coordinates %q,%q", top.Lat, top.Lon),
		}, q)
	}

	match := &Match{
		Point:       spatial.Point{Lat: lat, Lng: lon},
		DisplayName: top.DisplayName,
		PlaceType:   top.Type,
		Precise:     preciseTypes[top.Type],
	}

	precision := "coarse"
	if match.Precise {
		precision = "precise"
	}

	p.sink(fmt.Sprintf("nominatim: %s match (%s) for %q", precision, top.Type, truncateQuery(q.Text)))

	return match, nil
}

func (p *NominatimProvider) fail(geoErr *GeocodeError, q Query) *GeocodeError {
	if geoErr.Status != 0 {
		p.sink(fmt.Sprintf("nominatim: %s (status %d) for %q", geoErr.Reason, geoErr.Status, truncateQuery(q.Text)))
	} else {
		p.sink(fmt.Sprintf("nominatim: %s for %q: %s", geoErr.Reason, truncateQuery(q.Text), geoErr.Error()))
	}

	return geoErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
