// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/georoute/georoute/spatial"
)

const googleMapsBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsProvider is the alternate backend, using the Google Maps
// Geocoding API. Constructed without an API key every lookup reports
// unsupported, which is enough to prove the multi-backend abstraction
// without a billing account.
type GoogleMapsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	sink    Sink
}

// NewGoogleMapsProvider creates the alternate provider.
func NewGoogleMapsProvider(apiKey string, sink Sink) *GoogleMapsProvider {
	if sink == nil {
		sink = NopSink
	}

	return &GoogleMapsProvider{
		apiKey:  apiKey,
		baseURL: googleMapsBaseURL,
		client: &http.Client{
			Timeout: providerTimeout,
		},
		sink: sink,
	}
}

// SourceName implements Provider.
func (p *GoogleMapsProvider) SourceName() string {
	return "google_maps"
}

// RateLimitDelay implements Provider. Google's default quota is 50 req/s;
// a small delay is still kept out of politeness.
func (p *GoogleMapsProvider) RateLimitDelay() time.Duration {
	return 20 * time.Millisecond
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
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, ...
}

// Geocode implements Provider.
func (p *GoogleMapsProvider) Geocode(ctx context.Context, q Query) (*Match, error) {
	if p.apiKey == "" {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonUnsupported,
			Message: "google maps backend requires an API key",
		}, q)
	}

	params := url.Values{}
	params.Set("address", q.Text)
	params.Set("key", p.apiKey)
	params.Set("region", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonHTTPError,
			Message: "building google maps request",
			Err:     err,
		}, q)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, p.fail(&GeocodeError{
				Reason:  ReasonTimeout,
				Message: fmt.Sprintf("google maps request exceeded %s", providerTimeout),
				Err:     err,
			}, q)
		}

		return nil, p.fail(&GeocodeError{
			Reason:  ReasonHTTPError,
			Message: "google maps request failed",
			Err:     err,
		}, q)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, p.fail(ClassifyHTTPStatus(resp.StatusCode), q)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonParseError,
			Message: "decoding google maps response",
			Err:     err,
		}, q)
	}

	switch gmResp.Status {
	case "OK":
		// fall through to result handling
	case "ZERO_RESULTS":
		p.sink(fmt.Sprintf("google_maps: no results for %q", truncateQuery(q.Text)))

		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonRateLimited,
			Message: "google maps quota exhausted",
		}, q)
	default:
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonParseError,
			Message: fmt.Sprintf("google maps status: %s", gmResp.Status),
		}, q)
	}

	if len(gmResp.Results) == 0 {
		return nil, p.fail(&GeocodeError{
			Reason:  ReasonParseError,
			Message: "google maps reported OK with no results",
		}, q)
	}

	top := gmResp.Results[0]

	// ROOFTOP and RANGE_INTERPOLATED are building-grade; the centroid
	// types only locate an area.
	precise := top.Geometry.LocationType == "ROOFTOP" ||
		top.Geometry.LocationType == "RANGE_INTERPOLATED"

	match := &Match{
		Point: spatial.Point{
			Lat: top.Geometry.Location.Lat,
			Lng: top.Geometry.Location.Lng,
		},
		DisplayName: top.FormattedAddress,
		PlaceType:   top.Geometry.LocationType,
		Precise:     precise,
	}

	precision := "coarse"
	if precise {
		precision = "precise"
	}

	p.sink(fmt.Sprintf("google_maps: %s match (%s) for %q",
		precision, top.Geometry.LocationType, truncateQuery(q.Text)))

	return match, nil
}

func (p *GoogleMapsProvider) fail(geoErr *GeocodeError, q Query) *GeocodeError {
	if geoErr.Status != 0 {
		p.sink(fmt.Sprintf("google_maps: %s (status %d) for %q", geoErr.Reason, geoErr.Status, truncateQuery(q.Text)))
	} else {
		p.sink(fmt.Sprintf("google_maps: %s for %q: %s", geoErr.Reason, truncateQuery(q.Text), geoErr.Error()))
	}

	return geoErr
}
