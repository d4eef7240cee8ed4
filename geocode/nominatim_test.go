// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNominatim(t *testing.T, handler http.HandlerFunc) *NominatimProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewNominatimProvider("ops@example.com", "georoute-test/0.0", nil, NopSink)
	p.baseURL = srv.URL

	return p
}

func fullQuery() Query {
	return Query{
		Kind:    VariantFull,
		Text:    "123 Main St, Springfield, IL 62704, USA",
		Street:  "123 Main St",
		City:    "Springfield",
		Region:  "IL",
		Postal:  "62704",
		Country: "USA",
	}
}

func TestNominatimPreciseMatch(t *testing.T) {
	var gotParams map[string]string

	p := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = map[string]string{
			"street":     r.URL.Query().Get("street"),
			"city":       r.URL.Query().Get("city"),
			"state":      r.URL.Query().Get("state"),
			"postalcode": r.URL.Query().Get("postalcode"),
			"format":     r.URL.Query().Get("format"),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat": "39.7990", "lon": "-89.6440", "display_name": "123, Main Street, Springfield, IL", "type": "house", "class": "place"},
			{"lat": "39.0000", "lon": "-89.0000", "display_name": "second ranked", "type": "city", "class": "place"}
		]`))
	})

	match, err := p.Geocode(context.Background(), fullQuery())
	require.NoError(t, err)
	require.NotNil(t, match)

	assert.True(t, match.Precise)
	assert.Equal(t, "house", match.PlaceType)
	assert.InDelta(t, 39.7990, match.Point.Lat, 1e-9)
	assert.InDelta(t, -89.6440, match.Point.Lng, 1e-9)
	assert.Equal(t, "123, Main Street, Springfield, IL", match.DisplayName)

	// Structured request fields must reach the wire.
	assert.Equal(t, "123 Main St", gotParams["street"])
	assert.Equal(t, "Springfield", gotParams["city"])
	assert.Equal(t, "IL", gotParams["state"])
	assert.Equal(t, "62704", gotParams["postalcode"])
	assert.Equal(t, "jsonv2", gotParams["format"])
}

func TestNominatimCoarseMatch(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "39.80", "lon": "-89.65", "display_name": "Springfield, IL", "type": "city", "class": "place"}]`))
	})

	match, err := p.Geocode(context.Background(), fullQuery())
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.False(t, match.Precise)
	assert.Equal(t, "city", match.PlaceType)
}

func TestNominatimFreeFormQuery(t *testing.T) {
	var gotQ string

	p := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	q := Query{Kind: VariantRegionOnly, Text: "Springfield, IL"}

	match, err := p.Geocode(context.Background(), q)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Equal(t, "Springfield, IL", gotQ)
}

func TestNominatimNoResults(t *testing.T) {
	var sank []string

	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	p.sink = func(msg string) { sank = append(sank, msg) }

	match, err := p.Geocode(context.Background(), fullQuery())
	require.NoError(t, err)
	assert.Nil(t, match)
	require.Len(t, sank, 1)
	assert.Contains(t, sank[0], "no results")
}

func TestNominatimRateLimited(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Geocode(context.Background(), fullQuery())
	require.Error(t, err)
	assert.Equal(t, ReasonRateLimited, ReasonOf(err))
	assert.True(t, IsRateLimitError(err))
}

func TestNominatimServerError(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Geocode(context.Background(), fullQuery())
	require.Error(t, err)

	var geoErr *GeocodeError
	require.True(t, errors.As(err, &geoErr))
	assert.Equal(t, ReasonHTTPError, geoErr.Reason)
	assert.Equal(t, http.StatusInternalServerError, geoErr.Status)
}

func TestNominatimMalformedBody(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})

	_, err := p.Geocode(context.Background(), fullQuery())
	require.Error(t, err)
	assert.Equal(t, ReasonParseError, ReasonOf(err))
}

func TestNominatimInvalidCoordinates(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "not-a-number", "lon": "-89.65", "display_name": "x", "type": "house"}]`))
	})

	_, err := p.Geocode(context.Background(), fullQuery())
	require.Error(t, err)
	assert.Equal(t, ReasonParseError, ReasonOf(err))
}

func TestNominatimTimeout(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})
	p.client.Timeout = 20 * time.Millisecond

	_, err := p.Geocode(context.Background(), fullQuery())
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	assert.True(t, IsTimeoutError(err))
}

func TestNominatimIdentificationHeaders(t *testing.T) {
	var gotUA, gotLang string

	p := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := p.Geocode(context.Background(), fullQuery())
	require.NoError(t, err)

	assert.Equal(t, "georoute-test/0.0 (+ops@example.com)", gotUA)
	assert.Equal(t, "en", gotLang)
}

func TestNominatimRateLimitDelay(t *testing.T) {
	p := NewNominatimProvider("ops@example.com", "", nil, nil)

	if p.RateLimitDelay() < time.Second {
		t.Errorf("delay %v violates the one request per second policy", p.RateLimitDelay())
	}
}
