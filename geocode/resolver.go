// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/georoute/georoute/spatial"
)

// Source tag persisted with failed entries: no provider vouches for them.
const sourceNone = "none"

// ResolutionStatus is the terminal state of one resolution.
type ResolutionStatus string

const (
	// StatusSuccess precise coordinates were found.
	StatusSuccess ResolutionStatus = "success"
	// StatusCoarse coordinates were found but only at city/region
	// granularity.
	StatusCoarse ResolutionStatus = "coarse"
	// StatusFailure no usable coordinates.
	StatusFailure ResolutionStatus = "failure"
)

// Resolution is the outcome of resolving one AddressRecord.
type Resolution struct {
	Status            ResolutionStatus `json:"status"`
	Key               string           `json:"key"`
	Point             *spatial.Point   `json:"point,omitempty"`
	DisplayName       string           `json:"display_name,omitempty"`
	MatchType         string           `json:"match_type,omitempty"`
	Source            string           `json:"source"`
	Variant           VariantKind      `json:"variant,omitempty"`
	Reason            FailureReason    `json:"reason,omitempty"`
	VariantsAttempted int              `json:"variants_attempted"`
	CacheHit          bool             `json:"cache_hit"`
}

// Failed reports whether the outcome yielded no coordinates at all.
func (r *Resolution) Failed() bool {
	return r.Status == StatusFailure
}

// Resolver drives the ordered fallback-query protocol for one provider:
// cache check, variant ladder, rate limiting, persistence.
//
// The rate limiter lives here and is shared by all batch workers, so the
// provider's request budget holds in aggregate no matter the worker count.
type Resolver struct {
	provider Provider
	cache    *Cache
	limiter  *rate.Limiter
	sink     Sink
}

// NewResolver wires a resolver to a provider and cache. The sink is
// required; pass NopSink when no observer is wanted.
func NewResolver(provider Provider, cache *Cache, sink Sink) *Resolver {
	if sink == nil {
		sink = NopSink
	}

	return &Resolver{
		provider: provider,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(provider.RateLimitDelay()), 1),
		sink:     sink,
	}
}

// Resolve runs one AddressRecord through the full protocol and persists the
// outcome. The returned error covers storage problems only; every provider
// failure is folded into the Resolution.
func (r *Resolver) Resolve(ctx context.Context, rec AddressRecord) (*Resolution, error) {
	rec = rec.Sanitize()
	key := Normalize(rec)

	if !rec.Complete() {
		r.sink(fmt.Sprintf("record %s: incomplete address, skipping lookup", rec.ID))

		if err := r.cache.Put(key, nil, "", sourceNone); err != nil {
			return nil, err
		}

		return &Resolution{
			Status: StatusFailure,
			Key:    key,
			Source: sourceNone,
			Reason: ReasonMissingFields,
		}, nil
	}

	entry, err := r.cache.Get(key)
	if err != nil {
		return nil, err
	}

	if entry != nil {
		if entry.Failed() {
			// Negative cache hit: this address is known to be
			// unresolvable, don't spend quota on it again.
			return &Resolution{
				Status:   StatusFailure,
				Key:      key,
				Source:   entry.Source,
				Reason:   ReasonCachedFailure,
				CacheHit: true,
			}, nil
		}

		return &Resolution{
			Status:      StatusSuccess,
			Key:         key,
			Point:       entry.Point,
			DisplayName: entry.DisplayName,
			Source:      entry.Source,
			CacheHit:    true,
		}, nil
	}

	return r.resolveUncached(ctx, key, rec)
}

func (r *Resolver) resolveUncached(ctx context.Context, key string, rec AddressRecord) (*Resolution, error) {
	var (
		best        *Match
		bestVariant VariantKind
		lastFailure FailureReason
		attempted   int
	)

	for _, q := range Variants(rec) {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		attempted++

		match, err := r.provider.Geocode(ctx, q)
		if err != nil {
			// Transient or structural, either way the next variant may
			// still land. Remember the category for exhaustion reporting.
			lastFailure = ReasonOf(err)

			continue
		}

		if match == nil {
			continue
		}

		// The last-resort variant is only ever accepted as coarse, no
		// matter what the provider classified the hit as.
		if q.Kind == VariantRegionOnly {
			match.Precise = false
		}

		if match.Precise {
			res := &Resolution{
				Status:            StatusSuccess,
				Key:               key,
				Point:             &match.Point,
				DisplayName:       match.DisplayName,
				MatchType:         match.PlaceType,
				Source:            r.provider.SourceName(),
				Variant:           q.Kind,
				VariantsAttempted: attempted,
			}

			return res, r.cache.Put(key, res.Point, res.DisplayName, res.Source)
		}

		// Remember the first (most specific) coarse hit, but keep
		// trying: a later variant might still yield a precise match.
		if best == nil {
			best = match
			bestVariant = q.Kind
		}
	}

	if best != nil {
		r.sink(fmt.Sprintf("record %s: only a coarse match (%s via %s) for %q",
			rec.ID, best.PlaceType, bestVariant, truncateQuery(key)))

		res := &Resolution{
			Status:            StatusCoarse,
			Key:               key,
			Point:             &best.Point,
			DisplayName:       best.DisplayName,
			MatchType:         best.PlaceType,
			Source:            r.provider.SourceName(),
			Variant:           bestVariant,
			Reason:            ReasonCoarseSkip,
			VariantsAttempted: attempted,
		}

		return res, r.cache.Put(key, res.Point, res.DisplayName, res.Source)
	}

	reason := ReasonNoResult
	if lastFailure != "" {
		reason = lastFailure
	}

	res := &Resolution{
		Status:            StatusFailure,
		Key:               key,
		Source:            sourceNone,
		Reason:            reason,
		VariantsAttempted: attempted,
	}

	return res, r.cache.Put(key, nil, "", sourceNone)
}

// RecordResult pairs an input record with its outcome.
type RecordResult struct {
	Record     AddressRecord
	Resolution *Resolution
}

// BatchMetrics aggregates a batch run.
type BatchMetrics struct {
	Lookups   int
	CacheHits int
	Geocoded  int
	Coarse    int
	Failed    int
}

// Merge combines the metrics from another batch into this one.
func (m *BatchMetrics) Merge(other *BatchMetrics) *BatchMetrics {
	if other == nil {
		return m
	}

	m.Lookups += other.Lookups
	m.CacheHits += other.CacheHits
	m.Geocoded += other.Geocoded
	m.Coarse += other.Coarse
	m.Failed += other.Failed

	return m
}

// BatchOptions controls a batch run.
type BatchOptions struct {
	// Workers is the number of concurrent resolvers. Defaults to 1, which
	// is also what Nominatim's usage policy expects.
	Workers int

	// Progress, when non-nil and a terminal, gets a progress bar.
	Progress io.Writer

	// Description labels the progress bar.
	Description string
}

// ResolveBatch processes records one at a time per worker. Cancelling ctx
// stops the batch between records; a record already in flight is allowed to
// finish and persist, so the cache is never left mid-resolution.
func (r *Resolver) ResolveBatch(ctx context.Context, records []AddressRecord, opts BatchOptions) ([]RecordResult, *BatchMetrics, error) {
	maxProcs := opts.Workers
	if maxProcs <= 0 {
		maxProcs = 1
	}

	var bar *progressbar.ProgressBar

	if f, ok := opts.Progress.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription(opts.Description),
			progressbar.OptionSetWriter(f),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)
	errChan := make(chan error, len(records))
	resolutions := make([]*Resolution, len(records))

	// In-flight resolutions run to completion even if the batch is
	// cancelled; aborting mid-request would leave ambiguous cache state.
	recordCtx := context.WithoutCancel(ctx)

	for i, rec := range records {
		// The semaphore is taken here, not inside the goroutine, so the
		// cancellation check below really runs between records: a new
		// record is only dispatched once a worker slot is free.
		semaphore <- struct{}{}

		if ctx.Err() != nil {
			<-semaphore
			r.sink("cancellation requested; stopping before next record")

			break
		}

		wg.Add(1)

		go func(i int, rec AddressRecord) {
			defer wg.Done()
			defer func() { <-semaphore }()

			res, err := r.Resolve(recordCtx, rec)
			if err != nil {
				errChan <- fmt.Errorf("resolving %s: %w", rec.ID, err)
			}

			resolutions[i] = res

			if bar != nil {
				if err := bar.Add(1); err != nil {
					errChan <- fmt.Errorf("updating progress bar: %w", err)
				}
			}
		}(i, rec)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	metrics := &BatchMetrics{}
	results := make([]RecordResult, 0, len(records))

	for i, res := range resolutions {
		if res == nil {
			continue
		}

		results = append(results, RecordResult{Record: records[i].Sanitize(), Resolution: res})

		metrics.Lookups++

		if res.CacheHit {
			metrics.CacheHits++
		}

		switch res.Status {
		case StatusSuccess:
			if !res.CacheHit {
				metrics.Geocoded++
			}
		case StatusCoarse:
			metrics.Coarse++
		case StatusFailure:
			metrics.Failed++
		}
	}

	return results, metrics, errors.Join(errs...)
}
