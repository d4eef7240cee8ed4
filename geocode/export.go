// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/uber/h3-go/v4"

	"github.com/georoute/georoute/spatial"
)

// SuccessRow is one line of the geocoded export.
type SuccessRow struct {
	ID          string
	Street      string
	City        string
	Region      string
	Postal      string
	Key         string // normalized address the coordinates were resolved under
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string
	Status      ResolutionStatus
	CacheHit    bool
}

// FailureRow is one line of the failure export.
type FailureRow struct {
	ID                string
	Street            string
	City              string
	Region            string
	Postal            string
	Key               string
	Source            string
	Reason            FailureReason
	VariantsAttempted int
}

// Exports holds both output sets for a batch. A coarse outcome appears in
// both: its coordinates are worth keeping, but it still needs review.
type Exports struct {
	Successes []SuccessRow
	Failures  []FailureRow
}

// BuildExports splits batch results into the two export sets and flags, via
// the sink, groups of records whose coordinates collapse into the same H3
// res-8 cell. Those are usually distinct source rows for the same physical
// address, or coarse matches pinned to the same city centroid.
func BuildExports(results []RecordResult, sink Sink) *Exports {
	if sink == nil {
		sink = NopSink
	}

	exports := &Exports{}
	cells := make(map[h3.Cell][]cellMember)

	for _, rr := range results {
		rec, res := rr.Record, rr.Resolution

		if res.Point != nil {
			exports.Successes = append(exports.Successes, SuccessRow{
				ID:          rec.ID,
				Street:      rec.Street,
				City:        rec.City,
				Region:      rec.Region,
				Postal:      rec.Postal,
				Key:         res.Key,
				Latitude:    res.Point.Lat,
				Longitude:   res.Point.Lng,
				DisplayName: res.DisplayName,
				Source:      res.Source,
				Status:      res.Status,
				CacheHit:    res.CacheHit,
			})

			latLng := h3.NewLatLng(res.Point.Lat, res.Point.Lng)

			if cell, err := h3.LatLngToCell(latLng, h3CellResolution); err == nil {
				cells[cell] = append(cells[cell], cellMember{id: rec.ID, point: *res.Point})
			}
		}

		if res.Failed() || res.Status == StatusCoarse {
			exports.Failures = append(exports.Failures, FailureRow{
				ID:                rec.ID,
				Street:            rec.Street,
				City:              rec.City,
				Region:            rec.Region,
				Postal:            rec.Postal,
				Key:               res.Key,
				Source:            res.Source,
				Reason:            res.Reason,
				VariantsAttempted: res.VariantsAttempted,
			})
		}
	}

	warnCellCollisions(cells, sink)

	return exports
}

type cellMember struct {
	id    string
	point spatial.Point
}

func warnCellCollisions(cells map[h3.Cell][]cellMember, sink Sink) {
	collided := make([]h3.Cell, 0, len(cells))

	for cell, members := range cells {
		if len(members) > 1 {
			collided = append(collided, cell)
		}
	}

	sort.Slice(collided, func(i, j int) bool { return collided[i] < collided[j] })

	for _, cell := range collided {
		members := cells[cell]
		sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.id
		}

		sink(fmt.Sprintf("h3 cell %s shared by %d records (max spread %.0fm): %v",
			strconv.FormatUint(uint64(cell), 16), len(members), maxSpread(members), ids))
	}
}

// maxSpread is the largest pairwise distance between the members' points.
// Colliding groups are small, so the quadratic scan is fine.
func maxSpread(members []cellMember) float64 {
	var spread float64

	for i := range members {
		for j := i + 1; j < len(members); j++ {
			if d := members[i].point.HaversineDistance(&members[j].point); d > spread {
				spread = d
			}
		}
	}

	return spread
}

// WriteSuccessCSV writes the geocoded export with a header row.
func (e *Exports) WriteSuccessCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"id", "address", "city", "state", "zip", "normalized_address",
		"latitude", "longitude", "display_name", "source", "status", "cache_hit",
	}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range e.Successes {
		err := cw.Write([]string{
			row.ID, row.Street, row.City, row.Region, row.Postal, row.Key,
			strconv.FormatFloat(row.Latitude, 'f', -1, 64),
			strconv.FormatFloat(row.Longitude, 'f', -1, 64),
			row.DisplayName, row.Source, string(row.Status),
			strconv.FormatBool(row.CacheHit),
		})
		if err != nil {
			return fmt.Errorf("writing row %s: %w", row.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFailureCSV writes the failure export with a header row.
func (e *Exports) WriteFailureCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"id", "address", "city", "state", "zip", "normalized_address", "source",
		"reason", "variants_attempted",
	}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range e.Failures {
		err := cw.Write([]string{
			row.ID, row.Street, row.City, row.Region, row.Postal, row.Key,
			row.Source, string(row.Reason), strconv.Itoa(row.VariantsAttempted),
		})
		if err != nil {
			return fmt.Errorf("writing row %s: %w", row.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
