// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// input column names, matched case-insensitively
const (
	columnID     = "id"
	columnStreet = "address"
	columnCity   = "city"
	columnRegion = "state"
	columnPostal = "zip"
)

// ReadRecords parses an address CSV. The header must carry id, address,
// city, state and zip columns in any order; extra columns are ignored.
// Records are returned unsanitized so callers see the source values.
func ReadRecords(r io.Reader) ([]AddressRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{columnID, columnStreet, columnCity, columnRegion, columnPostal} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}

		return row[i]
	}

	var records []AddressRecord

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		records = append(records, AddressRecord{
			ID:     field(row, columnID),
			Street: field(row, columnStreet),
			City:   field(row, columnCity),
			Region: field(row, columnRegion),
			Postal: field(row, columnPostal),
		})
	}

	return records, nil
}
