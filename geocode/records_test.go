// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadRecords(t *testing.T) {
	in := strings.NewReader(`id,address,city,state,zip
1,123 Main St,Springfield,IL,62704
2,456 Oak Ave,Chicago,IL,60601
`)

	records, err := ReadRecords(in)
	if err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}

	want := []AddressRecord{
		{ID: "1", Street: "123 Main St", City: "Springfield", Region: "IL", Postal: "62704"},
		{ID: "2", Street: "456 Oak Ave", City: "Chicago", Region: "IL", Postal: "60601"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("ReadRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRecordsColumnOrderAndExtras(t *testing.T) {
	in := strings.NewReader(`ZIP,notes,City,ID,State,Address
62704,ignore me,Springfield,1,IL,123 Main St
`)

	records, err := ReadRecords(in)
	if err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}

	want := []AddressRecord{
		{ID: "1", Street: "123 Main St", City: "Springfield", Region: "IL", Postal: "62704"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("ReadRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRecordsShortRow(t *testing.T) {
	in := strings.NewReader(`id,address,city,state,zip
1,123 Main St,Springfield
`)

	records, err := ReadRecords(in)
	if err != nil {
		t.Fatalf("ReadRecords() error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if records[0].Region != "" || records[0].Postal != "" {
		t.Errorf("expected missing trailing fields to stay empty: %+v", records[0])
	}
}

func TestReadRecordsMissingColumn(t *testing.T) {
	in := strings.NewReader(`id,address,city,state
1,123 Main St,Springfield,IL
`)

	if _, err := ReadRecords(in); err == nil {
		t.Fatal("expected an error for a missing zip column")
	}
}
