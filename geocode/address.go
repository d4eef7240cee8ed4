// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country suffix appended to every normalized key. The resolver targets US
// addresses and territories.
const country = "USA"

// AddressRecord is one caller-owned input row. It is treated as immutable
// for the duration of a resolution.
type AddressRecord struct {
	ID     string
	Street string
	City   string
	Region string
	Postal string
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Placeholder tokens spreadsheets leak into string columns. They must never
// reach a cache key.
var placeholderValues = map[string]bool{
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
}

// foldDiacritics removes accents so "Cañon Blvd" and "Canon Blvd" share one
// cache key.
func foldDiacritics(s string) string {
	folded, _, err := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)
	if err != nil {
		return s
	}

	return folded
}

func sanitizeField(s string) string {
	s = whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
	if placeholderValues[strings.ToLower(s)] {
		return ""
	}

	return foldDiacritics(s)
}

// Sanitize returns a copy with fields trimmed, inner whitespace collapsed,
// placeholder sentinels blanked, diacritics folded, and the region code
// uppercased. All downstream work (keys, variants, completeness checks)
// operates on sanitized records.
func (r AddressRecord) Sanitize() AddressRecord {
	return AddressRecord{
		ID:     strings.TrimSpace(r.ID),
		Street: sanitizeField(r.Street),
		City:   sanitizeField(r.City),
		Region: strings.ToUpper(sanitizeField(r.Region)),
		Postal: sanitizeField(r.Postal),
	}
}

// Complete reports whether every field required for resolution is present.
func (r AddressRecord) Complete() bool {
	return r.Street != "" && r.City != "" && r.Region != "" && r.Postal != ""
}

func joinParts(parts ...string) string {
	var kept []string

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, ", ")
}

// Normalize builds the canonical cache key for a record:
// "<street>, <city>, <region> <postal>, USA" with missing fields rendered
// as empty. Deterministic and free of I/O.
func Normalize(r AddressRecord) string {
	r = r.Sanitize()

	return joinParts(
		r.Street,
		r.City,
		strings.TrimSpace(r.Region+" "+r.Postal),
		country,
	)
}

// VariantKind tags one phrasing of an address query.
type VariantKind string

// Variant ladder, in fallback order. region_only is the last resort and is
// only ever accepted as a coarse result.
const (
	VariantFull       VariantKind = "full"
	VariantNoPostal   VariantKind = "no_postal"
	VariantTerritory  VariantKind = "territory_substituted"
	VariantRegionOnly VariantKind = "region_only"
)

// Query is one candidate lookup derived from an AddressRecord. Providers
// that support structured requests use the individual fields; Text is the
// free-form rendering used for coarse variants and for diagnostics.
type Query struct {
	Kind    VariantKind
	Text    string
	Street  string
	City    string
	Region  string
	Postal  string
	Country string
}

// Variants derives the ordered query ladder for a record. Pure function:
// same record, same ladder.
func Variants(r AddressRecord) []Query {
	r = r.Sanitize()

	variants := []Query{{
		Kind:    VariantFull,
		Text:    Normalize(r),
		Street:  r.Street,
		City:    r.City,
		Region:  r.Region,
		Postal:  r.Postal,
		Country: country,
	}}

	if r.Postal != "" {
		variants = append(variants, Query{
			Kind:    VariantNoPostal,
			Text:    joinParts(r.Street, r.City, r.Region, country),
			Street:  r.Street,
			City:    r.City,
			Region:  r.Region,
			Country: country,
		})
	}

	if full, ok := regionFullName(r.Region); ok {
		variants = append(variants, Query{
			Kind:    VariantTerritory,
			Text:    joinParts(r.Street, r.City, full),
			Street:  r.Street,
			City:    r.City,
			Region:  full,
			Country: country,
		})
	}

	// Deliberately coarse: city + region only, no street. Unstructured so
	// the provider treats it as a free-form place lookup.
	variants = append(variants, Query{
		Kind: VariantRegionOnly,
		Text: joinParts(r.City, r.Region),
	})

	return variants
}

// regionNames expands two-letter region codes to the full name Nominatim
// indexes. Territories in particular rarely match on their code alone.
var regionNames = map[string]string{
	"AL": "Alabama",
	"AK": "Alaska",
	"AZ": "Arizona",
	"AR": "Arkansas",
	"CA": "California",
	"CO": "Colorado",
	"CT": "Connecticut",
	"DE": "Delaware",
	"FL": "Florida",
	"GA": "Georgia",
	"HI": "Hawaii",
	"ID": "Idaho",
	"IL": "Illinois",
	"IN": "Indiana",
	"IA": "Iowa",
	"KS": "Kansas",
	"KY": "Kentucky",
	"LA": "Louisiana",
	"ME": "Maine",
	"MD": "Maryland",
	"MA": "Massachusetts",
	"MI": "Michigan",
	"MN": "Minnesota",
	"MS": "Mississippi",
	"MO": "Missouri",
	"MT": "Montana",
	"NE": "Nebraska",
	"NV": "Nevada",
	"NH": "New Hampshire",
	"NJ": "New Jersey",
	"NM": "New Mexico",
	"NY": "New York",
	"NC": "North Carolina",
	"ND": "North Dakota",
	"OH": "Ohio",
	"OK": "Oklahoma",
	"OR": "Oregon",
	"PA": "Pennsylvania",
	"RI": "Rhode Island",
	"SC": "South Carolina",
	"SD": "South Dakota",
	"TN": "Tennessee",
	"TX": "Texas",
	"UT": "Utah",
	"VT": "Vermont",
	"VA": "Virginia",
	"WA": "Washington",
	"WV": "West Virginia",
	"WI": "Wisconsin",
	"WY": "Wyoming",
	"DC": "District of Columbia",
	"PR": "Puerto Rico",
	"GU": "Guam",
	"VI": "U.S. Virgin Islands",
	"MP": "Northern Mariana Islands",
	"AS": "American Samoa",
}

func regionFullName(code string) (string, bool) {
	full, ok := regionNames[strings.ToUpper(code)]

	return full, ok
}
