// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/georoute/georoute/spatial"
	"github.com/uber/h3-go/v4"
	_ "modernc.org/sqlite" // register sqlite driver
)

// h3CellResolution is the H3 resolution stored with successful entries
// (~0.7 km² cells), fine enough to catch distinct addresses collapsing onto
// one coarse centroid.
const h3CellResolution = 8

// CacheEntry is one persisted resolution outcome. A nil Point records a
// failed resolution (negative cache entry), distinct from no entry at all.
type CacheEntry struct {
	Key         string         `json:"key"`
	Point       *spatial.Point `json:"point,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Source      string         `json:"source"`
	H3Cell      int64          `json:"h3_res8,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Failed reports whether this entry is a negative cache entry.
func (e *CacheEntry) Failed() bool {
	return e.Point == nil
}

// CacheStats summarizes cached entries, optionally scoped to a region.
type CacheStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Cache is the persistent resolution store, keyed by normalized address.
//
// Safe for concurrent use: every operation is a single atomic statement
// against the pooled connection, nothing is held across calls, and SQLite's
// own transactional guarantees cover concurrent writers.
type Cache struct {
	db *sql.DB
}

// DefaultCachePath returns the cache database location under the user
// cache directory, creating the directory if needed.
func DefaultCachePath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %w", err)
	}

	dir := filepath.Join(base, "georoute")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	return filepath.Join(dir, "geocode.sqlite"), nil
}

// OpenCache opens (creating if needed) the cache database at path and
// ensures the schema exists.
func OpenCache(path string) (*Cache, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS addresses (
  id                 INTEGER PRIMARY KEY,
  normalized_address TEXT UNIQUE,
  latitude           REAL,
  longitude          REAL,
  display_name       TEXT,
  source             TEXT,
  h3_res8            INTEGER,
  updated_at         TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_norm ON addresses(normalized_address);
	`); err != nil {
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	return c.db.Close()
}

// Get returns the entry for a normalized key, or (nil, nil) when absent.
func (c *Cache) Get(key string) (*CacheEntry, error) {
	var (
		lat, lon  sql.NullFloat64
		disp, src sql.NullString
		cell      sql.NullInt64
		updatedAt sql.NullString
	)

	err := c.db.QueryRow(`
		SELECT latitude, longitude, display_name, source, h3_res8, updated_at
		FROM addresses WHERE normalized_address = ?
	`, key).Scan(&lat, &lon, &disp, &src, &cell, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	entry := &CacheEntry{
		Key:         key,
		DisplayName: disp.String,
		Source:      src.String,
		H3Cell:      cell.Int64,
		UpdatedAt:   parseCacheTime(updatedAt.String),
	}

	if lat.Valid && lon.Valid {
		entry.Point = &spatial.Point{Lat: lat.Float64, Lng: lon.Float64}
	}

	return entry, nil
}

// Put upserts the entry for a normalized key. A nil point persists a
// negative entry. Successful entries get their H3 res-8 cell computed and
// stored alongside the coordinates.
func (c *Cache) Put(key string, point *spatial.Point, displayName, source string) error {
	var (
		lat, lon any
		cell     any
	)

	if point != nil {
		lat, lon = point.Lat, point.Lng

		h3Cell, err := h3.LatLngToCell(h3.NewLatLng(point.Lat, point.Lng), h3CellResolution)
		if err != nil {
			return fmt.Errorf("computing h3 cell: %w", err)
		}

		cell = int64(h3Cell)
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO addresses
			(normalized_address, latitude, longitude, display_name, source, h3_res8, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
	`, key, lat, lon, displayName, source, cell)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// ClearKey removes one entry. Returns true iff a row existed.
func (c *Cache) ClearKey(key string) (bool, error) {
	res, err := c.db.Exec("DELETE FROM addresses WHERE normalized_address = ?", key)
	if err != nil {
		return false, fmt.Errorf("clearing cache entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clearing cache entry: %w", err)
	}

	return n > 0, nil
}

// ClearKeys removes a batch of entries and returns how many existed.
func (c *Cache) ClearKeys(keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	res, err := c.db.Exec(
		"DELETE FROM addresses WHERE normalized_address IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}

	return int(n), nil
}

// Clear removes every entry. Returns the number of rows removed.
func (c *Cache) Clear() (int, error) {
	res, err := c.db.Exec("DELETE FROM addresses")
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}

	return int(n), nil
}

// Keys embed the region segment as ", XX <postal>" (or ", XX" when the
// postal is empty). Region-scoped operations match both renderings; this is
// a designed coupling between the key format and invalidation.
func regionPatterns(regionCode string) (string, string) {
	code := strings.ToUpper(strings.TrimSpace(regionCode))

	return "%, " + code + " %", "%, " + code + ",%"
}

// ClearRegion removes every entry whose key's region segment matches the
// code, case-insensitively. Returns the number of rows removed.
func (c *Cache) ClearRegion(regionCode string) (int, error) {
	withPostal, bare := regionPatterns(regionCode)

	res, err := c.db.Exec(
		"DELETE FROM addresses WHERE normalized_address LIKE ? OR normalized_address LIKE ?",
		withPostal, bare,
	)
	if err != nil {
		return 0, fmt.Errorf("clearing region %q: %w", regionCode, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing region %q: %w", regionCode, err)
	}

	return int(n), nil
}

// Stats reports entry counts, scoped to a region when regionCode is
// non-empty. Successful means non-null coordinates; coarse entries count as
// successful since they carry usable coordinates.
func (c *Cache) Stats(regionCode string) (CacheStats, error) {
	var (
		stats CacheStats
		where string
		args  []any
	)

	if regionCode != "" {
		withPostal, bare := regionPatterns(regionCode)
		where = " WHERE normalized_address LIKE ? OR normalized_address LIKE ?"
		args = []any{withPostal, bare}
	}

	err := c.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN latitude IS NOT NULL AND longitude IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM addresses`+where, args...,
	).Scan(&stats.Total, &stats.Successful)
	if err != nil {
		return CacheStats{}, fmt.Errorf("counting cache entries: %w", err)
	}

	stats.Failed = stats.Total - stats.Successful

	return stats, nil
}

// parseCacheTime parses SQLite's datetime('now') rendering; zero time on
// anything unexpected.
func parseCacheTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}

	return time.Time{}
}
