package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// StopRow is a stop from the reference table.
type StopRow struct {
	StopID   string  `json:"stop_id"`
	StopCode string  `json:"stop_code,omitempty"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// HasStops returns true if the stop reference table has been imported.
func (db *DB) HasStops(ctx context.Context) bool {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stops`).Scan(&count)
	return err == nil && count > 0
}

// Stop looks up a stop by ID. Returns ErrNotFound if unknown.
func (db *DB) Stop(ctx context.Context, stopID string) (*StopRow, error) {
	var s StopRow
	err := db.QueryRowContext(ctx,
		`SELECT stop_id, stop_code, stop_name, stop_lat, stop_lon FROM stops WHERE stop_id = ?`,
		stopID).Scan(&s.StopID, &s.StopCode, &s.Name, &s.Lat, &s.Lon)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stop %s: %w", stopID, err)
	}
	return &s, nil
}

// SearchStops finds stops whose name contains the query (case-insensitive).
func (db *DB) SearchStops(ctx context.Context, query string, limit int) ([]StopRow, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	// SQLite LOWER() only folds ASCII, so match against both spellings.
	rows, err := db.QueryContext(ctx, `
		SELECT stop_id, stop_code, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE LOWER(stop_name) LIKE '%' || ? || '%'
		   OR stop_name LIKE '%' || ? || '%'
		ORDER BY stop_name, stop_id
		LIMIT ?`, q, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search stops: %w", err)
	}
	defer rows.Close()

	var results []StopRow
	for rows.Next() {
		var s StopRow
		if err := rows.Scan(&s.StopID, &s.StopCode, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// ReplaceStops swaps the whole stop reference table in one transaction.
func (db *DB) ReplaceStops(ctx context.Context, stops []StopRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stops`); err != nil {
		return fmt.Errorf("clear stops: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stops: %w", err)
	}
	defer stmt.Close()

	for _, s := range stops {
		if _, err := stmt.ExecContext(ctx, s.StopID, s.StopCode, s.Name, s.Lat, s.Lon); err != nil {
			return fmt.Errorf("insert stop %s: %w", s.StopID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SaveFeed stores the latest successful departures body for a stop.
func (db *DB) SaveFeed(ctx context.Context, stopID, body string, fetchedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_snapshots (stop_id, body, fetched_at) VALUES (?, ?, ?)`,
		stopID, body, fetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save feed %s: %w", stopID, err)
	}
	return nil
}

// LatestFeed returns the last stored departures body for a stop and when it
// was fetched. Returns ErrNotFound if none was ever stored.
func (db *DB) LatestFeed(ctx context.Context, stopID string) (string, time.Time, error) {
	var body, fetchedAt string
	err := db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM feed_snapshots WHERE stop_id = ?`, stopID).Scan(&body, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("latest feed %s: %w", stopID, err)
	}
	at, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	return body, at, nil
}

// StopsInBounds returns stops inside a lat/lon box. Callers refine by
// distance themselves.
func (db *DB) StopsInBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]StopRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stop_id, stop_code, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE stop_lat BETWEEN ? AND ?
		  AND stop_lon BETWEEN ? AND ?
		LIMIT ?`, minLat, maxLat, minLon, maxLon, limit)
	if err != nil {
		return nil, fmt.Errorf("stops in bounds: %w", err)
	}
	defer rows.Close()

	var results []StopRow
	for rows.Next() {
		var s StopRow
		if err := rows.Scan(&s.StopID, &s.StopCode, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
