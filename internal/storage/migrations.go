package storage

import "fmt"

func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrations applied")
	return nil
}

var migrations = []string{
	// Stop reference table, imported from the GTFS stops.txt
	`CREATE TABLE IF NOT EXISTS stops (
		stop_id   TEXT PRIMARY KEY,
		stop_code TEXT NOT NULL DEFAULT '',
		stop_name TEXT NOT NULL,
		stop_lat  REAL NOT NULL DEFAULT 0,
		stop_lon  REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stops_name ON stops(stop_name)`,
	`CREATE INDEX IF NOT EXISTS idx_stops_lat_lon ON stops(stop_lat, stop_lon)`,

	// Last successful departures response per stop
	`CREATE TABLE IF NOT EXISTS feed_snapshots (
		stop_id    TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`,

	// Import metadata (last_modified, etag, imported_at)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}
