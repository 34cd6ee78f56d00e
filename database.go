package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a pilot account
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// EncounterRecord is one cleared encounter
type EncounterRecord struct {
	ID        int64     `json:"id" csv:"id"`
	SessionID string    `json:"sid" csv:"session_id"`
	Variant   string    `json:"variant" csv:"variant"`
	Seed      int64     `json:"seed" csv:"seed"`
	Frames    int64     `json:"frames" csv:"frames"`
	Seconds   float64   `json:"seconds" csv:"seconds"`
	Damage    int       `json:"damage" csv:"damage"`
	Spawned   int64     `json:"spawned" csv:"spawned"`
	PilotID   int64     `json:"pid,omitempty" csv:"pilot_id"`
	Pilot     string    `json:"pilot,omitempty" csv:"pilot"`
	CreatedAt time.Time `json:"at" csv:"created_at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS encounters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		seed INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		seconds REAL NOT NULL,
		damage INTEGER NOT NULL,
		spawned INTEGER NOT NULL,
		pilot_id INTEGER REFERENCES players(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		session_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_encounters_variant ON encounters(variant, created_at);
	CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreatePlayer creates a new pilot account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPlayerByUsername returns a player by username, or nil if there is none
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetSetting returns a stored setting, or "" if it is not set
func (db *DB) GetSetting(key string) string {
	var value string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// RecordEncounter stores a cleared encounter and returns its ID
func (db *DB) RecordEncounter(r EncounterRecord) (int64, error) {
	pilot := sql.NullInt64{Int64: r.PilotID, Valid: r.PilotID > 0}
	res, err := db.conn.Exec(
		`INSERT INTO encounters (session_id, variant, seed, frames, seconds, damage, spawned, pilot_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Variant, r.Seed, r.Frames, r.Seconds, r.Damage, r.Spawned, pilot,
	)
	if err != nil {
		return 0, fmt.Errorf("record encounter: %w", err)
	}
	return res.LastInsertId()
}

// RecentEncounters returns the newest clears, optionally for one variant
func (db *DB) RecentEncounters(variant string, limit int) ([]EncounterRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT e.id, e.session_id, e.variant, e.seed, e.frames, e.seconds, e.damage, e.spawned,
			COALESCE(e.pilot_id, 0), COALESCE(p.username, ''), e.created_at
		FROM encounters e
		LEFT JOIN players p ON p.id = e.pilot_id
		WHERE ? = '' OR e.variant = ?
		ORDER BY e.id DESC
		LIMIT ?`,
		variant, variant, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query encounters: %w", err)
	}
	defer rows.Close()

	var result []EncounterRecord
	for rows.Next() {
		var r EncounterRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Variant, &r.Seed, &r.Frames, &r.Seconds,
			&r.Damage, &r.Spawned, &r.PilotID, &r.Pilot, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ClearTimes returns every recorded clear time in seconds, grouped by variant
func (db *DB) ClearTimes() (map[string][]float64, error) {
	rows, err := db.conn.Query("SELECT variant, seconds FROM encounters ORDER BY variant")
	if err != nil {
		return nil, fmt.Errorf("query clear times: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]float64)
	for rows.Next() {
		var variant string
		var secs float64
		if err := rows.Scan(&variant, &secs); err != nil {
			return nil, err
		}
		result[variant] = append(result[variant], secs)
	}
	return result, rows.Err()
}
