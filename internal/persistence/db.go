// Package persistence provides SQLite storage for navigator settings and the
// location registry.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/model"
)

// DB wraps a SQLite connection. It implements settings.Store.
type DB struct {
	conn *sqlx.DB
	log  logging.Logger
}

// Open opens or creates a SQLite database at the given path.
func Open(path string, log logging.Logger) (*DB, error) {
	if log == nil {
		log = logging.Noop()
	}
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, log: log}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		country TEXT NOT NULL,
		planet TEXT NOT NULL,
		longitude REAL NOT NULL,
		latitude REAL NOT NULL,
		altitude INTEGER NOT NULL,
		landscape_key TEXT NOT NULL,
		population INTEGER NOT NULL,
		role INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_locations_planet ON locations(planet);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Get returns the stored value for key. ok is false when the key is unset.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (db *DB) Set(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// locationRow mirrors the locations table.
type locationRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	State        string  `db:"state"`
	Country      string  `db:"country"`
	Planet       string  `db:"planet"`
	Longitude    float64 `db:"longitude"`
	Latitude     float64 `db:"latitude"`
	Altitude     int     `db:"altitude"`
	LandscapeKey string  `db:"landscape_key"`
	Population   int     `db:"population"`
	Role         int32   `db:"role"`
}

func rowFromLocation(loc model.Location) locationRow {
	return locationRow{
		ID:           locationKey(loc.ID()),
		Name:         loc.Name,
		State:        loc.State,
		Country:      loc.Country,
		Planet:       loc.PlanetName,
		Longitude:    loc.Longitude,
		Latitude:     loc.Latitude,
		Altitude:     loc.Altitude,
		LandscapeKey: loc.LandscapeKey,
		Population:   loc.Population,
		Role:         loc.Role,
	}
}

func (r locationRow) location() model.Location {
	return model.Location{
		Name:         r.Name,
		State:        r.State,
		Country:      r.Country,
		PlanetName:   r.Planet,
		Longitude:    r.Longitude,
		Latitude:     r.Latitude,
		Altitude:     r.Altitude,
		LandscapeKey: r.LandscapeKey,
		Population:   r.Population,
		Role:         r.Role,
	}
}

// locationKey matches the registry's case- and spacing-insensitive IDs.
func locationKey(id string) string {
	name, state, country := model.ParseLocationID(id)
	return strings.ToLower(name + "," + state + "," + country)
}

// SaveLocation inserts or replaces one location. A replaced location keeps
// its original position in the listing order.
func (db *DB) SaveLocation(loc model.Location) error {
	_, err := db.conn.NamedExec(`INSERT INTO locations
		(id, name, state, country, planet, longitude, latitude, altitude, landscape_key, population, role)
		VALUES (:id, :name, :state, :country, :planet, :longitude, :latitude, :altitude, :landscape_key, :population, :role)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			country = excluded.country,
			planet = excluded.planet,
			longitude = excluded.longitude,
			latitude = excluded.latitude,
			altitude = excluded.altitude,
			landscape_key = excluded.landscape_key,
			population = excluded.population,
			role = excluded.role`,
		rowFromLocation(loc))
	return err
}

// SaveLocations writes locations in one transaction.
func (db *DB) SaveLocations(locs []model.Location) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR IGNORE INTO locations
		(id, name, state, country, planet, longitude, latitude, altitude, landscape_key, population, role)
		VALUES (:id, :name, :state, :country, :planet, :longitude, :latitude, :altitude, :landscape_key, :population, :role)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, loc := range locs {
		if _, err := stmt.Exec(rowFromLocation(loc)); err != nil {
			return fmt.Errorf("insert location %q: %w", loc.ID(), err)
		}
	}
	return tx.Commit()
}

// DeleteLocation removes the location with the given ID, if present.
func (db *DB) DeleteLocation(id string) error {
	_, err := db.conn.Exec("DELETE FROM locations WHERE id = ?", locationKey(id))
	return err
}

// LoadLocations returns every stored location in insertion order.
func (db *DB) LoadLocations() ([]model.Location, error) {
	var rows []locationRow
	err := db.conn.Select(&rows, `SELECT id, name, state, country, planet, longitude, latitude,
		altitude, landscape_key, population, role FROM locations ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	locs := make([]model.Location, 0, len(rows))
	for _, r := range rows {
		locs = append(locs, r.location())
	}
	return locs, nil
}

// SyncKnowledgeBase makes the database the backing store of registry. Missing
// locations already in the registry (such as the built-ins) are written,
// stored locations are loaded into it, and later registry changes are
// persisted until the returned function is called.
func (db *DB) SyncKnowledgeBase(ctx context.Context, registry *kb.KnowledgeBase) (func(), error) {
	if err := db.SaveLocations(registry.ListLocations()); err != nil {
		return nil, fmt.Errorf("seed locations: %w", err)
	}
	stored, err := db.LoadLocations()
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}

	// Load before subscribing so the writes are not echoed back.
	for _, loc := range stored {
		if err := registry.PutLocation(loc); err != nil {
			db.log.Warn(ctx, "skipping invalid stored location",
				logging.String("location", loc.ID()), logging.Err(err))
		}
	}

	unsubscribe := registry.Subscribe(func(ev kb.Event) {
		var err error
		switch ev.Type {
		case kb.EventLocationAdded, kb.EventLocationUpdated:
			err = db.SaveLocation(ev.Location)
		case kb.EventLocationRemoved:
			err = db.DeleteLocation(ev.Location.ID())
		}
		if err != nil {
			db.log.Error(ctx, "persist location change failed",
				logging.String("location", ev.Location.ID()), logging.Err(err))
		}
	})

	db.log.Info(ctx, "location registry synced", logging.Int("locations", registry.Len()))
	return unsubscribe, nil
}
