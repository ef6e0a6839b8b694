package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bryan-buckman/pantry/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
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

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS dietary_profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		allergies TEXT NOT NULL DEFAULT '[]',
		diets TEXT NOT NULL DEFAULT '[]',
		health_goals TEXT NOT NULL DEFAULT '[]',
		disliked TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME
	);
	-- Defaults: refresh every 30 seconds, show the whole inventory.
	INSERT OR IGNORE INTO settings (key, value) VALUES ('refresh_interval_seconds', '30');
	INSERT OR IGNORE INTO settings (key, value) VALUES ('inventory_filter', 'all');
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Settings Methods ---

// GetSetting retrieves a setting value.
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?", key, value, value)
	return err
}

// GetRefreshInterval returns the refresh interval in seconds, with a minimum of 5.
func (db *DB) GetRefreshInterval() (int, error) {
	val, err := db.GetSetting(model.SettingRefreshInterval)
	if err != nil {
		return DefaultRefreshIntervalSeconds, nil // default
	}
	return clampInterval(val), nil
}

// GetInventoryFilter returns the last selected inventory filter.
func (db *DB) GetInventoryFilter() (string, error) {
	val, err := db.GetSetting(model.SettingInventoryFilter)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FilterAll, nil
	}
	return val, err
}

// SetInventoryFilter persists the inventory filter.
func (db *DB) SetInventoryFilter(filter string) error {
	return db.SetSetting(model.SettingInventoryFilter, filter)
}

// --- Dietary Profile Methods ---

// GetDietaryProfile returns the stored profile, or an empty one.
func (db *DB) GetDietaryProfile() (model.DietaryProfile, error) {
	var allergies, diets, goals, disliked string
	err := db.conn.QueryRow("SELECT allergies, diets, health_goals, disliked FROM dietary_profile WHERE id = 1").
		Scan(&allergies, &diets, &goals, &disliked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DietaryProfile{}, nil
	}
	if err != nil {
		return model.DietaryProfile{}, err
	}
	return decodeProfile(allergies, diets, goals, disliked)
}

// SaveDietaryProfile replaces the stored profile.
func (db *DB) SaveDietaryProfile(p model.DietaryProfile) error {
	cols, err := encodeProfile(p)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT INTO dietary_profile (id, allergies, diets, health_goals, disliked, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			allergies = excluded.allergies,
			diets = excluded.diets,
			health_goals = excluded.health_goals,
			disliked = excluded.disliked,
			updated_at = excluded.updated_at`,
		cols[0], cols[1], cols[2], cols[3], time.Now().UTC())
	return err
}

func encodeProfile(p model.DietaryProfile) ([4]string, error) {
	var cols [4]string
	for i, list := range [][]string{p.Allergies, p.Diets, p.HealthGoals, p.DislikedIngredients} {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return cols, fmt.Errorf("encode profile: %w", err)
		}
		cols[i] = string(data)
	}
	return cols, nil
}

func decodeProfile(allergies, diets, goals, disliked string) (model.DietaryProfile, error) {
	var p model.DietaryProfile
	targets := []*[]string{&p.Allergies, &p.Diets, &p.HealthGoals, &p.DislikedIngredients}
	for i, raw := range []string{allergies, diets, goals, disliked} {
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return model.DietaryProfile{}, fmt.Errorf("decode profile: %w", err)
		}
	}
	return p, nil
}
