// Package database provides local storage for client settings and the
// dietary profile.
package database

import (
	"fmt"
	"strings"

	"github.com/bryan-buckman/pantry/internal/model"
)

// Refresh interval bounds, in seconds.
const (
	DefaultRefreshIntervalSeconds = 30
	MinRefreshIntervalSeconds     = 5
)

// Store defines the interface for local storage operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	GetRefreshInterval() (int, error)
	GetInventoryFilter() (string, error)
	SetInventoryFilter(filter string) error

	// Dietary profile operations
	GetDietaryProfile() (model.DietaryProfile, error)
	SaveDietaryProfile(p model.DietaryProfile) error
}

// Canonical driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NormalizeDriver maps a driver name to its canonical form. Case and
// surrounding space are ignored, "postgresql" is an alias and an empty name
// means SQLite.
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unknown database driver %q", driver)
	}
}

// Open returns a store for driver, see NormalizeDriver.
func Open(driver, dsn string) (Store, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	if name == DriverPostgres {
		return NewPostgres(dsn)
	}
	return New(dsn)
}

// clampInterval parses a stored interval and enforces the bounds.
func clampInterval(val string) int {
	var secs int
	if _, err := fmt.Sscanf(val, "%d", &secs); err != nil {
		return DefaultRefreshIntervalSeconds
	}
	if secs < MinRefreshIntervalSeconds {
		secs = MinRefreshIntervalSeconds
	}
	return secs
}
