package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/pantry/internal/model"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "pantry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDefaults(t *testing.T) {
	db := openTemp(t)

	assert.Equal(t, "SQLite", db.DatabaseType())

	secs, err := db.GetRefreshInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshIntervalSeconds, secs)

	filter, err := db.GetInventoryFilter()
	require.NoError(t, err)
	assert.Equal(t, model.FilterAll, filter)

	p, err := db.GetDietaryProfile()
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestRefreshIntervalIsClamped(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.SetSetting(model.SettingRefreshInterval, "1"))
	secs, err := db.GetRefreshInterval()
	require.NoError(t, err)
	assert.Equal(t, MinRefreshIntervalSeconds, secs)

	require.NoError(t, db.SetSetting(model.SettingRefreshInterval, "garbage"))
	secs, err = db.GetRefreshInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshIntervalSeconds, secs)

	require.NoError(t, db.SetSetting(model.SettingRefreshInterval, "120"))
	secs, err = db.GetRefreshInterval()
	require.NoError(t, err)
	assert.Equal(t, 120, secs)
}

func TestProfilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pantry.db")
	db, err := New(path)
	require.NoError(t, err)

	want := model.DietaryProfile{
		Allergies:           []string{"peanuts"},
		Diets:               []string{"vegetarian"},
		HealthGoals:         []string{},
		DislikedIngredients: []string{"cilantro", "olives"},
	}
	require.NoError(t, db.SaveDietaryProfile(want))
	require.NoError(t, db.SetInventoryFilter(model.FilterFresh))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetDietaryProfile()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	filter, err := db.GetInventoryFilter()
	require.NoError(t, err)
	assert.Equal(t, model.FilterFresh, filter)
}

func TestSaveProfileOverwrites(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.SaveDietaryProfile(model.DietaryProfile{Diets: []string{"keto"}}))
	require.NoError(t, db.SaveDietaryProfile(model.DietaryProfile{Diets: []string{"vegan"}}))

	got, err := db.GetDietaryProfile()
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, got.Diets)
	assert.Equal(t, []string{}, got.Allergies, "nil lists are stored as empty lists")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mongo", "x")
	assert.Error(t, err)

	s, err := Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.Equal(t, "SQLite", s.DatabaseType())
	require.NoError(t, s.Close())

	s, err = Open(" SQLite ", filepath.Join(t.TempDir(), "y.db"))
	require.NoError(t, err, "driver names ignore case")
	require.NoError(t, s.Close())
}

func TestNormalizeDriver(t *testing.T) {
	for in, want := range map[string]string{
		"":           DriverSQLite,
		"SQLITE":     DriverSQLite,
		"sqlite3":    DriverSQLite,
		"Postgres":   DriverPostgres,
		"POSTGRESQL": DriverPostgres,
	} {
		got, err := NormalizeDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := NormalizeDriver("mysql")
	assert.Error(t, err)
}
