package db

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/oxhq/tspaths/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func trace(t *testing.T, lines ...string) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(lines)
	require.NoError(t, err)
	return data
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name          string
		dsn           func(t *testing.T) string
		errorContains string
	}{
		{
			name: "memory database",
			dsn:  func(*testing.T) string { return ":memory:" },
		},
		{
			name: "nested file database",
			dsn: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "history.db")
			},
		},
		{
			name: "directory cannot be created",
			dsn: func(t *testing.T) string {
				blocker := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(blocker, nil, 0o644))
				return filepath.Join(blocker, "history.db")
			},
			errorContains: "failed to create database directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(tt.dsn(t), false)
			if tt.errorContains != "" {
				assert.ErrorContains(t, err, tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.True(t, db.Migrator().HasTable(&models.Run{}))
			assert.True(t, db.Migrator().HasTable(&models.Resolution{}))
			NewStore(db).Close()
		})
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("libsql://db.turso.io"))
	assert.True(t, isURL("https://db.turso.io"))
	assert.False(t, isURL("/var/lib/tspaths/history.db"))
	assert.False(t, isURL(":memory:"))
}

func TestRecordAndHistory(t *testing.T) {
	store := newTestStore(t)

	run := models.NewRun("scan", "/proj", "/proj/tsconfig.json")
	run.Imports = 3
	run.Aliased = 2
	run.Unresolved = 1
	err := store.Record(run, []models.Resolution{
		{
			Issuer:  "/proj/src/main.ts",
			Request: "@app/button",
			Alias:   "@app/*",
			Status:  models.StatusResolved,
			Path:    "/proj/src/app/button.ts",
			Trace:   trace(t, "aliased with mapping '@app/button': '@app/*' to '/proj/src/app/button'"),
		},
		{
			Issuer:  "/proj/src/main.ts",
			Request: "@app/missing",
			Alias:   "@app/*",
			Status:  models.StatusUnresolved,
			Error:   "module not found",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)

	all, err := store.History(HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "@app/missing", all[0].Request, "newest first")
	assert.Equal(t, run.ID, all[0].RunID)

	var lines []string
	require.NoError(t, json.Unmarshal(all[1].Trace, &lines))
	assert.Len(t, lines, 1)

	unresolved, err := store.History(HistoryFilter{Status: models.StatusUnresolved})
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "module not found", unresolved[0].Error)

	byRequest, err := store.History(HistoryFilter{Request: "@app/button", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, byRequest, 1)

	loaded, err := store.Run(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Aliased)
	require.Len(t, loaded.Resolutions, 2)
	assert.Equal(t, "@app/button", loaded.Resolutions[0].Request)
}

func TestRunNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Run("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunsAndPrune(t *testing.T) {
	store := newTestStore(t)

	old := models.NewRun("resolve", "/proj", "")
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Record(old, []models.Resolution{{Request: "@a", Status: models.StatusResolved}}))

	recent := models.NewRun("scan", "/proj", "")
	require.NoError(t, store.Record(recent, nil))

	runs, err := store.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, recent.ID, runs[0].ID)

	removed, err := store.Prune(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	runs, err = store.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)

	history, err := store.History(HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}
