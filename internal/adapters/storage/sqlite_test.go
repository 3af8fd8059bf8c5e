package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/internal/adapters/storage"
	"github.com/alejandrodnm/polyledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *ledger.Table {
	start := time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	return &ledger.Table{
		Columns: []string{"slug", "asset", "price", "timestamp", "active", "tags", "start_time", `odd"name`, "market.id"},
		Rows: []ledger.Row{
			{
				"slug": "nba-1", "asset": "71321045679252212594626385532706912750332728571942532289631379312455583992563",
				"price": 0.42, "timestamp": int64(1769976000), "active": true,
				"tags": []string{"Sports", "NBA"}, "start_time": start, `odd"name`: "x", "market.id": "m1",
			},
			{
				"slug": "pol-1", "asset": "123", "price": nil, "timestamp": 1769976100,
				"active": false, "tags": nil, "start_time": nil, `odd"name`: nil, "market.id": "m2",
			},
		},
	}
}

func TestLedgerFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.sqlite")
	require.NoError(t, storage.WriteLedgerFile(path, sampleTable()))

	got, err := storage.ReadLedgerFile(path)
	require.NoError(t, err)

	assert.Equal(t, sampleTable().Columns, got.Columns)
	require.Equal(t, 2, got.Len())

	first := got.Rows[0]
	assert.Equal(t, "nba-1", first["slug"])
	assert.Equal(t, "71321045679252212594626385532706912750332728571942532289631379312455583992563", first["asset"], "ids stay text")
	assert.InDelta(t, 0.42, first["price"], 1e-12)
	assert.Equal(t, int64(1769976000), first["timestamp"])
	assert.Equal(t, true, first["active"])
	assert.Equal(t, []string{"Sports", "NBA"}, first[ledger.ColumnTags])
	assert.Equal(t, "2026-02-01 20:00:00+00:00", first["start_time"])
	assert.Equal(t, "x", first[`odd"name`])

	second := got.Rows[1]
	assert.Nil(t, second["price"])
	assert.Equal(t, int64(1769976100), second["timestamp"])
	assert.Equal(t, false, second["active"])
	assert.Empty(t, second[ledger.ColumnTags])
	assert.Nil(t, second["start_time"])
}

func TestLedgerFile_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sqlite")
	require.NoError(t, storage.WriteLedgerFile(path, sampleTable()))

	small := &ledger.Table{Columns: []string{"slug"}, Rows: []ledger.Row{{"slug": "only"}}}
	require.NoError(t, storage.WriteLedgerFile(path, small))

	got, err := storage.ReadLedgerFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"slug"}, got.Columns)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "only", got.Get(0, "slug"))
}

func TestWriteLedgerFile_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, storage.WriteLedgerFile(filepath.Join(dir, "a.sqlite"), nil))
	assert.Error(t, storage.WriteLedgerFile(filepath.Join(dir, "b.sqlite"), ledger.NewTable()))
}

func TestReadLedgerFile_Missing(t *testing.T) {
	_, err := storage.ReadLedgerFile(filepath.Join(t.TempDir(), "missing.sqlite"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
