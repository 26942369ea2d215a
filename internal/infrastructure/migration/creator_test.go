package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add orders index", "add_orders_index"},
		{"Add-Orders-Index", "add_orders_index"},
		{"ADD_ORDERS_INDEX", "add_orders_index"},
		{"add__orders__index", "add_orders_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add orders index", "Speed up status filters")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_orders_index.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_orders_index.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_orders_index\n")
	assert.Contains(t, string(up), "-- Description: Speed up status filters")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	second, err := CreateMigration(dir, "Backfill weights", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	body, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "Description")
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	source := fstest.MapFS{
		"000002_add_b.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_add_a.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_add_a.down.sql": {Data: []byte("SELECT 1;")},
		"README.md":             {Data: []byte("notes")},
		"embed.go":              {Data: []byte("package migrations")},
	}

	got, err := ListMigrations(source)
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: 1, Name: "add_a", HasDown: true},
		{Version: 2, Name: "add_b"},
	}, got)
	assert.Equal(t, "000001_add_a", got[0].String())
}

func TestListMigrations_DuplicateVersion(t *testing.T) {
	source := fstest.MapFS{
		"000001_add_a.up.sql": {Data: []byte("SELECT 1;")},
		"000001_add_b.up.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := ListMigrations(source)
	assert.Error(t, err)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i, m := range got {
		assert.Equal(t, uint(i+1), m.Version, "versions must be contiguous")
		assert.True(t, m.HasDown, "%s has no down migration", m)
	}
}
