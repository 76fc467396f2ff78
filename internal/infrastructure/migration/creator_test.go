package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/invest/ledger/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payout table", "add_payout_table"},
		{"Add-Payout-Table", "add_payout_table"},
		{"ADD__PAYOUT__TABLE", "add_payout_table"},
		{"  spaces  ", "spaces"},
		{"late fee v2", "late_fee_v2"},
		{"special!@#chars", "specialchars"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_Sequences(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	first, err := CreateMigration(dir, "add payout table", "Payout schedule per project")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_payout_table.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add payout table: Payout schedule per project")
	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback add payout table")

	second, err := CreateMigration(dir, "index receipts", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":    {Data: []byte("--")},
		"000010_late.down.sql":  {Data: []byte("--")},
		"000002_plans.up.sql":   {Data: []byte("--")},
		"000002_plans.down.sql": {Data: []byte("--")},
		"README.md":             {Data: []byte("x")},
		"dir.up.sql/inner.sql":  {Data: []byte("x")},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_plans", "000010_late"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for i, name := range names {
		assert.Equal(t, i+1, sequenceOf(name), "migrations must be numbered without gaps")
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}
