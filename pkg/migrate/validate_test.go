package migrate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adhamNemr/nemr-store/pkg/migrate"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "create_stuff.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644)
	require.NoError(t, err)

	err = migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename")
}

func TestValidateDirRejectsMissingDownHeader(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "20240101000001_create_stuff.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644)
	require.NoError(t, err)

	err = migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "+goose Down")
}
