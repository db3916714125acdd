package jsonfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadProfiles(t *testing.T) {
	defer filet.CleanUp(t)
	f := filet.TmpFile(t, "", `[
		{"latitude": 47.41, "longitude": 10.28, "datum": "2024-01-10 08:00:00", "profil_id": "abc123", "ort": "Nebelhorn"},
		{"latitude": 0, "longitude": 10.1, "datum": "2024-01-10 08:00:00", "profil_id": 77}
	]`)

	src := NewSource(f.Name(), discardLogger())
	records, err := src.LoadProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "abc123", records[0].ProfileID.String())
	assert.Equal(t, "Nebelhorn", records[0].PlaceName())
	assert.True(t, records[0].HasCoordinates())
	assert.Equal(t, "77", records[1].ProfileID.String())
	assert.False(t, records[1].HasCoordinates())
	assert.Equal(t, f.Name(), src.Location())
}

func TestLoadProfiles_EmptyArray(t *testing.T) {
	defer filet.CleanUp(t)
	f := filet.TmpFile(t, "", `[]`)

	records, err := NewSource(f.Name(), discardLogger()).LoadProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadProfiles_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent_profiles.json")

	_, err := NewSource(path, discardLogger()).LoadProfiles(context.Background())
	require.ErrorIs(t, err, domain.ErrProfilesNotFound)
	assert.Contains(t, err.Error(), path)
}

func TestLoadProfiles_InvalidJSON(t *testing.T) {
	defer filet.CleanUp(t)
	f := filet.TmpFile(t, "", `not json`)

	_, err := NewSource(f.Name(), discardLogger()).LoadProfiles(context.Background())
	require.ErrorIs(t, err, domain.ErrProfilesMalformed)
}

func TestLoadProfiles_ObjectInsteadOfArray(t *testing.T) {
	defer filet.CleanUp(t)
	f := filet.TmpFile(t, "", `{"latitude": 47.4}`)

	_, err := NewSource(f.Name(), discardLogger()).LoadProfiles(context.Background())
	require.ErrorIs(t, err, domain.ErrProfilesMalformed)
}

func TestLoadProfiles_Directory(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSource(dir, discardLogger()).LoadProfiles(context.Background())
	require.ErrorIs(t, err, domain.ErrProfilesUnreadable)
}

func TestLoadProfiles_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(path, discardLogger()).LoadProfiles(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
