package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuiltIns(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.For("zip").Archive())
	assert.True(t, r.For("tar.gz").Archive())
	assert.True(t, r.For("tgz").Archive())
	assert.False(t, r.For("laz").Archive())
	assert.False(t, r.For("tif").Archive())
}

type fakeStrategy struct{}

func (fakeStrategy) Archive() bool { return true }
func (fakeStrategy) Materialize(_, _, _ string) ([]string, error) {
	return []string{"fake"}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("7z", fakeStrategy{})

	files, err := r.For("7z").Materialize("", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fake"}, files)

	// Registration is case-insensitive on lookup.
	assert.True(t, r.For("7Z").Archive())
}

func TestZipStrategy(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "32_680_5362.zip")
	writeZip(t, zipPath, map[string]string{
		"32_680_5362.laz": "LASF....",
		"readme.txt":      "docs",
	})

	tileDir := filepath.Join(dir, "32_680_5362")
	files, err := NewRegistry().For("zip").Materialize(zipPath, tileDir, "laz")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(tileDir, "32_680_5362.laz"), files[0])
}

func TestZipStrategy_NoPayload(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "tile.zip")
	writeZip(t, zipPath, map[string]string{"readme.txt": "docs only"})

	_, err := NewRegistry().For("zip").Materialize(zipPath, filepath.Join(dir, "tile"), "laz")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorrupt))
}

func TestZipStrategy_BadArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "tile.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("not a zip"), 0o644))

	_, err := NewRegistry().For("zip").Materialize(zipPath, filepath.Join(dir, "tile"), "laz")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorrupt))
}

func TestTarGzStrategy(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "dem.tar.gz")
	writeTarGz(t, tarPath, map[string]string{"dem.tif": "II*\x00data"})

	files, err := NewRegistry().For("tar.gz").Materialize(tarPath, filepath.Join(dir, "dem"), "tif")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRawStrategy(t *testing.T) {
	dir := t.TempDir()
	lazPath := filepath.Join(dir, "32_680_5362.laz")
	require.NoError(t, os.WriteFile(lazPath, []byte("LASF...."), 0o644))

	files, err := NewRegistry().For("laz").Materialize(lazPath, "", "laz")
	require.NoError(t, err)
	assert.Equal(t, []string{lazPath}, files)
}

func TestRawStrategy_WrongType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.laz")
	require.NoError(t, os.WriteFile(path, []byte("LASF"), 0o644))

	_, err := NewRegistry().For("laz").Materialize(path, "", "tif")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorrupt))
}
