package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
regions:
  BY:
    name: Bayern
    epsg: EPSG:25832
    grid_origin_x: 0
    grid_origin_y: 0
    cell_size_m: 1000
    tile_pattern: "32_{x}_{y}"
    base_url: "https://geodaten.example.de/laz/{tile}"
    source_ext: laz
    data_ext: laz
  BB:
    name: Brandenburg
    epsg: EPSG:25833
    cell_size_m: 1000
    tile_pattern: "als_33{x}-{y}"
    base_url: "https://data.example.de/als/{tile}"
    source_ext: zip
    data_ext: laz
    boundary_tolerance_m: 2.5
    include_diagonal: false
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	require.Len(t, m, 2)

	by, err := m.Lookup("BY")
	require.NoError(t, err)
	assert.Equal(t, "BY", by.Key)
	assert.Equal(t, "Bayern", by.Name)
	assert.Equal(t, 1000.0, by.CellSizeM)
	assert.Equal(t, DefaultBoundaryToleranceM, by.Tolerance())
	assert.True(t, by.Diagonal())
	require.NotNil(t, by.Pattern())
	assert.Equal(t, "32_680_5362", by.Pattern().Format(680, 5362))

	bb, err := m.Lookup("BB")
	require.NoError(t, err)
	assert.Equal(t, 2.5, bb.Tolerance())
	assert.False(t, bb.Diagonal())
}

func TestLookup_Unknown(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	_, err = m.Lookup("XX")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotConfigured))
}

func TestKeys_Sorted(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"BB", "BY"}, m.Keys())
}

func TestURL(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	by, _ := m.Lookup("BY")
	assert.Equal(t, "https://geodaten.example.de/laz/32_680_5362.laz", by.URL("32_680_5362"))

	bb, _ := m.Lookup("BB")
	assert.Equal(t, "als_33368-5800.zip", bb.TileFileName("als_33368-5800"))
}

func TestParse_ValidationErrors(t *testing.T) {
	base := map[string]string{
		"name":         "Bayern",
		"epsg":         "EPSG:25832",
		"cell_size_m":  "1000",
		"tile_pattern": `"32_{x}_{y}"`,
		"base_url":     `"https://x.de/{tile}"`,
		"source_ext":   "laz",
		"data_ext":     "laz",
	}

	tests := []struct {
		name     string
		drop     string
		override map[string]string
		wantIn   string
	}{
		{name: "missing name", drop: "name", wantIn: "missing required field name"},
		{name: "missing epsg", drop: "epsg", wantIn: "missing required field epsg"},
		{name: "missing pattern", drop: "tile_pattern", wantIn: "missing required field tile_pattern"},
		{name: "zero cell size", override: map[string]string{"cell_size_m": "0"}, wantIn: "cell_size_m"},
		{name: "negative cell size", override: map[string]string{"cell_size_m": "-5"}, wantIn: "cell_size_m"},
		{name: "no tile placeholder", override: map[string]string{"base_url": `"https://x.de/static"`}, wantIn: "{tile}"},
		{name: "huge tolerance", override: map[string]string{"boundary_tolerance_m": "600"}, wantIn: "boundary_tolerance_m"},
		{name: "bad pattern", override: map[string]string{"tile_pattern": `"{x}_only"`}, wantIn: "tile_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yml := "regions:\n  BY:\n"
			for k, v := range base {
				if k == tt.drop {
					continue
				}
				if ov, ok := tt.override[k]; ok {
					v = ov
				}
				yml += "    " + k + ": " + v + "\n"
			}
			for k, v := range tt.override {
				if _, ok := base[k]; !ok {
					yml += "    " + k + ": " + v + "\n"
				}
			}

			_, err := Parse([]byte(yml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), `region "BY"`)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("regions: {}\n"))
	assert.Error(t, err)
}
