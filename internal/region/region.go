// Package region holds the per-region grid and download descriptors that
// drive tile derivation and retrieval.
package region

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TilePlaceholder is the token in a base URL template replaced by the tile
// file name.
const TilePlaceholder = "{tile}"

// ErrNotConfigured is returned by Map.Lookup for an unknown region key.
var ErrNotConfigured = eris.New("region: not configured")

// Region describes one region's tiling grid and download endpoint. Loaded
// once per run and treated as read-only afterwards.
type Region struct {
	Key  string `yaml:"-"`
	Name string `yaml:"name"`

	// EPSG is the CRS the grid is defined in, e.g. "EPSG:25832".
	EPSG string `yaml:"epsg"`

	GridOriginX float64 `yaml:"grid_origin_x"`
	GridOriginY float64 `yaml:"grid_origin_y"`
	CellSizeM   float64 `yaml:"cell_size_m"`

	// TilePattern names a tile from its cell indices, e.g. "32_{x}_{y}".
	TilePattern string `yaml:"tile_pattern"`

	// BaseURL is the download URL template; must contain {tile}.
	BaseURL string `yaml:"base_url"`

	// SourceExt is the extension of the remote resource ("zip", "tar.gz",
	// "laz", ...). It selects the retrieval strategy.
	SourceExt string `yaml:"source_ext"`

	// DataExt is the payload extension expected after extraction ("laz",
	// "las", "tif"). For non-archive sources it equals SourceExt.
	DataExt string `yaml:"data_ext"`

	// BoundaryToleranceM controls adjacent-tile inclusion near cell seams.
	// Zero means "default" (1.0 m); use a small negative value to disable.
	BoundaryToleranceM float64 `yaml:"boundary_tolerance_m"`

	// IncludeDiagonal adds the corner neighbor when both axes are within
	// tolerance. Defaults to true.
	IncludeDiagonal *bool `yaml:"include_diagonal"`

	// AllowNegativeIndices permits cells west/south of the grid origin.
	AllowNegativeIndices bool `yaml:"allow_negative_indices"`

	pattern *Pattern
}

// DefaultBoundaryToleranceM is the seam tolerance applied when a region does
// not set one.
const DefaultBoundaryToleranceM = 1.0

// Tolerance returns the effective boundary tolerance in meters.
func (r Region) Tolerance() float64 {
	if r.BoundaryToleranceM == 0 {
		return DefaultBoundaryToleranceM
	}
	if r.BoundaryToleranceM < 0 {
		return 0
	}
	return r.BoundaryToleranceM
}

// Diagonal reports whether corner neighbors are included at seams.
func (r Region) Diagonal() bool {
	return r.IncludeDiagonal == nil || *r.IncludeDiagonal
}

// Pattern returns the compiled tile naming pattern.
func (r Region) Pattern() *Pattern { return r.pattern }

// TileFileName returns the remote file name for a tile id.
func (r Region) TileFileName(tileID string) string {
	return tileID + "." + r.SourceExt
}

// URL builds the download URL for a tile id.
func (r Region) URL(tileID string) string {
	return strings.ReplaceAll(r.BaseURL, TilePlaceholder, r.TileFileName(tileID))
}

func (r *Region) validate() error {
	type check struct {
		field string
		bad   bool
	}
	for _, c := range []check{
		{"name", r.Name == ""},
		{"epsg", r.EPSG == ""},
		{"tile_pattern", r.TilePattern == ""},
		{"base_url", r.BaseURL == ""},
		{"source_ext", r.SourceExt == ""},
		{"data_ext", r.DataExt == ""},
	} {
		if c.bad {
			return eris.Errorf("region %q: missing required field %s", r.Key, c.field)
		}
	}
	if r.CellSizeM <= 0 {
		return eris.Errorf("region %q: cell_size_m must be positive, got %v", r.Key, r.CellSizeM)
	}
	if tol := r.Tolerance(); tol >= r.CellSizeM/2 {
		return eris.Errorf("region %q: boundary_tolerance_m %v must be below half the cell size", r.Key, tol)
	}
	if !strings.Contains(r.BaseURL, TilePlaceholder) {
		return eris.Errorf("region %q: base_url must contain the %s placeholder", r.Key, TilePlaceholder)
	}

	p, err := CompilePattern(r.TilePattern)
	if err != nil {
		return eris.Wrapf(err, "region %q: tile_pattern", r.Key)
	}
	r.pattern = p
	return nil
}

// Map is the full set of configured regions keyed by region key.
type Map map[string]Region

// Lookup returns the region for a key, or ErrNotConfigured.
func (m Map) Lookup(key string) (Region, error) {
	r, ok := m[key]
	if !ok {
		return Region{}, eris.Wrapf(ErrNotConfigured, "region %q", key)
	}
	return r, nil
}

// Keys returns the configured region keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads and validates a regions YAML file.
//
// The file has a top-level "regions" key mapping region keys to descriptors:
//
//	regions:
//	  BY:
//	    name: Bayern
//	    epsg: EPSG:25832
//	    cell_size_m: 1000
//	    tile_pattern: "32_{x}_{y}"
//	    base_url: "https://download.example.de/laz/{tile}"
//	    source_ext: laz
//	    data_ext: laz
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates regions YAML.
func Parse(data []byte) (Map, error) {
	var wrapper struct {
		Regions map[string]Region `yaml:"regions"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "region: parse config")
	}
	if len(wrapper.Regions) == 0 {
		return nil, eris.New("region: config defines no regions")
	}

	m := make(Map, len(wrapper.Regions))
	for key, r := range wrapper.Regions {
		r.Key = key
		if err := r.validate(); err != nil {
			return nil, err
		}
		m[key] = r
	}
	return m, nil
}
