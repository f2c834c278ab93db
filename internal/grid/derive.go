// Package grid maps projected coordinates onto a region's tiling grid and
// derives the tile identifiers covering them.
package grid

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/geowerk/tilefetch/internal/region"
)

// TileID identifies one grid cell within a region. Derived, never
// user-supplied.
type TileID string

// ErrUnsupportedRegion is returned when a region's naming scheme cannot
// address the computed cell indices.
var ErrUnsupportedRegion = eris.New("grid: naming scheme cannot address cell")

// Derive returns the ordered set of tile ids covering the coordinate. The
// primary tile comes first. When the coordinate lies within the region's
// boundary tolerance of a cell edge, the neighbor(s) across that edge follow:
// x-axis neighbor, then y-axis neighbor, then the diagonal neighbor when both
// axes are near a seam and the region includes diagonals. The result is never
// empty on success.
func Derive(x, y float64, r region.Region) ([]TileID, error) {
	ix := cellIndex(x, r.GridOriginX, r.CellSizeM)
	iy := cellIndex(y, r.GridOriginY, r.CellSizeM)

	if !addressable(ix, iy, r) {
		return nil, eris.Wrapf(ErrUnsupportedRegion, "region %q cell (%d, %d)", r.Key, ix, iy)
	}

	tiles := []TileID{TileID(r.Pattern().Format(ix, iy))}

	tol := r.Tolerance()
	dx := seamDirection(x, r.GridOriginX, ix, r.CellSizeM, tol)
	dy := seamDirection(y, r.GridOriginY, iy, r.CellSizeM, tol)

	// Neighbors outside the addressable range are skipped; only an
	// unaddressable primary cell fails the derivation.
	if dx != 0 && addressable(ix+dx, iy, r) {
		tiles = append(tiles, TileID(r.Pattern().Format(ix+dx, iy)))
	}
	if dy != 0 && addressable(ix, iy+dy, r) {
		tiles = append(tiles, TileID(r.Pattern().Format(ix, iy+dy)))
	}
	if dx != 0 && dy != 0 && r.Diagonal() && addressable(ix+dx, iy+dy, r) {
		tiles = append(tiles, TileID(r.Pattern().Format(ix+dx, iy+dy)))
	}

	return tiles, nil
}

// DeriveBounds returns the tile ids for every cell intersecting the bounding
// box, in ascending x-index then ascending y-index order. Used when a
// building footprint rather than a single point is available.
func DeriveBounds(minX, minY, maxX, maxY float64, r region.Region) ([]TileID, error) {
	if minX > maxX || minY > maxY {
		return nil, eris.Errorf("grid: inverted bounds (%v, %v) - (%v, %v)", minX, minY, maxX, maxY)
	}

	loX := cellIndex(minX, r.GridOriginX, r.CellSizeM)
	hiX := cellIndex(maxX, r.GridOriginX, r.CellSizeM)
	loY := cellIndex(minY, r.GridOriginY, r.CellSizeM)
	hiY := cellIndex(maxY, r.GridOriginY, r.CellSizeM)

	var tiles []TileID
	for ix := loX; ix <= hiX; ix++ {
		for iy := loY; iy <= hiY; iy++ {
			if !addressable(ix, iy, r) {
				return nil, eris.Wrapf(ErrUnsupportedRegion, "region %q cell (%d, %d)", r.Key, ix, iy)
			}
			tiles = append(tiles, TileID(r.Pattern().Format(ix, iy)))
		}
	}
	return tiles, nil
}

func cellIndex(v, origin, cell float64) int {
	return int(math.Floor((v - origin) / cell))
}

// seamDirection reports which neighbor shares a near boundary: -1 for the low
// edge, +1 for the high edge, 0 when the offset is strictly interior. An
// offset exactly at the tolerance still counts as near.
func seamDirection(v, origin float64, idx int, cell, tol float64) int {
	off := v - origin - float64(idx)*cell
	switch {
	case off <= tol:
		return -1
	case cell-off <= tol:
		return 1
	default:
		return 0
	}
}

func addressable(ix, iy int, r region.Region) bool {
	if r.AllowNegativeIndices {
		return true
	}
	return ix >= 0 && iy >= 0
}
