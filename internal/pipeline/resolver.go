package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/proj"
	"github.com/geowerk/tilefetch/internal/region"
	"github.com/geowerk/tilefetch/pkg/geocode"
)

// Location is a geocoded address projected into a region's CRS. The embedded
// Coordinate is the representative point in region coordinates (meters for
// projected CRS).
type Location struct {
	model.Coordinate

	// Bounds is the projected building footprint bounding box, when the
	// geocoder returned footprint geometry.
	Bounds *Bounds

	Source         string
	MatchedAddress string

	// ProviderRegion is the administrative region the geocoder reported.
	// Informational only: the address's region key stays authoritative.
	ProviderRegion string
}

// Bounds is an axis-aligned box in region coordinates.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Resolver turns an address into a Location in a region's CRS. Geocoding
// yields WGS84; the region's EPSG code selects the projection.
type Resolver struct {
	geocoder geocode.Client
}

// NewResolver creates a Resolver over the given geocoding client.
func NewResolver(geocoder geocode.Client) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Resolve geocodes the address and projects it into r's CRS. A geocoder miss
// surfaces as geocode.ErrNoMatch; an unsupported EPSG code fails outright.
func (rv *Resolver) Resolve(ctx context.Context, addr model.Address, r region.Region) (*Location, error) {
	result, err := rv.geocoder.Geocode(ctx, addr)
	if err != nil {
		return nil, eris.Wrap(err, "resolve")
	}

	tr, err := proj.FromEPSG(r.EPSG)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: region %q", r.Key)
	}

	x, y := tr.Forward(result.Latitude, result.Longitude)
	loc := &Location{
		Coordinate:     model.Coordinate{X: x, Y: y},
		Source:         result.Source,
		MatchedAddress: result.MatchedAddress,
		ProviderRegion: result.Region,
	}

	if result.HasFootprint {
		loc.Bounds = projectBBox(tr, result.Footprint)
	}

	zap.L().Debug("resolve: address located",
		zap.String("address", addr.String()),
		zap.String("source", result.Source),
		zap.String("epsg", tr.EPSG()),
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.Bool("footprint", loc.Bounds != nil),
	)
	return loc, nil
}

// projectBBox projects a lat/lon box corner by corner. The projected box is
// the envelope of the four corners; transverse Mercator bends parallels, so a
// two-corner projection would undershoot.
func projectBBox(tr proj.Transformer, bb geocode.BBox) *Bounds {
	corners := [4][2]float64{
		{bb.MinLat, bb.MinLon},
		{bb.MinLat, bb.MaxLon},
		{bb.MaxLat, bb.MinLon},
		{bb.MaxLat, bb.MaxLon},
	}

	var b Bounds
	for i, c := range corners {
		x, y := tr.Forward(c[0], c[1])
		if i == 0 {
			b = Bounds{MinX: x, MinY: y, MaxX: x, MaxY: y}
			continue
		}
		if x < b.MinX {
			b.MinX = x
		}
		if x > b.MaxX {
			b.MaxX = x
		}
		if y < b.MinY {
			b.MinY = y
		}
		if y > b.MaxY {
			b.MaxY = y
		}
	}
	return &b
}
