// Package geocode resolves free-form street addresses to geographic
// coordinates. The primary provider is a buildings API that also returns the
// building footprint; a Nominatim-style provider serves as keyless fallback.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/model"
)

// ErrNoMatch is returned when no provider can resolve the address to a
// unique location.
var ErrNoMatch = eris.New("geocode: address could not be matched")

// Result holds the geocoding output for an address. Coordinates are WGS84.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string
	Matched   bool

	// MatchedAddress is the provider's normalized rendering, when given.
	MatchedAddress string

	// Region is the administrative region (state) the provider reported,
	// when known. Informational: the pipeline's region key stays
	// authoritative.
	Region string

	// Footprint is the building outline bounding box in WGS84, present
	// when the provider returned footprint geometry.
	Footprint    BBox
	HasFootprint bool
}

// BBox is a lat/lon bounding box.
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Client geocodes addresses.
type Client interface {
	Geocode(ctx context.Context, addr model.Address) (*Result, error)
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, addr model.Address) (*Result, error)
	Available() bool
}

// Cascade tries providers in order until one produces a match. Provider
// errors are logged and the next provider is consulted; only when every
// provider has been exhausted does Geocode fail.
type Cascade struct {
	providers []Provider
}

// NewCascade creates a Cascade over the given providers.
func NewCascade(providers ...Provider) *Cascade {
	return &Cascade{providers: providers}
}

// Geocode implements Client.
func (c *Cascade) Geocode(ctx context.Context, addr model.Address) (*Result, error) {
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, addr)
		if err != nil {
			zap.L().Debug("geocode: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
	}

	if lastErr != nil {
		return nil, eris.Wrapf(ErrNoMatch, "%s: all providers failed, last: %v", addr.String(), lastErr)
	}
	return nil, eris.Wrapf(ErrNoMatch, "%s", addr.String())
}
