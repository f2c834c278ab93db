// Package proj converts geographic WGS84 coordinates into the projected CRS
// a region's grid is defined in. Only the forward direction is needed: the
// geocoder speaks lat/lon, the grids speak UTM meters.
package proj

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Transformer projects WGS84 geographic coordinates into a target CRS.
type Transformer interface {
	// Forward converts latitude/longitude in degrees to projected x/y.
	Forward(lat, lon float64) (x, y float64)

	// EPSG returns the target CRS code.
	EPSG() string
}

// FromEPSG returns a transformer for the given EPSG code. Supported:
// EPSG:4326 (identity, x=lon y=lat), EPSG:258NN (ETRS89 / UTM zone NN) and
// EPSG:326NN (WGS84 / UTM zone NN north).
func FromEPSG(code string) (Transformer, error) {
	norm := strings.ToUpper(strings.TrimSpace(code))
	if norm == "EPSG:4326" {
		return identity{}, nil
	}

	var prefix string
	for _, p := range []string{"EPSG:258", "EPSG:326"} {
		if strings.HasPrefix(norm, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return nil, eris.Errorf("proj: unsupported CRS %q", code)
	}

	zone, err := strconv.Atoi(norm[len(prefix):])
	if err != nil || zone < 1 || zone > 60 {
		return nil, eris.Errorf("proj: invalid UTM zone in %q", code)
	}

	return &utm{zone: zone, code: norm}, nil
}

type identity struct{}

func (identity) Forward(lat, lon float64) (float64, float64) { return lon, lat }
func (identity) EPSG() string                                { return "EPSG:4326" }

// utm implements the forward transverse Mercator projection on the GRS80
// ellipsoid (ETRS89 and WGS84 differ by less than a millimeter here).
type utm struct {
	zone int
	code string
}

const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257222101
	scale      = 0.9996
	falseEast  = 500000.0
)

func (u *utm) EPSG() string { return u.code }

func (u *utm) Forward(lat, lon float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	lam0 := float64(u.zone*6-183) * math.Pi / 180

	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lam - lam0) * cosPhi

	m := meridianArc(phi, e2)

	x := scale*n*(a+
		(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*ep2)*a*a*a*a*a/120) + falseEast

	y := scale * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*a*a*a*a/24+
		(61-58*t+t*t+600*c-330*ep2)*a*a*a*a*a*a/720))

	return x, y
}

// meridianArc is the ellipsoidal distance from the equator to latitude phi.
func meridianArc(phi, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// ZoneString renders the zone part of a UTM code, e.g. "32" for EPSG:25832.
func ZoneString(t Transformer) string {
	if u, ok := t.(*utm); ok {
		return fmt.Sprintf("%d", u.zone)
	}
	return ""
}
