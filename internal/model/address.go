// Package model holds the data types shared across the tile retrieval
// pipeline: addresses, coordinates, and per-tile download results.
package model

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Address is the immutable pipeline input. RegionKey selects the region
// configuration and must resolve to exactly one region.
type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	City        string `json:"city"`
	ZipCode     string `json:"zip_code"`
	RegionKey   string `json:"region_key"`
}

// String renders the address in postal order.
func (a Address) String() string {
	return fmt.Sprintf("%s %s, %s %s", a.Street, a.HouseNumber, a.ZipCode, a.City)
}

// Validate checks that the fields needed for geocoding are present.
func (a Address) Validate() error {
	switch {
	case a.Street == "":
		return fmt.Errorf("address: street is required")
	case a.City == "":
		return fmt.Errorf("address: city is required")
	case a.RegionKey == "":
		return fmt.Errorf("address: region_key is required")
	}
	return nil
}

var umlauts = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
)

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slug returns a filesystem-safe identifier for the address, used to name
// per-run output directories. German umlauts transliterate the conventional
// way; remaining diacritics are stripped.
func (a Address) Slug() string {
	s := fmt.Sprintf("%s-%s-%s-%s", a.Street, a.HouseNumber, a.ZipCode, a.City)
	s = umlauts.Replace(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Coordinate is a position in the coordinate reference system of the active
// region's grid.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
