package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressString(t *testing.T) {
	a := Address{Street: "Katharinengasse", HouseNumber: "13", City: "Augsburg", ZipCode: "86150", RegionKey: "BY"}
	assert.Equal(t, "Katharinengasse 13, 86150 Augsburg", a.String())
}

func TestAddressValidate(t *testing.T) {
	valid := Address{Street: "Kiefernweg", HouseNumber: "19", City: "Ludwigsfelde", ZipCode: "14974", RegionKey: "BB"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mod  func(a *Address)
	}{
		{"no street", func(a *Address) { a.Street = "" }},
		{"no city", func(a *Address) { a.City = "" }},
		{"no region", func(a *Address) { a.RegionKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mod(&a)
			assert.Error(t, a.Validate())
		})
	}
}

func TestAddressSlug(t *testing.T) {
	tests := []struct {
		addr Address
		want string
	}{
		{
			Address{Street: "Katharinengasse", HouseNumber: "13", City: "Augsburg", ZipCode: "86150"},
			"katharinengasse-13-86150-augsburg",
		},
		{
			Address{Street: "Engadiner Str", HouseNumber: "32", City: "München", ZipCode: "81475"},
			"engadiner-str-32-81475-muenchen",
		},
		{
			Address{Street: "Chausseestraße", HouseNumber: "109", City: "Berlin", ZipCode: "10115"},
			"chausseestrasse-109-10115-berlin",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.addr.Slug())
	}
}
