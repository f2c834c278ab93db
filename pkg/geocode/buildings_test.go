package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/tilefetch/internal/model"
)

var augsburg = model.Address{
	Street:      "Katharinengasse",
	HouseNumber: "13",
	City:        "Augsburg",
	ZipCode:     "86150",
	RegionKey:   "BY",
}

func buildingsServer(t *testing.T, footprintWKT string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/address", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Subscription-Key"))
		assert.Equal(t, "Augsburg", r.URL.Query().Get("City"))
		assert.Equal(t, "13", r.URL.Query().Get("HouseNumber"))

		resp := map[string]any{
			"buildings": []map[string]any{{
				"buildingInformation": map[string]any{
					"buildingFootprintGeometry": "https://api.example.com/geometry?GeomId=abc123&GeomType=footprint",
				},
				"addressInformation": map[string]any{
					"addresses": []map[string]any{{"state": "Bayern"}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/geometry", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("GeomId"))
		assert.Equal(t, "footprint", r.URL.Query().Get("GeomType"))
		json.NewEncoder(w).Encode(map[string]string{"geometryAsWKT": footprintWKT})
	})

	return httptest.NewServer(mux)
}

func newBuildingsProvider(srv *httptest.Server) *BuildingsProvider {
	return NewBuildingsProvider(BuildingsOptions{
		BaseURL:           srv.URL + "/address",
		GeometryURL:       srv.URL + "/geometry",
		SubscriptionKey:   "test-key",
		RequestsPerSecond: 1000,
	})
}

func TestBuildingsGeocode(t *testing.T) {
	srv := buildingsServer(t,
		"POLYGON ((10.8978 48.3652, 10.8982 48.3652, 10.8982 48.3655, 10.8978 48.3655, 10.8978 48.3652))")
	defer srv.Close()

	p := newBuildingsProvider(srv)
	require.True(t, p.Available())

	result, err := p.Geocode(context.Background(), augsburg)
	require.NoError(t, err)
	require.True(t, result.Matched)

	assert.Equal(t, "buildings", result.Source)
	assert.Equal(t, "Bayern", result.Region)
	assert.InDelta(t, 10.8980, result.Longitude, 1e-6)
	assert.InDelta(t, 48.36535, result.Latitude, 1e-6)

	require.True(t, result.HasFootprint)
	assert.InDelta(t, 10.8978, result.Footprint.MinLon, 1e-9)
	assert.InDelta(t, 48.3655, result.Footprint.MaxLat, 1e-9)
}

func TestBuildingsGeocode_NoBuildings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"buildings": []any{}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newBuildingsProvider(srv)
	result, err := p.Geocode(context.Background(), augsburg)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestBuildingsGeocode_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newBuildingsProvider(srv)
	_, err := p.Geocode(context.Background(), augsburg)
	assert.Error(t, err)
}

func TestBuildingsGeocode_BadWKT(t *testing.T) {
	srv := buildingsServer(t, "POLYGON ((not valid")
	defer srv.Close()

	p := newBuildingsProvider(srv)
	_, err := p.Geocode(context.Background(), augsburg)
	assert.Error(t, err)
}

func TestBuildingsAvailable(t *testing.T) {
	p := NewBuildingsProvider(BuildingsOptions{BaseURL: "https://api.example.com"})
	assert.False(t, p.Available(), "no subscription key")
}
