package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Contains(t, r.URL.Query().Get("q"), "Katharinengasse")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		json.NewEncoder(w).Encode([]map[string]string{{
			"lat":          "48.3655",
			"lon":          "10.8980",
			"display_name": "Katharinengasse 13, 86150 Augsburg, Deutschland",
		}})
	}))
	defer srv.Close()

	p := NewNominatimProvider(NominatimOptions{BaseURL: srv.URL})
	result, err := p.Geocode(context.Background(), augsburg)
	require.NoError(t, err)

	require.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
	assert.InDelta(t, 48.3655, result.Latitude, 1e-9)
	assert.InDelta(t, 10.8980, result.Longitude, 1e-9)
	assert.Contains(t, result.MatchedAddress, "Augsburg")
	assert.False(t, result.HasFootprint)
}

func TestNominatimGeocode_NoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	p := NewNominatimProvider(NominatimOptions{BaseURL: srv.URL})
	result, err := p.Geocode(context.Background(), augsburg)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestNominatimGeocode_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNominatimProvider(NominatimOptions{BaseURL: srv.URL})
	_, err := p.Geocode(context.Background(), augsburg)
	assert.Error(t, err)
}
