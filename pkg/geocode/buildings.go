package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geowerk/tilefetch/internal/model"
)

// BuildingsOptions configures the buildings-API provider.
type BuildingsOptions struct {
	// BaseURL is the address lookup endpoint.
	BaseURL string

	// GeometryURL is the footprint geometry endpoint.
	GeometryURL string

	// SubscriptionKey authenticates both endpoints. Sent as a request
	// header, never logged.
	SubscriptionKey string

	Timeout           time.Duration
	RequestsPerSecond float64
}

// BuildingsProvider geocodes through a commercial buildings API that matches
// an address to a building record with footprint geometry. The footprint is
// what makes this provider preferable: a building can straddle a tile seam,
// and the footprint bounds capture that where a point cannot.
type BuildingsProvider struct {
	opts    BuildingsOptions
	client  *http.Client
	limiter *rate.Limiter
}

// NewBuildingsProvider creates a BuildingsProvider.
func NewBuildingsProvider(opts BuildingsOptions) *BuildingsProvider {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	return &BuildingsProvider{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// Name implements Provider.
func (p *BuildingsProvider) Name() string { return "buildings" }

// Available implements Provider: the API needs a subscription key.
func (p *BuildingsProvider) Available() bool {
	return p.opts.SubscriptionKey != "" && p.opts.BaseURL != ""
}

type buildingsResponse struct {
	Buildings []struct {
		BuildingInformation struct {
			BuildingFootprintGeometry string `json:"buildingFootprintGeometry"`
		} `json:"buildingInformation"`
		AddressInformation struct {
			Addresses []struct {
				State string `json:"state"`
			} `json:"addresses"`
		} `json:"addressInformation"`
	} `json:"buildings"`
}

type geometryResponse struct {
	GeometryAsWKT string `json:"geometryAsWKT"`
}

// Geocode implements Provider.
func (p *BuildingsProvider) Geocode(ctx context.Context, addr model.Address) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "buildings: rate limit")
	}

	params := url.Values{
		"City":        {addr.City},
		"Street":      {addr.Street},
		"HouseNumber": {addr.HouseNumber},
		"ZipCode":     {addr.ZipCode},
		"PageNumber":  {"1"},
	}

	var br buildingsResponse
	if err := p.getJSON(ctx, p.opts.BaseURL+"?"+params.Encode(), &br); err != nil {
		return nil, err
	}

	if len(br.Buildings) == 0 {
		return &Result{Matched: false, Source: p.Name()}, nil
	}

	building := br.Buildings[0]
	result := &Result{Source: p.Name()}
	if addrs := building.AddressInformation.Addresses; len(addrs) > 0 {
		result.Region = addrs[0].State
	}

	footprintURL := building.BuildingInformation.BuildingFootprintGeometry
	if footprintURL == "" {
		return &Result{Matched: false, Source: p.Name()}, nil
	}

	geomWKT, err := p.fetchFootprintWKT(ctx, footprintURL)
	if err != nil {
		return nil, err
	}

	g, err := wkt.Unmarshal(geomWKT)
	if err != nil {
		return nil, eris.Wrap(err, "buildings: parse footprint WKT")
	}

	bounds := g.Bounds()
	result.Footprint = BBox{
		MinLon: bounds.Min(0), MinLat: bounds.Min(1),
		MaxLon: bounds.Max(0), MaxLat: bounds.Max(1),
	}
	result.HasFootprint = true
	result.Longitude = (result.Footprint.MinLon + result.Footprint.MaxLon) / 2
	result.Latitude = (result.Footprint.MinLat + result.Footprint.MaxLat) / 2
	result.Matched = true

	zap.L().Debug("buildings: matched address",
		zap.String("address", addr.String()),
		zap.String("state", result.Region),
	)
	return result, nil
}

// fetchFootprintWKT follows the footprint geometry URL returned by the
// address lookup. The URL carries GeomId/GeomType query parameters that the
// geometry endpoint expects.
func (p *BuildingsProvider) fetchFootprintWKT(ctx context.Context, footprintURL string) (string, error) {
	parsed, err := url.Parse(footprintURL)
	if err != nil {
		return "", eris.Wrap(err, "buildings: parse footprint url")
	}
	q := parsed.Query()
	geomID := q.Get("GeomId")
	geomType := q.Get("GeomType")
	if geomID == "" || geomType == "" {
		return "", eris.New("buildings: footprint url missing GeomId or GeomType")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "buildings: rate limit")
	}

	params := url.Values{"GeomId": {geomID}, "GeomType": {geomType}}
	var gr geometryResponse
	if err := p.getJSON(ctx, p.opts.GeometryURL+"?"+params.Encode(), &gr); err != nil {
		return "", err
	}
	if gr.GeometryAsWKT == "" {
		return "", eris.New("buildings: geometry response has no WKT")
	}
	return gr.GeometryAsWKT, nil
}

func (p *BuildingsProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "buildings: create request")
	}
	req.Header.Set("Subscription-Key", p.opts.SubscriptionKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "buildings: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("buildings: status %d from api", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "buildings: read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "buildings: parse response")
	}
	return nil
}
