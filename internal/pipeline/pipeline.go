// Package pipeline sequences the address-to-tiles flow: geocode the address,
// project into the region's CRS, derive the covering tile set, then fetch
// every tile. Tile failures are aggregated per tile, never fatal; only the
// stages before fetching can fail a run.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geowerk/tilefetch/internal/grid"
	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/region"
	"github.com/geowerk/tilefetch/internal/store"
)

// Fetcher retrieves one tile for a region. Outcomes are encoded in the
// result, not in an error.
type Fetcher interface {
	Fetch(ctx context.Context, tileID string, r region.Region) model.DownloadResult
}

// Options tunes pipeline execution.
type Options struct {
	// Concurrency bounds parallel tile downloads. Defaults to 4.
	Concurrency int

	// PointOnly derives tiles from the geocoded point even when the
	// geocoder returned a footprint.
	PointOnly bool
}

// Pipeline wires the stages together.
type Pipeline struct {
	regions  region.Map
	resolver *Resolver
	fetcher  Fetcher
	store    store.Store
	opts     Options
}

// New creates a Pipeline. The store may be nil, in which case no manifest is
// written.
func New(regions region.Map, resolver *Resolver, fetcher Fetcher, st store.Store, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Pipeline{
		regions:  regions,
		resolver: resolver,
		fetcher:  fetcher,
		store:    st,
		opts:     opts,
	}
}

// Run executes the pipeline for a single address. The returned report is
// non-nil whenever tile derivation succeeded, even if every download failed:
// partial failure is a reporting concern, not a run failure.
func (p *Pipeline) Run(ctx context.Context, addr model.Address) (*RunReport, error) {
	if err := addr.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline")
	}

	r, err := p.regions.Lookup(addr.RegionKey)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline")
	}

	log := zap.L().With(
		zap.String("address", addr.String()),
		zap.String("region", r.Key),
	)
	log.Info("pipeline: starting run")

	runID := p.createRun(ctx, addr, log)

	loc, err := p.resolver.Resolve(ctx, addr, r)
	if err != nil {
		p.completeRun(ctx, runID, model.RunStatusFailed, nil, log)
		return nil, eris.Wrap(err, "pipeline")
	}

	// The address's region key stays authoritative over whatever the
	// geocoder reports.
	if loc.ProviderRegion != "" && loc.ProviderRegion != r.Name {
		log.Warn("pipeline: geocoder reported a different region",
			zap.String("reported", loc.ProviderRegion),
		)
	}

	tiles, err := p.deriveTiles(loc, r)
	if err != nil {
		p.completeRun(ctx, runID, model.RunStatusFailed, nil, log)
		return nil, eris.Wrap(err, "pipeline")
	}
	log.Info("pipeline: tiles derived",
		zap.Int("count", len(tiles)),
		zap.String("primary", string(tiles[0])),
	)

	results := p.fetchAll(ctx, runID, tiles, r, log)

	summary := model.Summarize(results)
	p.completeRun(ctx, runID, model.RunStatusComplete, summary, log)

	log.Info("pipeline: run complete",
		zap.Int("tiles", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("not_found", summary.NotFound),
		zap.Int("failed", summary.Failed()),
		zap.Int64("bytes", summary.Bytes),
	)

	return &RunReport{
		RunID:    runID,
		Address:  addr,
		Region:   r,
		Location: loc,
		Results:  results,
		Summary:  summary,
	}, nil
}

// deriveTiles picks the derivation mode: footprint bounds when available,
// point with seam tolerance otherwise.
func (p *Pipeline) deriveTiles(loc *Location, r region.Region) ([]grid.TileID, error) {
	if loc.Bounds != nil && !p.opts.PointOnly {
		return grid.DeriveBounds(loc.Bounds.MinX, loc.Bounds.MinY, loc.Bounds.MaxX, loc.Bounds.MaxY, r)
	}
	return grid.Derive(loc.X, loc.Y, r)
}

// fetchAll downloads tiles concurrently. Result order matches tile order
// regardless of completion order.
func (p *Pipeline) fetchAll(ctx context.Context, runID string, tiles []grid.TileID, r region.Region, log *zap.Logger) []model.DownloadResult {
	results := make([]model.DownloadResult, len(tiles))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, id := range tiles {
		i, id := i, id
		g.Go(func() error {
			results[i] = p.fetcher.Fetch(gCtx, string(id), r)
			p.recordTile(ctx, runID, r.Key, results[i], log)
			return nil
		})
	}

	// Fetch outcomes live in the results; no goroutine returns an error.
	_ = g.Wait()
	return results
}

// Manifest writes are best effort: a broken manifest store must not abort a
// download run.

func (p *Pipeline) createRun(ctx context.Context, addr model.Address, log *zap.Logger) string {
	if p.store == nil {
		return ""
	}
	run, err := p.store.CreateRun(ctx, addr)
	if err != nil {
		log.Warn("pipeline: failed to create run record", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *Pipeline) completeRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.CompleteRun(ctx, runID, status, summary); err != nil {
		log.Warn("pipeline: failed to complete run record", zap.Error(err))
	}
}

func (p *Pipeline) recordTile(ctx context.Context, runID, regionKey string, result model.DownloadResult, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.RecordTile(ctx, runID, regionKey, result); err != nil {
		log.Warn("pipeline: failed to record tile",
			zap.String("tile", result.TileID),
			zap.Error(err),
		)
	}
}
