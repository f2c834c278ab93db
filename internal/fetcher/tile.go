package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/region"
	"github.com/geowerk/tilefetch/internal/resilience"
)

// TileFetcher retrieves one tile's remote resource, verifies it, and
// materializes the payload. It never returns an error for per-tile
// conditions; the outcome is classified in the DownloadResult.
type TileFetcher struct {
	transports map[string]Transport
	strategies *Registry
	retry      resilience.RetryConfig
	baseDir    string
}

// TileOption configures the TileFetcher.
type TileOption func(*TileFetcher)

// WithTransport installs a transport for a URL scheme.
func WithTransport(scheme string, t Transport) TileOption {
	return func(f *TileFetcher) { f.transports[scheme] = t }
}

// WithStrategy registers a materialization strategy for a source extension.
func WithStrategy(sourceExt string, s Strategy) TileOption {
	return func(f *TileFetcher) { f.strategies.Register(sourceExt, s) }
}

// WithRetry overrides the download retry policy.
func WithRetry(cfg resilience.RetryConfig) TileOption {
	return func(f *TileFetcher) { f.retry = cfg }
}

// NewTileFetcher creates a TileFetcher writing under baseDir. By default it
// speaks HTTP(S) and anonymous FTP and knows the zip/tar.gz/raw strategies.
func NewTileFetcher(baseDir string, httpOpts HTTPOptions, opts ...TileOption) *TileFetcher {
	httpTransport := NewHTTPTransport(httpOpts)
	f := &TileFetcher{
		transports: map[string]Transport{
			"http":  httpTransport,
			"https": httpTransport,
			"ftp":   NewFTPTransport(FTPOptions{Timeout: httpOpts.Timeout}),
		},
		strategies: NewRegistry(),
		retry:      resilience.DefaultRetryConfig(),
		baseDir:    baseDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and materializes one tile. Paths are deterministic from
// the tile id, so a rerun finds and reuses already verified payloads.
func (f *TileFetcher) Fetch(ctx context.Context, tileID string, r region.Region) model.DownloadResult {
	res := model.DownloadResult{TileID: tileID}
	log := zap.L().With(zap.String("region", r.Key), zap.String("tile", tileID))

	regionDir := filepath.Join(f.baseDir, r.Key)
	srcPath := filepath.Join(regionDir, r.TileFileName(tileID))
	tileDir := filepath.Join(regionDir, tileID)
	strategy := f.strategies.For(r.SourceExt)

	if files, ok := f.existingPayload(strategy, srcPath, tileDir, r); ok {
		log.Info("tile already downloaded, skipping")
		res.Status = model.StatusSuccess
		res.Skipped = true
		res.Files = files
		res.LocalPath = files[0]
		return res
	}

	rawURL := r.URL(tileID)
	transport, err := f.transportFor(rawURL)
	if err != nil {
		res.Status = model.StatusTransientFailure
		res.Error = err.Error()
		return res
	}

	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		res.Status = model.StatusTransientFailure
		res.Error = eris.Wrap(err, "create region dir").Error()
		return res
	}

	// Download to a partial file first so an aborted transfer can never be
	// mistaken for a valid resource on rerun.
	partPath := srcPath + ".part"
	n, err := f.downloadWithRetry(ctx, transport, rawURL, partPath)
	if err != nil {
		_ = os.Remove(partPath)
		if eris.Is(err, ErrNotFound) {
			log.Info("no coverage for tile", zap.String("url", rawURL))
			res.Status = model.StatusNotFound
			return res
		}
		log.Warn("tile download failed", zap.String("url", rawURL), zap.Error(err))
		res.Status = model.StatusTransientFailure
		res.Error = err.Error()
		return res
	}
	res.Bytes = n

	if err := VerifyPayload(partPath, r.SourceExt); err != nil {
		_ = os.Remove(partPath)
		if eris.Is(err, ErrNotFound) {
			log.Info("upstream placeholder response, treating as no coverage")
			res.Status = model.StatusNotFound
			return res
		}
		log.Warn("payload verification failed", zap.Error(err))
		res.Status = model.StatusCorrupt
		res.Error = err.Error()
		return res
	}

	if err := os.Rename(partPath, srcPath); err != nil {
		_ = os.Remove(partPath)
		res.Status = model.StatusTransientFailure
		res.Error = eris.Wrap(err, "finalize download").Error()
		return res
	}

	files, err := strategy.Materialize(srcPath, tileDir, r.DataExt)
	if err != nil {
		// Partial extraction artifacts must not survive a failed tile.
		_ = os.RemoveAll(tileDir)
		_ = os.Remove(srcPath)
		log.Warn("payload materialization failed", zap.Error(err))
		res.Status = model.StatusCorrupt
		res.Error = err.Error()
		return res
	}

	log.Info("tile downloaded",
		zap.Int64("bytes", n),
		zap.Int("payload_files", len(files)),
	)
	res.Status = model.StatusSuccess
	res.Files = files
	res.LocalPath = files[0]
	return res
}

// existingPayload reports already materialized payload for the tile.
func (f *TileFetcher) existingPayload(s Strategy, srcPath, tileDir string, r region.Region) ([]string, bool) {
	if s.Archive() {
		entries, err := os.ReadDir(tileDir)
		if err != nil {
			return nil, false
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && hasExt(e.Name(), r.DataExt) {
				files = append(files, filepath.Join(tileDir, e.Name()))
			}
		}
		if len(files) == 0 {
			return nil, false
		}
		sort.Strings(files)
		return files, true
	}

	if _, err := os.Stat(srcPath); err != nil {
		return nil, false
	}
	if err := VerifyPayload(srcPath, r.SourceExt); err != nil {
		return nil, false
	}
	return []string{srcPath}, true
}

func (f *TileFetcher) transportFor(rawURL string) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %s", rawURL)
	}
	t, ok := f.transports[u.Scheme]
	if !ok {
		return nil, eris.Errorf("no transport for scheme %q", u.Scheme)
	}
	return t, nil
}

// downloadWithRetry streams the URL to path, retrying transient faults per
// the configured policy. Exhaustion surfaces the last transient error.
func (f *TileFetcher) downloadWithRetry(ctx context.Context, t Transport, rawURL, path string) (int64, error) {
	var written int64
	cfg := f.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("tile download")
	}

	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		body, err := t.Download(ctx, rawURL)
		if err != nil {
			return err
		}
		defer body.Close() //nolint:errcheck

		out, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create partial file")
		}

		written, err = io.Copy(out, body)
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
		if err != nil {
			// A broken transfer is worth another attempt.
			return resilience.NewTransientError(eris.Wrap(err, "stream body"), 0)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
