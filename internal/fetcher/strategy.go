package fetcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrCorrupt marks a downloaded resource that failed integrity or extraction
// checks: bad archive, empty archive, or no file of the expected payload
// type inside.
var ErrCorrupt = eris.New("fetcher: corrupt payload")

// Strategy materializes a downloaded resource into payload files. Regions
// whose payload is not a plain zip/laz can register their own strategy under
// their source extension without touching the fetch sequence.
type Strategy interface {
	// Materialize turns the downloaded resource at srcPath into payload
	// files with extension dataExt under tileDir. Returns the payload file
	// paths, sorted. Failures unwrap to ErrCorrupt.
	Materialize(srcPath, tileDir, dataExt string) ([]string, error)

	// Archive reports whether the source is a container that gets
	// extracted (true) or already the raw payload (false).
	Archive() bool
}

// Registry maps source file extensions to materialization strategies.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns a registry with the built-in strategies: "zip",
// "tar.gz"/"tgz", and raw passthrough for everything else.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{
		"zip":    zipStrategy{},
		"tar.gz": targzStrategy{},
		"tgz":    targzStrategy{},
	}}
}

// Register adds or replaces the strategy for a source extension.
func (r *Registry) Register(sourceExt string, s Strategy) {
	r.strategies[strings.ToLower(sourceExt)] = s
}

// For returns the strategy for a source extension, falling back to raw
// passthrough.
func (r *Registry) For(sourceExt string) Strategy {
	if s, ok := r.strategies[strings.ToLower(sourceExt)]; ok {
		return s
	}
	return rawStrategy{}
}

type zipStrategy struct{}

func (zipStrategy) Archive() bool { return true }

func (zipStrategy) Materialize(srcPath, tileDir, dataExt string) ([]string, error) {
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "zip strategy: create tile dir")
	}
	extracted, err := ExtractZIP(srcPath, tileDir)
	if err != nil {
		return nil, eris.Wrap(ErrCorrupt, err.Error())
	}
	return filterPayload(extracted, dataExt)
}

type targzStrategy struct{}

func (targzStrategy) Archive() bool { return true }

func (targzStrategy) Materialize(srcPath, tileDir, dataExt string) ([]string, error) {
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "targz strategy: create tile dir")
	}
	extracted, err := ExtractTarGz(srcPath, tileDir)
	if err != nil {
		return nil, eris.Wrap(ErrCorrupt, err.Error())
	}
	return filterPayload(extracted, dataExt)
}

// rawStrategy handles sources that are already the payload (e.g. a bare .laz
// or .tif): nothing to extract.
type rawStrategy struct{}

func (rawStrategy) Archive() bool { return false }

func (rawStrategy) Materialize(srcPath, _ /* tileDir */, dataExt string) ([]string, error) {
	if !hasExt(srcPath, dataExt) {
		return nil, eris.Wrapf(ErrCorrupt, "raw payload %s does not match expected type .%s", filepath.Base(srcPath), dataExt)
	}
	return []string{srcPath}, nil
}

// filterPayload keeps extracted files matching the expected payload
// extension. An archive yielding none is corrupt.
func filterPayload(files []string, dataExt string) ([]string, error) {
	var payload []string
	for _, f := range files {
		if hasExt(f, dataExt) {
			payload = append(payload, f)
		}
	}
	if len(payload) == 0 {
		return nil, eris.Wrapf(ErrCorrupt, "archive contains no .%s payload (%d files extracted)", dataExt, len(files))
	}
	sort.Strings(payload)
	return payload, nil
}

func hasExt(path, ext string) bool {
	return strings.HasSuffix(strings.ToLower(path), "."+strings.ToLower(ext))
}
