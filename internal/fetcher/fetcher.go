// Package fetcher retrieves remote tile resources over HTTP or FTP,
// verifies the payload, and materializes it through per-file-type
// extraction strategies.
package fetcher

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrNotFound marks an upstream "no content" response: the provider has no
// file for the requested tile. Callers classify this as a coverage gap, not
// a failure.
var ErrNotFound = eris.New("fetcher: resource not found")

// Transport downloads a single URL. Implementations perform one attempt;
// retry policy lives in the TileFetcher.
type Transport interface {
	// Download fetches the URL and returns the response body. Errors that
	// are safe to retry unwrap to resilience.TransientError; a missing
	// remote resource unwraps to ErrNotFound.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
