package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/geowerk/tilefetch/internal/resilience"
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// Headers are set on every request, e.g. a subscription key header for
	// protected download endpoints. Values are never logged.
	Headers map[string]string

	// RequestsPerSecond throttles requests per host. Zero means the
	// default of 10 req/s.
	RequestsPerSecond float64
	Burst             int
}

// HTTPTransport implements Transport using net/http with per-host rate
// limiting.
type HTTPTransport struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPTransport creates an HTTPTransport with the given options.
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tilefetch/1.0"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPTransport{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *HTTPTransport) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(t.opts.RequestsPerSecond), t.opts.Burst)
		t.limiters[host] = lim
	}
	return lim
}

// Download performs a single GET attempt. Server-side errors and network
// faults come back as transient so the caller's retry policy applies; 404
// and 410 unwrap to ErrNotFound.
func (t *HTTPTransport) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}

	if err := t.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "http: rate limiter wait")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "http: get %s", rawURL), 0)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, eris.Wrapf(ErrNotFound, "http %d from %s", resp.StatusCode, rawURL)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		_ = resp.Body.Close()
		return nil, resilience.NewTransientError(
			eris.Errorf("http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	default:
		_ = resp.Body.Close()
		return nil, eris.Errorf("http: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
}
