package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/tilefetch/internal/resilience"
)

func newTestTransport() *HTTPTransport {
	return NewHTTPTransport(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
}

func TestHTTPDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("LASF point data"))
	}))
	defer srv.Close()

	tr := newTestTransport()
	body, err := tr.Download(context.Background(), srv.URL+"/tile.laz")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "LASF point data", string(data))
}

func TestHTTPDownload_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sekrit", r.Header.Get("Subscription-Key"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(HTTPOptions{
		Headers: map[string]string{"Subscription-Key": "sekrit"},
	})
	body, err := tr.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	body.Close()
}

func TestHTTPDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tr := newTestTransport()
	_, err := tr.Download(context.Background(), srv.URL+"/missing.laz")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.False(t, resilience.IsTransient(err))
}

func TestHTTPDownload_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := newTestTransport()
	_, err := tr.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.False(t, eris.Is(err, ErrNotFound))
}

func TestHTTPDownload_ForbiddenIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tr := newTestTransport()
	_, err := tr.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.False(t, eris.Is(err, ErrNotFound))
}

func TestHTTPDownload_ConnectionRefusedIsTransient(t *testing.T) {
	tr := newTestTransport()
	_, err := tr.Download(context.Background(), "http://127.0.0.1:1/tile.laz")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
