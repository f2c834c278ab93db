package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/tilefetch/internal/model"
)

type stubProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     int
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) Geocode(_ context.Context, _ model.Address) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestCascade_FirstProviderWins(t *testing.T) {
	first := &stubProvider{
		name:      "first",
		available: true,
		result:    &Result{Matched: true, Latitude: 48.37, Longitude: 10.90, Source: "first"},
	}
	second := &stubProvider{name: "second", available: true}

	c := NewCascade(first, second)
	result, err := c.Geocode(context.Background(), augsburg)
	require.NoError(t, err)

	assert.Equal(t, "first", result.Source)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "second provider must not be consulted")
}

func TestCascade_FallsThroughOnError(t *testing.T) {
	failing := &stubProvider{
		name:      "failing",
		available: true,
		err:       eris.New("upstream down"),
	}
	fallback := &stubProvider{
		name:      "fallback",
		available: true,
		result:    &Result{Matched: true, Source: "fallback"},
	}

	c := NewCascade(failing, fallback)
	result, err := c.Geocode(context.Background(), augsburg)
	require.NoError(t, err)

	assert.Equal(t, "fallback", result.Source)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestCascade_FallsThroughOnNoMatch(t *testing.T) {
	empty := &stubProvider{
		name:      "empty",
		available: true,
		result:    &Result{Matched: false, Source: "empty"},
	}
	fallback := &stubProvider{
		name:      "fallback",
		available: true,
		result:    &Result{Matched: true, Source: "fallback"},
	}

	c := NewCascade(empty, fallback)
	result, err := c.Geocode(context.Background(), augsburg)
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Source)
}

func TestCascade_SkipsUnavailable(t *testing.T) {
	unavailable := &stubProvider{name: "keyed", available: false}
	fallback := &stubProvider{
		name:      "fallback",
		available: true,
		result:    &Result{Matched: true, Source: "fallback"},
	}

	c := NewCascade(unavailable, fallback)
	_, err := c.Geocode(context.Background(), augsburg)
	require.NoError(t, err)
	assert.Equal(t, 0, unavailable.calls)
}

func TestCascade_Exhausted(t *testing.T) {
	empty := &stubProvider{name: "empty", available: true, result: &Result{Matched: false}}

	c := NewCascade(empty)
	_, err := c.Geocode(context.Background(), augsburg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoMatch))
	assert.Contains(t, err.Error(), "Katharinengasse")
}

func TestCascade_ExhaustedWithErrors(t *testing.T) {
	failing := &stubProvider{name: "failing", available: true, err: eris.New("timeout")}

	c := NewCascade(failing)
	_, err := c.Geocode(context.Background(), augsburg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoMatch))
	assert.Contains(t, err.Error(), "timeout")
}
