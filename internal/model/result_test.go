package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "not_found", StatusNotFound.String())
	assert.Equal(t, "transient_failure", StatusTransientFailure.String())
	assert.Equal(t, "corrupt", StatusCorrupt.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(DownloadResult{TileID: "32_680_5362", Status: StatusNotFound})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"not_found"`)

	var r DownloadResult
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, StatusNotFound, r.Status)

	err = json.Unmarshal([]byte(`{"status":"nonsense"}`), &r)
	assert.Error(t, err)
}

func TestResultOK(t *testing.T) {
	assert.True(t, DownloadResult{Status: StatusSuccess}.OK())
	assert.False(t, DownloadResult{Status: StatusCorrupt}.OK())
	assert.False(t, DownloadResult{Status: StatusNotFound}.OK())
}
