// Package store persists the download manifest: one row per pipeline run and
// one row per tile attempted in that run. The manifest backs the status
// command and lets reruns be audited after the fact.
package store

import (
	"context"
	"time"

	"github.com/geowerk/tilefetch/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	RegionKey string          `json:"region_key,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// TileRecord is one tile outcome within a run.
type TileRecord struct {
	ID           string       `json:"id"`
	RunID        string       `json:"run_id"`
	RegionKey    string       `json:"region_key"`
	TileID       string       `json:"tile_id"`
	Status       model.Status `json:"status"`
	LocalPath    string       `json:"local_path,omitempty"`
	Bytes        int64        `json:"bytes"`
	Skipped      bool         `json:"skipped"`
	Error        string       `json:"error,omitempty"`
	DownloadedAt time.Time    `json:"downloaded_at"`
}

// Store defines the persistence interface for the download manifest.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, addr model.Address) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Tiles
	RecordTile(ctx context.Context, runID, regionKey string, result model.DownloadResult) error
	ListTiles(ctx context.Context, runID string) ([]TileRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
