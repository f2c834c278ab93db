package model

import "time"

// RunStatus tracks the lifecycle of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one pipeline execution for a single address.
type Run struct {
	ID        string      `json:"id"`
	Address   Address     `json:"address"`
	RegionKey string      `json:"region_key"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary aggregates per-tile outcomes for a run. A run with zero
// succeeded tiles and at least one not_found is "no coverage" rather than a
// failure: the address resolved, but the provider has no data there.
type RunSummary struct {
	Total     int   `json:"total"`
	Succeeded int   `json:"succeeded"`
	Skipped   int   `json:"skipped"`
	NotFound  int   `json:"not_found"`
	Transient int   `json:"transient"`
	Corrupt   int   `json:"corrupt"`
	Bytes     int64 `json:"bytes"`
}

// Failed reports how many tiles ended in a non-success terminal state.
func (s *RunSummary) Failed() int {
	return s.Transient + s.Corrupt
}

// NoCoverage reports whether every tile was absent upstream.
func (s *RunSummary) NoCoverage() bool {
	return s.Total > 0 && s.NotFound == s.Total
}

// Summarize folds per-tile results into a RunSummary.
func Summarize(results []DownloadResult) *RunSummary {
	s := &RunSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Succeeded++
			if r.Skipped {
				s.Skipped++
			}
		case StatusNotFound:
			s.NotFound++
		case StatusTransientFailure:
			s.Transient++
		case StatusCorrupt:
			s.Corrupt++
		}
		s.Bytes += r.Bytes
	}
	return s
}
