package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Status classifies the outcome of one tile retrieval.
type Status int

const (
	// StatusSuccess: payload downloaded, verified and materialized.
	StatusSuccess Status = iota

	// StatusNotFound: upstream has no data for this tile. A coverage gap,
	// not an error.
	StatusNotFound

	// StatusTransientFailure: retries exhausted on a network fault; the run
	// may be repeated.
	StatusTransientFailure

	// StatusCorrupt: the payload failed integrity or extraction checks.
	StatusCorrupt
)

var statusNames = map[Status]string{
	StatusSuccess:          "success",
	StatusNotFound:         "not_found",
	StatusTransientFailure: "transient_failure",
	StatusCorrupt:          "corrupt",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStatus resolves a status from its string name.
func ParseStatus(name string) (Status, error) {
	for st, n := range statusNames {
		if n == name {
			return st, nil
		}
	}
	return 0, eris.Errorf("model: unknown status %q", name)
}

// MarshalJSON renders the status as its string name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a status from its string name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	st, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// DownloadResult records the outcome for one attempted tile. The pipeline's
// terminal artifact is the ordered sequence of these, one per derived tile.
type DownloadResult struct {
	TileID    string   `json:"tile_id"`
	Status    Status   `json:"status"`
	LocalPath string   `json:"local_path,omitempty"`
	Files     []string `json:"files,omitempty"`
	Bytes     int64    `json:"bytes,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// OK reports whether the tile yielded usable payload.
func (r DownloadResult) OK() bool { return r.Status == StatusSuccess }
