package pipeline

import (
	"fmt"
	"strings"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/region"
)

// RunReport is the terminal artifact of a run: one result per derived tile,
// in derivation order (primary tile first), plus the aggregate summary.
type RunReport struct {
	RunID    string                 `json:"run_id,omitempty"`
	Address  model.Address          `json:"address"`
	Region   region.Region          `json:"-"`
	Location *Location              `json:"-"`
	Results  []model.DownloadResult `json:"results"`
	Summary  *model.RunSummary      `json:"summary"`
}

// Render formats the report for terminal output.
func (rep *RunReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Address:  %s\n", rep.Address.String())
	fmt.Fprintf(&b, "Region:   %s (%s, %s)\n", rep.Region.Name, rep.Region.Key, rep.Region.EPSG)
	if rep.Location != nil {
		fmt.Fprintf(&b, "Location: %.1f, %.1f (via %s)\n", rep.Location.X, rep.Location.Y, rep.Location.Source)
	}
	b.WriteString("\n")

	for _, res := range rep.Results {
		b.WriteString("  " + renderResult(res) + "\n")
	}

	b.WriteString("\n")
	s := rep.Summary
	fmt.Fprintf(&b, "%d tile(s): %d ok (%d cached), %d no coverage, %d failed",
		s.Total, s.Succeeded, s.Skipped, s.NotFound, s.Failed())
	if s.Bytes > 0 {
		fmt.Fprintf(&b, ", %s downloaded", humanBytes(s.Bytes))
	}
	b.WriteString("\n")

	if s.NoCoverage() {
		b.WriteString("No data available for this location.\n")
	}
	return b.String()
}

func renderResult(res model.DownloadResult) string {
	switch res.Status {
	case model.StatusSuccess:
		if res.Skipped {
			return fmt.Sprintf("%-16s ok (already present) %s", res.TileID, res.LocalPath)
		}
		return fmt.Sprintf("%-16s ok %s (%s)", res.TileID, res.LocalPath, humanBytes(res.Bytes))
	case model.StatusNotFound:
		return fmt.Sprintf("%-16s no coverage", res.TileID)
	default:
		return fmt.Sprintf("%-16s %s: %s", res.TileID, res.Status, res.Error)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
