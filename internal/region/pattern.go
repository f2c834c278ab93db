package region

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Pattern is a compiled tile naming pattern. A pattern is literal text with
// one {x} and one {y} placeholder for the grid cell indices, each optionally
// zero-padded to a fixed width ("{x:4}"). Example: "32_{x}_{y}" formats cell
// (680, 5362) as "32_680_5362".
type Pattern struct {
	raw      string
	segments []segment
	re       *regexp.Regexp
}

type segment struct {
	literal string
	axis    byte // 'x' or 'y', 0 for literal segments
	width   int
}

var placeholderRe = regexp.MustCompile(`\{([xy])(?::(\d+))?\}`)

// CompilePattern parses and validates a tile naming pattern.
func CompilePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, eris.New("pattern: empty")
	}

	var segs []segment
	seen := map[byte]bool{}
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(raw, -1) {
		if loc[0] > last {
			segs = append(segs, segment{literal: raw[last:loc[0]]})
		}
		axis := raw[loc[2]]
		if seen[axis] {
			return nil, eris.Errorf("pattern %q: duplicate {%c} placeholder", raw, axis)
		}
		seen[axis] = true

		width := 0
		if loc[4] >= 0 {
			w, err := strconv.Atoi(raw[loc[4]:loc[5]])
			if err != nil || w < 1 || w > 12 {
				return nil, eris.Errorf("pattern %q: invalid width in {%c} placeholder", raw, axis)
			}
			width = w
		}
		segs = append(segs, segment{axis: axis, width: width})
		last = loc[1]
	}
	if last < len(raw) {
		segs = append(segs, segment{literal: raw[last:]})
	}

	if !seen['x'] || !seen['y'] {
		return nil, eris.Errorf("pattern %q: must contain both {x} and {y} placeholders", raw)
	}

	// Two placeholders with no literal between them cannot be parsed back
	// unambiguously.
	for i := 1; i < len(segs); i++ {
		if segs[i].axis != 0 && segs[i-1].axis != 0 {
			return nil, eris.Errorf("pattern %q: adjacent placeholders are ambiguous", raw)
		}
	}

	p := &Pattern{raw: raw, segments: segs}
	p.re = p.compileRegexp()

	// Round-trip check: formatting probe indices and parsing them back must
	// recover the same values.
	const px, py = 680, 5362
	name := p.Format(px, py)
	gx, gy, ok := p.Parse(name)
	if !ok || gx != px || gy != py {
		return nil, eris.Errorf("pattern %q: round-trip check failed (formatted %q)", raw, name)
	}

	return p, nil
}

func (p *Pattern) compileRegexp() *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`^`)
	for _, s := range p.segments {
		if s.axis == 0 {
			b.WriteString(regexp.QuoteMeta(s.literal))
			continue
		}
		if s.width > 0 {
			fmt.Fprintf(&b, `(-?\d{%d,})`, s.width)
		} else {
			b.WriteString(`(-?\d+)`)
		}
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}

// String returns the raw pattern text.
func (p *Pattern) String() string { return p.raw }

// Format renders the tile name for the given cell indices.
func (p *Pattern) Format(ix, iy int) string {
	var b strings.Builder
	for _, s := range p.segments {
		switch {
		case s.axis == 0:
			b.WriteString(s.literal)
		case s.width > 0:
			fmt.Fprintf(&b, "%0*d", s.width, axisValue(s.axis, ix, iy))
		default:
			fmt.Fprintf(&b, "%d", axisValue(s.axis, ix, iy))
		}
	}
	return b.String()
}

// Parse recovers the cell indices from a formatted tile name.
func (p *Pattern) Parse(name string) (ix, iy int, ok bool) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	gi := 1
	for _, s := range p.segments {
		if s.axis == 0 {
			continue
		}
		v, err := strconv.Atoi(m[gi])
		if err != nil {
			return 0, 0, false
		}
		if s.axis == 'x' {
			ix = v
		} else {
			iy = v
		}
		gi++
	}
	return ix, iy, true
}

func axisValue(axis byte, ix, iy int) int {
	if axis == 'x' {
		return ix
	}
	return iy
}
