package graphviz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfeltner/lattice/pkg/solver"
)

// The annotated layout output is DOT text where every node statement
// gained a pos="x,y" attribute (center of the box, origin bottom-left)
// and the graph gained a bb="llx,lly,urx,ury" bounding box. Long
// statements are wrapped with backslash-newline continuations, which are
// stripped before matching.
var (
	bbRe   = regexp.MustCompile(`\bbb="([0-9.]+),([0-9.]+),([0-9.]+),([0-9.]+)"`)
	nodeRe = regexp.MustCompile(`(?m)^\s*("(?:[^"\\]|\\.)*"|[A-Za-z0-9_.:/-]+)\s*\[([^\]]*)\]`)
	posRe  = regexp.MustCompile(`\bpos="([0-9.eE+-]+),([0-9.eE+-]+)"`)
)

// parsePlacement recovers one top-left position per problem box from the
// annotated output. The vertical axis is flipped to the screen convention
// (origin top-left) during conversion.
func parsePlacement(out []byte, p solver.Problem) (solver.Placement, error) {
	text := strings.ReplaceAll(string(out), "\\\n", "")

	bb := bbRe.FindStringSubmatch(text)
	if bb == nil {
		return solver.Placement{}, fmt.Errorf("no bounding box in layout output")
	}
	width, _ := strconv.ParseFloat(bb[3], 64)
	height, _ := strconv.ParseFloat(bb[4], 64)

	dims := make(map[string][2]float64, len(p.Boxes))
	for _, b := range p.Boxes {
		dims[b.ID] = [2]float64{b.Width, b.Height}
	}

	positions := make(map[string]solver.Position, len(p.Boxes))
	for _, m := range nodeRe.FindAllStringSubmatch(text, -1) {
		id := unquote(m[1])
		d, wanted := dims[id]
		if !wanted {
			continue
		}
		pos := posRe.FindStringSubmatch(m[2])
		if pos == nil {
			continue
		}
		cx, _ := strconv.ParseFloat(pos[1], 64)
		cy, _ := strconv.ParseFloat(pos[2], 64)
		positions[id] = solver.Position{
			X: cx - d[0]/2,
			Y: height - cy - d[1]/2,
		}
	}

	for _, b := range p.Boxes {
		if _, ok := positions[b.ID]; !ok {
			return solver.Placement{}, fmt.Errorf("no position for box %q", b.ID)
		}
	}

	return solver.Placement{Positions: positions, Width: width, Height: height}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
