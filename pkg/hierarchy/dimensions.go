package hierarchy

import "github.com/mfeltner/lattice/pkg/graph"

// Sub-layout spacing constants. Padding and header are generous enough
// that the group label never overlaps child boxes.
const (
	groupPadding = 24.0
	groupHeader  = 36.0
	nodeSpacing  = 28.0
	rankSpacing  = 48.0

	collapsedHeight = 64.0
)

// kindDims is the fixed per-kind box size table for child and ungrouped
// node boxes.
var kindDims = map[graph.Kind][2]float64{
	graph.KindDeployment:  {190, 76},
	graph.KindStatefulSet: {190, 76},
	graph.KindDaemonSet:   {190, 76},
	graph.KindCronJob:     {180, 70},
	graph.KindJob:         {170, 66},
	graph.KindPod:         {150, 58},
	graph.KindPodGroup:    {200, 84},
	graph.KindService:     {170, 62},
	graph.KindIngress:     {170, 62},
	graph.KindConfigMap:   {150, 54},
	graph.KindSecret:      {150, 54},
	graph.KindAutoscaler:  {160, 58},
}

// defaultDims applies to kinds missing from the table.
var defaultDims = [2]float64{170, 64}

// Dimensions returns the fixed (width, height) for a node box of the
// given kind.
func Dimensions(k graph.Kind) (w, h float64) {
	d, ok := kindDims[k]
	if !ok {
		d = defaultDims
	}
	return d[0], d[1]
}

// collapsedWidth derives a collapsed group box width from its label. The
// function is a monotonic floor, not a fixed constant, so long group names
// never truncate the header.
func collapsedWidth(label string) float64 {
	const (
		floor   = 200.0
		perRune = 8.5
		chrome  = 88.0 // icon, collapse chevron, inner padding
	)
	w := chrome + perRune*float64(len([]rune(label)))
	if w < floor {
		return floor
	}
	return w
}
