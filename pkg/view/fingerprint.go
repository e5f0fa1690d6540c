package view

import (
	"encoding/json"

	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/grouping"
)

// fingerprintInput is the canonical serialization of everything that can
// change the committed layout. All slices must already be sorted so equal
// states always produce equal bytes.
type fingerprintInput struct {
	Nodes     []string      `json:"nodes"`
	Collapsed []string      `json:"collapsed"`
	Expanded  []string      `json:"expanded"`
	Grouping  grouping.Mode `json:"grouping"`
	Mode      Mode          `json:"mode"`
	Retry     int           `json:"retry"`
}

// Fingerprint computes a stable hash of the working-graph structure and
// the view state. Two calls with the same sorted inputs return the same
// value, so an unchanged fingerprint means the previous layout is still
// valid and only display attributes need patching.
func Fingerprint(nodeIDs, collapsed, expanded []string, g grouping.Mode, m Mode, retry int) string {
	payload, err := json.Marshal(fingerprintInput{
		Nodes:     nodeIDs,
		Collapsed: collapsed,
		Expanded:  expanded,
		Grouping:  g,
		Mode:      m,
		Retry:     retry,
	})
	if err != nil {
		// Marshalling strings and ints cannot fail.
		panic(err)
	}
	return cache.Hash(payload)
}
