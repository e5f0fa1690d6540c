// Package view owns the per-view layout orchestration: the
// collapse/expansion state machine, structure fingerprinting, and the
// version-ticketed scheduler that keeps exactly one committed layout per
// view while stale asynchronous results are discarded.
//
// All mutable layout state (collapsed groups, expanded aggregates,
// version counter, committed positions) lives in explicit per-view
// objects, never in package globals, so concurrent views (split-screen)
// stay independent.
package view

import (
	"slices"

	"github.com/mfeltner/lattice/pkg/grouping"
)

// Mode selects how much of the working graph is shown.
type Mode string

// View modes.
const (
	ModeFull    Mode = "full"
	ModeCompact Mode = "compact" // hides configuration objects
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool { return m == ModeFull || m == ModeCompact }

// State tracks which groups are collapsed and which aggregates have been
// expanded, plus the grouping and view modes. It is a pure state machine:
// transitions never trigger layout themselves - the owning View re-derives
// the working graph afterwards.
//
// State is not safe for concurrent use; the owning View serializes
// access.
type State struct {
	collapsed map[string]struct{}
	expanded  map[string]struct{}
	grouping  grouping.Mode
	mode      Mode
	retry     int
}

// NewState creates a state machine with empty collapse and expansion
// sets. There is no terminal state - the machine lives for the lifetime
// of the view.
func NewState(g grouping.Mode) *State {
	return &State{
		collapsed: make(map[string]struct{}),
		expanded:  make(map[string]struct{}),
		grouping:  g,
		mode:      ModeFull,
	}
}

// ToggleGroupCollapse flips the collapse state of a group and reports
// whether the group is now collapsed. Applying the toggle twice restores
// the original state.
func (s *State) ToggleGroupCollapse(groupID string) bool {
	if _, ok := s.collapsed[groupID]; ok {
		delete(s.collapsed, groupID)
		return false
	}
	s.collapsed[groupID] = struct{}{}
	return true
}

// ExpandAggregate marks an aggregate node for materialization.
func (s *State) ExpandAggregate(nodeID string) {
	s.expanded[nodeID] = struct{}{}
}

// CollapseAggregate reverses an aggregate expansion. The member list is
// still available from the snapshot, so this is safely reversible -
// unlike group collapse, which only hides, never destroys, structure.
func (s *State) CollapseAggregate(nodeID string) {
	delete(s.expanded, nodeID)
}

// CollapsedGroups returns the collapsed group IDs in sorted order.
func (s *State) CollapsedGroups() []string { return sortedKeys(s.collapsed) }

// ExpandedAggregates returns the expanded aggregate IDs in sorted order.
func (s *State) ExpandedAggregates() []string { return sortedKeys(s.expanded) }

// CollapsedSet returns a copy of the collapsed-group set.
func (s *State) CollapsedSet() map[string]struct{} { return copySet(s.collapsed) }

// ExpandedSet returns a copy of the expanded-aggregate set.
func (s *State) ExpandedSet() map[string]struct{} { return copySet(s.expanded) }

// GroupingMode returns the active grouping mode.
func (s *State) GroupingMode() grouping.Mode { return s.grouping }

// SetGroupingMode switches the grouping mode. Collapse state keyed by the
// previous mode's group IDs is kept: group IDs embed the mode, so stale
// entries simply never match again.
func (s *State) SetGroupingMode(g grouping.Mode) { s.grouping = g }

// ViewMode returns the active view mode.
func (s *State) ViewMode() Mode { return s.mode }

// SetViewMode switches the view mode.
func (s *State) SetViewMode(m Mode) { s.mode = m }

// Retry returns the manual retry counter folded into the fingerprint.
func (s *State) Retry() int { return s.retry }

// BumpRetry increments the retry counter, letting an identical structure
// be deliberately re-attempted after a solver failure.
func (s *State) BumpRetry() { s.retry++ }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func copySet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}
