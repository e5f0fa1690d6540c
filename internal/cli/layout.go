package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/graph/transform"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/hierarchy"
	"github.com/mfeltner/lattice/pkg/layout"
	"github.com/mfeltner/lattice/pkg/solver/graphviz"
)

// newLayoutCmd creates the layout command for one-shot layout runs.
func newLayoutCmd() *cobra.Command {
	var (
		output    string
		mode      string
		compact   bool
		collapsed []string
		timeout   int
	)

	cmd := &cobra.Command{
		Use:   "layout [snapshot.json]",
		Short: "Compute a layout from a resource graph snapshot",
		Long: `Compute a hierarchical layout from a resource graph snapshot.

The layout command takes a snapshot.json file, groups its resources,
and computes box positions with the two-phase layout. The output is a
layout.json file mapping every box to its position and size.

Groups named with --collapse are laid out as opaque boxes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.Context(), args[0], output, mode, compact, collapsed, timeout)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&mode, "grouping", "g", string(grouping.ModeLabel), "grouping mode: label (default), namespace, none")
	cmd.Flags().BoolVar(&compact, "compact", false, "hide configuration objects")
	cmd.Flags().StringArrayVar(&collapsed, "collapse", nil, "group ID to collapse (repeatable)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "solver timeout in seconds (0 disables)")

	return cmd
}

func runLayout(ctx context.Context, input, output, mode string, compact bool, collapseIDs []string, timeout int) error {
	logger := loggerFromContext(ctx)

	gmode := grouping.Mode(mode)
	if !gmode.Valid() {
		return fmt.Errorf("unknown grouping mode %q", mode)
	}

	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}

	nodes, edges, dropped := transform.Working(snap, transform.Options{HideConfig: compact})
	if dropped > 0 {
		printWarning("dropped %d edges referencing missing nodes", dropped)
	}

	collapsed := make(map[string]struct{}, len(collapseIDs))
	for _, id := range collapseIDs {
		collapsed[id] = struct{}{}
	}

	prog := newProgress(logger)
	spinner := newSpinner(ctx, "computing layout")
	spinner.Start()

	assignment := grouping.Resolve(nodes, edges, gmode)
	hg := hierarchy.Build(nodes, edges, assignment, collapsed, gmode)

	engine := layout.NewEngine(graphviz.New(), cache.NewMemoryCache(), logger)
	engine.SetSolveTimeout(time.Duration(timeout) * time.Second)

	result, err := engine.Layout(ctx, hg)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("layout failed: %v", err))
		return err
	}
	spinner.Stop()

	data, err := layout.MarshalResult(result)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	if output == "" {
		output = strings.TrimSuffix(input, ".json") + ".layout.json"
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write layout %s: %w", output, err)
	}

	prog.done(fmt.Sprintf("Laid out %d boxes", len(result.Positions)))
	printSuccess("layout written")
	printStats(len(nodes), len(edges), groupCount(assignment), false)
	printFile(output)
	return nil
}

func groupCount(assignment map[string]string) int {
	seen := make(map[string]struct{})
	for _, g := range assignment {
		seen[g] = struct{}{}
	}
	return len(seen)
}
