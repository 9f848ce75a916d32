package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/simflow/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Stages are grouped by timeframe; timeframe-independent stages go into a
// "shared" subgraph. FEEDS edges become arrows.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	stages, err := store.ListStages(ctx)
	if err != nil {
		return "", fmt.Errorf("list stages: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build stage → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(name string) string {
		if id, ok := nodeIDs[name]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[name] = id
		return id
	}

	groups := make(map[int][]graph.StageNode)
	var tfs []int
	for _, s := range stages {
		if _, ok := groups[s.Timeframe]; !ok {
			tfs = append(tfs, s.Timeframe)
		}
		groups[s.Timeframe] = append(groups[s.Timeframe], s)
	}
	// Independent (-1) sorts first.
	sort.Ints(tfs)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, tf := range tfs {
		id, title := fmt.Sprintf("TF%d", tf), fmt.Sprintf("timeframe %d", tf)
		if tf == graph.Independent {
			id, title = "SHARED", "shared"
		}
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", id, title))
		for _, s := range groups[tf] {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(s.Name), s.Name))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		if e.Kind != graph.EdgeKindFeeds {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.SourceID), getID(e.TargetID)))
	}

	return sb.String(), nil
}
