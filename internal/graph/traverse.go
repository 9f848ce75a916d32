package graph

import "sort"

// neighbors returns IDs reachable from id in one hop along the given direction.
func neighbors(edges []Edge, id string, direction Direction) []string {
	var result []string
	for _, e := range edges {
		switch direction {
		case DirectionDownstream:
			// downstream: id feeds others -> follow edges where SourceID matches
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionUpstream:
			// upstream: id needs others -> follow edges where TargetID matches
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// dependencies performs a BFS on edges from name in the given direction, up
// to maxDepth hops. It returns one DependencyChain per reachable stage.
func dependencies(edges []Edge, name string, direction Direction, maxDepth int) []DependencyChain {
	if maxDepth <= 0 {
		return nil
	}

	// BFS state: each entry tracks the path from name to the current stage.
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{name: true}
	queue := []bfsEntry{{id: name, path: []string{name}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range neighbors(edges, entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}
	return chains
}

// impact computes the stages blocked by the failed set over FEEDS edges.
func impact(edges []Edge, totalStages int, failed []string) *ImpactResult {
	failedSet := make(map[string]bool, len(failed))
	for _, f := range failed {
		failedSet[f] = true
	}

	// A FEEDS edge with SourceID=A, TargetID=B means "B needs A".
	directSet := make(map[string]bool)
	for _, e := range edges {
		if e.Kind != EdgeKindFeeds {
			continue
		}
		if failedSet[e.SourceID] && !failedSet[e.TargetID] {
			directSet[e.TargetID] = true
		}
	}

	allBlocked := make(map[string]bool, len(directSet))
	frontier := make(map[string]bool, len(directSet))
	for k := range directSet {
		allBlocked[k] = true
		frontier[k] = true
	}
	for len(frontier) > 0 {
		next := make(map[string]bool)
		for _, e := range edges {
			if e.Kind != EdgeKindFeeds {
				continue
			}
			if frontier[e.SourceID] && !failedSet[e.TargetID] && !allBlocked[e.TargetID] {
				allBlocked[e.TargetID] = true
				next[e.TargetID] = true
			}
		}
		frontier = next
	}

	transitive := setToSlice(allBlocked)
	var fraction float64
	if totalStages > 0 {
		fraction = float64(len(transitive)) / float64(totalStages)
	}
	return &ImpactResult{
		DirectlyBlocked:     setToSlice(directSet),
		TransitivelyBlocked: transitive,
		BlockedFraction:     fraction,
	}
}

func computeStats(stages []StageNode, edgeCount int) *GraphStats {
	st := &GraphStats{StageCount: len(stages), EdgeCount: edgeCount}
	tfs := make(map[int]bool)
	for _, s := range stages {
		if s.Timeframe == Independent {
			st.IndependentCount++
			continue
		}
		tfs[s.Timeframe] = true
	}
	st.TimeframeCount = len(tfs)
	return st
}

func sortStages(stages []StageNode) {
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Seq < stages[j].Seq })
}

// setToSlice converts a string bool map to a sorted slice.
func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
