package graph

import (
	"context"
	"fmt"

	"github.com/dusk-indust/simflow/internal/workflow"
)

// Nodes converts a workflow into graph stages and FEEDS edges.
func Nodes(w *workflow.Workflow) ([]StageNode, []Edge) {
	stages := make([]StageNode, 0, len(w.Stages))
	var edges []Edge
	for i, s := range w.Stages {
		stages = append(stages, StageNode{
			Name:      s.Name,
			Seq:       i,
			Timeframe: s.Timeframe,
			Labels:    append([]string{}, s.Labels...),
			CPU:       s.Resources.CPU,
			Mem:       s.Resources.Mem,
			Cwd:       s.Cwd,
			Cmd:       s.Cmd,
		})
		for _, n := range s.Needs {
			edges = append(edges, Edge{SourceID: n, TargetID: s.Name, Kind: EdgeKindFeeds})
		}
	}
	return stages, edges
}

// Ingest initializes the schema of s and writes w into it. Stages are written
// before edges so every edge endpoint exists.
func Ingest(ctx context.Context, s Store, w *workflow.Workflow) error {
	if err := s.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	stages, edges := Nodes(w)
	if bw, ok := s.(BatchWriter); ok {
		return bw.WriteBatch(ctx, stages, edges)
	}
	for _, st := range stages {
		if err := s.AddStage(ctx, st); err != nil {
			return fmt.Errorf("add stage %s: %w", st.Name, err)
		}
	}
	for _, e := range edges {
		if err := s.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", e.SourceID, e.TargetID, err)
		}
	}
	return nil
}

// FromWorkflow returns a MemStore holding w.
func FromWorkflow(ctx context.Context, w *workflow.Workflow) (*MemStore, error) {
	m := NewMemStore()
	if err := Ingest(ctx, m, w); err != nil {
		return nil, err
	}
	return m, nil
}
