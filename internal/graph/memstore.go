package graph

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu     sync.RWMutex
	stages map[string]StageNode
	edges  []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{stages: make(map[string]StageNode)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddStage stores a stage keyed by its name.
func (m *MemStore) AddStage(_ context.Context, node StageNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[node.Name] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// WriteBatch replaces the store content.
func (m *MemStore) WriteBatch(_ context.Context, stages []StageNode, edges []Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = make(map[string]StageNode, len(stages))
	for _, s := range stages {
		m.stages[s.Name] = s
	}
	m.edges = append([]Edge(nil), edges...)
	return nil
}

// GetStage returns the stage with the given name, or nil if not found.
func (m *MemStore) GetStage(_ context.Context, name string) (*StageNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stages[name]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ListStages returns all stages in creation order.
func (m *MemStore) ListStages(_ context.Context) ([]StageNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StageNode, 0, len(m.stages))
	for _, s := range m.stages {
		out = append(out, s)
	}
	sortStages(out)
	return out, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// GetDependencies performs a BFS on edges from name in the given direction,
// up to maxDepth hops. It returns one DependencyChain per reachable stage.
func (m *MemStore) GetDependencies(_ context.Context, name string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return dependencies(m.edges, name, direction, maxDepth), nil
}

// AssessImpact returns the stages that cannot run if the given stages fail.
func (m *MemStore) AssessImpact(_ context.Context, failed []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return impact(m.edges, len(m.stages), failed), nil
}

// Stats returns stage, edge and timeframe counts.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stages := make([]StageNode, 0, len(m.stages))
	for _, s := range m.stages {
		stages = append(stages, s)
	}
	return computeStats(stages, len(m.edges)), nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
