package graph

import (
	"context"
	"io"
)

// Store is the interface for the workflow graph backend.
// Implementations: MemStore (default), KuzuStore (cgo), PGStore (Postgres).
type Store interface {
	io.Closer

	// Schema setup; called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddStage(ctx context.Context, node StageNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetStage(ctx context.Context, name string) (*StageNode, error)
	ListStages(ctx context.Context) ([]StageNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, name string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, failed []string) (*ImpactResult, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// BatchWriter is implemented by stores that can replace their whole content
// atomically. Ingest prefers it over per-item writes.
type BatchWriter interface {
	WriteBatch(ctx context.Context, stages []StageNode, edges []Edge) error
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this stage need?
	DirectionDownstream Direction = "downstream" // what needs this stage?
)
