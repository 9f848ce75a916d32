package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PGStore satisfies Store.
var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL via pgx. Several workflows share the
// tables; a PGStore reads and writes the one identified by its workflow id.
type PGStore struct {
	db         *pgxpool.Pool
	workflowID string
	ownsPool   bool
}

// NewPGStore returns a store for workflowID backed by an existing pool.
func NewPGStore(db *pgxpool.Pool, workflowID string) *PGStore {
	return &PGStore{db: db, workflowID: workflowID}
}

// OpenPGStore connects to url and returns a store for workflowID. Close
// releases the pool.
func OpenPGStore(ctx context.Context, url, workflowID string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &PGStore{db: pool, workflowID: workflowID, ownsPool: true}, nil
}

// WorkflowID is the workflow this store is scoped to.
func (s *PGStore) WorkflowID() string { return s.workflowID }

// Close releases the pool if the store opened it.
func (s *PGStore) Close() error {
	if s.ownsPool {
		s.db.Close()
	}
	return nil
}

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS simflow_workflows (
    id          TEXT PRIMARY KEY,
    stage_count INT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS simflow_stages (
    workflow_id TEXT NOT NULL REFERENCES simflow_workflows(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    seq         INT NOT NULL,
    timeframe   INT NOT NULL,
    labels      TEXT[] NOT NULL DEFAULT '{}',
    cpu         DOUBLE PRECISION NOT NULL DEFAULT 0,
    mem         INT NOT NULL DEFAULT 0,
    cwd         TEXT NOT NULL DEFAULT './',
    cmd         TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (workflow_id, name)
);

CREATE TABLE IF NOT EXISTS simflow_edges (
    workflow_id TEXT NOT NULL,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    kind        TEXT NOT NULL,
    FOREIGN KEY (workflow_id, source) REFERENCES simflow_stages(workflow_id, name) ON DELETE CASCADE,
    FOREIGN KEY (workflow_id, target) REFERENCES simflow_stages(workflow_id, name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_simflow_edges_source ON simflow_edges(workflow_id, source);
CREATE INDEX IF NOT EXISTS idx_simflow_edges_target ON simflow_edges(workflow_id, target);
`

// InitSchema creates the tables if they don't exist and registers the
// workflow id. A store with an empty id only reads the catalog.
func (s *PGStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchemaSQL); err != nil {
		return fmt.Errorf("pg: create schema: %w", err)
	}
	if s.workflowID == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO simflow_workflows (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, s.workflowID); err != nil {
		return fmt.Errorf("pg: register workflow: %w", err)
	}
	return nil
}

// DropSchema drops all simflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS simflow_edges, simflow_stages, simflow_workflows CASCADE`)
	return err
}

// AddStage inserts one stage.
func (s *PGStore) AddStage(ctx context.Context, node StageNode) error {
	return insertStage(ctx, s.db, s.workflowID, node)
}

// AddEdge inserts one edge.
func (s *PGStore) AddEdge(ctx context.Context, edge Edge) error {
	return insertEdge(ctx, s.db, s.workflowID, edge)
}

// WriteBatch saves the full workflow in one transaction, replacing any
// previous content stored under the same id.
func (s *PGStore) WriteBatch(ctx context.Context, stages []StageNode, edges []Edge) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM simflow_edges WHERE workflow_id = $1`, s.workflowID); err != nil {
		return fmt.Errorf("pg: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM simflow_stages WHERE workflow_id = $1`, s.workflowID); err != nil {
		return fmt.Errorf("pg: delete stages: %w", err)
	}
	for _, n := range stages {
		if err := insertStage(ctx, tx, s.workflowID, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := insertEdge(ctx, tx, s.workflowID, e); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE simflow_workflows SET stage_count = $2 WHERE id = $1`, s.workflowID, len(stages)); err != nil {
		return fmt.Errorf("pg: update workflow: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// GetStage returns the stage called name, or nil if not found.
func (s *PGStore) GetStage(ctx context.Context, name string) (*StageNode, error) {
	row := s.db.QueryRow(ctx,
		`SELECT name, seq, timeframe, labels, cpu, mem, cwd, cmd
		 FROM simflow_stages WHERE workflow_id = $1 AND name = $2`, s.workflowID, name)
	n, err := scanStage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get stage %s: %w", name, err)
	}
	return &n, nil
}

// ListStages returns all stages of the workflow in creation order.
func (s *PGStore) ListStages(ctx context.Context) ([]StageNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, seq, timeframe, labels, cpu, mem, cwd, cmd
		 FROM simflow_stages WHERE workflow_id = $1 ORDER BY seq`, s.workflowID)
	if err != nil {
		return nil, fmt.Errorf("pg: query stages: %w", err)
	}
	defer rows.Close()

	var out []StageNode
	for rows.Next() {
		n, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan stage: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: rows stages: %w", err)
	}
	return out, nil
}

// GetAllEdges returns every edge of the workflow.
func (s *PGStore) GetAllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT e.source, e.target, e.kind
		 FROM simflow_edges e
		 JOIN simflow_stages t ON t.workflow_id = e.workflow_id AND t.name = e.target
		 WHERE e.workflow_id = $1
		 ORDER BY t.seq`, s.workflowID)
	if err != nil {
		return nil, fmt.Errorf("pg: query edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		var kind string
		if err := rows.Scan(&e.SourceID, &e.TargetID, &kind); err != nil {
			return nil, fmt.Errorf("pg: scan edge: %w", err)
		}
		e.Kind = EdgeKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: rows edges: %w", err)
	}
	return out, nil
}

// GetDependencies walks the workflow's edges from name.
func (s *PGStore) GetDependencies(ctx context.Context, name string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	edges, err := s.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	return dependencies(edges, name, direction, maxDepth), nil
}

// AssessImpact returns the stages that cannot run if the given stages fail.
func (s *PGStore) AssessImpact(ctx context.Context, failed []string) (*ImpactResult, error) {
	edges, err := s.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM simflow_stages WHERE workflow_id = $1`, s.workflowID).Scan(&total); err != nil {
		return nil, fmt.Errorf("pg: count stages: %w", err)
	}
	return impact(edges, total, failed), nil
}

// Stats returns stage, edge and timeframe counts of the workflow.
func (s *PGStore) Stats(ctx context.Context) (*GraphStats, error) {
	var st GraphStats
	err := s.db.QueryRow(ctx,
		`SELECT count(*),
		        count(DISTINCT timeframe) FILTER (WHERE timeframe <> $2),
		        count(*) FILTER (WHERE timeframe = $2)
		 FROM simflow_stages WHERE workflow_id = $1`, s.workflowID, Independent).
		Scan(&st.StageCount, &st.TimeframeCount, &st.IndependentCount)
	if err != nil {
		return nil, fmt.Errorf("pg: stage stats: %w", err)
	}
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM simflow_edges WHERE workflow_id = $1`, s.workflowID).Scan(&st.EdgeCount); err != nil {
		return nil, fmt.Errorf("pg: edge stats: %w", err)
	}
	return &st, nil
}

// Workflows lists the ids of all stored workflows, newest first.
func (s *PGStore) Workflows(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM simflow_workflows ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("pg: query workflows: %w", err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertStage(ctx context.Context, db execer, workflowID string, n StageNode) error {
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	if _, err := db.Exec(ctx,
		`INSERT INTO simflow_stages (workflow_id, name, seq, timeframe, labels, cpu, mem, cwd, cmd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		workflowID, n.Name, n.Seq, n.Timeframe, labels, n.CPU, n.Mem, n.Cwd, n.Cmd,
	); err != nil {
		return fmt.Errorf("pg: insert stage %s: %w", n.Name, err)
	}
	return nil
}

func insertEdge(ctx context.Context, db execer, workflowID string, e Edge) error {
	if _, err := db.Exec(ctx,
		`INSERT INTO simflow_edges (workflow_id, source, target, kind) VALUES ($1, $2, $3, $4)`,
		workflowID, e.SourceID, e.TargetID, string(e.Kind),
	); err != nil {
		return fmt.Errorf("pg: insert edge %s -> %s: %w", e.SourceID, e.TargetID, err)
	}
	return nil
}

func scanStage(row pgx.Row) (StageNode, error) {
	var n StageNode
	err := row.Scan(&n.Name, &n.Seq, &n.Timeframe, &n.Labels, &n.CPU, &n.Mem, &n.Cwd, &n.Cmd)
	return n, err
}
