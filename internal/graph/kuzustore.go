//go:build cgo

package graph

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Stage(
		name STRING,
		seq INT64,
		timeframe INT64,
		labels STRING,
		cpu DOUBLE,
		mem INT64,
		cwd STRING,
		cmd STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS FEEDS(FROM Stage TO Stage)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddStage inserts a Stage node.
func (s *KuzuStore) AddStage(_ context.Context, node StageNode) error {
	return s.exec(
		`CREATE (s:Stage {
			name: $name,
			seq: $seq,
			timeframe: $tf,
			labels: $labels,
			cpu: $cpu,
			mem: $mem,
			cwd: $cwd,
			cmd: $cmd
		})`,
		map[string]any{
			"name":   node.Name,
			"seq":    int64(node.Seq),
			"tf":     int64(node.Timeframe),
			"labels": strings.Join(node.Labels, ","),
			"cpu":    node.CPU,
			"mem":    int64(node.Mem),
			"cwd":    node.Cwd,
			"cmd":    node.Cmd,
		},
	)
}

// AddEdge inserts a FEEDS relationship between two stages.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	if edge.Kind != EdgeKindFeeds {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	return s.exec(
		`MATCH (a:Stage {name: $src}), (b:Stage {name: $dst})
		 CREATE (a)-[:FEEDS]->(b)`,
		map[string]any{"src": edge.SourceID, "dst": edge.TargetID},
	)
}

// WriteBatch replaces the graph content with the given stages and edges.
func (s *KuzuStore) WriteBatch(ctx context.Context, stages []StageNode, edges []Edge) error {
	res, err := s.conn.Query("MATCH (s:Stage) DETACH DELETE s")
	if err != nil {
		return fmt.Errorf("kuzu: clear stages: %w", err)
	}
	res.Close()
	for _, st := range stages {
		if err := s.AddStage(ctx, st); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := s.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Read operations ----------

const stageColumns = "s.name, s.seq, s.timeframe, s.labels, s.cpu, s.mem, s.cwd, s.cmd"

// GetStage retrieves a single Stage node by name, or returns nil if not found.
func (s *KuzuStore) GetStage(_ context.Context, name string) (*StageNode, error) {
	rows, err := s.query(
		"MATCH (s:Stage {name: $name}) RETURN "+stageColumns,
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	n := rowToStage(rows[0])
	return &n, nil
}

// ListStages returns all stages in creation order.
func (s *KuzuStore) ListStages(_ context.Context) ([]StageNode, error) {
	rows, err := s.query("MATCH (s:Stage) RETURN "+stageColumns+" ORDER BY s.seq", nil)
	if err != nil {
		return nil, err
	}
	out := make([]StageNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToStage(r))
	}
	return out, nil
}

// GetAllEdges returns all FEEDS edges.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	rows, err := s.query("MATCH (a:Stage)-[:FEEDS]->(b:Stage) RETURN a.name, b.name", nil)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, Edge{SourceID: toString(r[0]), TargetID: toString(r[1]), Kind: EdgeKindFeeds})
	}
	return edges, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over FEEDS edges starting from the given
// stage. It returns one DependencyChain per reachable stage.
func (s *KuzuStore) GetDependencies(_ context.Context, name string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	// BFS state.
	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{name: true}
	queue := []bfsEntry{{path: []string{name}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.stageNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// stageNeighbors returns immediate neighbors along FEEDS edges, in creation
// order.
func (s *KuzuStore) stageNeighbors(name string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = "MATCH (a:Stage {name: $name})-[:FEEDS]->(b:Stage) RETURN b.name ORDER BY b.seq"
	case DirectionUpstream:
		cypher = "MATCH (a:Stage)-[:FEEDS]->(b:Stage {name: $name}) RETURN a.name ORDER BY a.seq"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact returns the stages that cannot run if the given stages fail.
// It walks FEEDS edges downstream to find direct and transitive dependents.
func (s *KuzuStore) AssessImpact(ctx context.Context, failed []string) (*ImpactResult, error) {
	total, err := s.countTable("Stage")
	if err != nil {
		return nil, err
	}

	directSet := map[string]bool{}
	transitiveSet := map[string]bool{}
	for _, f := range failed {
		chains, err := s.GetDependencies(ctx, f, DirectionDownstream, 1)
		if err != nil {
			return nil, err
		}
		for _, c := range chains {
			directSet[c.Nodes[len(c.Nodes)-1]] = true
		}

		allChains, err := s.GetDependencies(ctx, f, DirectionDownstream, max(total, 1))
		if err != nil {
			return nil, err
		}
		for _, c := range allChains {
			transitiveSet[c.Nodes[len(c.Nodes)-1]] = true
		}
	}

	// Remove failed stages themselves from result sets.
	failedMap := map[string]bool{}
	for _, f := range failed {
		failedMap[f] = true
	}
	direct := filterKeys(directSet, failedMap)
	transitive := filterKeys(transitiveSet, failedMap)

	fraction := 0.0
	if total > 0 {
		fraction = math.Min(1.0, float64(len(transitive))/float64(total))
	}
	return &ImpactResult{
		DirectlyBlocked:     direct,
		TransitivelyBlocked: transitive,
		BlockedFraction:     fraction,
	}, nil
}

// ---------- Stats ----------

// Stats returns stage, edge and timeframe counts.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	stages, err := s.countTable("Stage")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	rows, err := s.query(
		"MATCH (s:Stage) WHERE s.timeframe <> $ind RETURN count(DISTINCT s.timeframe)",
		map[string]any{"ind": int64(Independent)},
	)
	if err != nil {
		return nil, err
	}
	tfs := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		tfs = toInt(rows[0][0])
	}
	rows, err = s.query(
		"MATCH (s:Stage) WHERE s.timeframe = $ind RETURN count(s)",
		map[string]any{"ind": int64(Independent)},
	)
	if err != nil {
		return nil, err
	}
	independent := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		independent = toInt(rows[0][0])
	}
	return &GraphStats{
		StageCount:       stages,
		EdgeCount:        edges,
		TimeframeCount:   tfs,
		IndependentCount: independent,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	rows, err := s.query(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the number of FEEDS edges.
func (s *KuzuStore) countEdges() (int, error) {
	rows, err := s.query("MATCH ()-[r:FEEDS]->() RETURN count(r)", nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToStage converts a result row in stageColumns order into a StageNode.
func rowToStage(r []any) StageNode {
	var labels []string
	if l := toString(r[3]); l != "" {
		labels = strings.Split(l, ",")
	}
	return StageNode{
		Name:      toString(r[0]),
		Seq:       toInt(r[1]),
		Timeframe: toInt(r[2]),
		Labels:    labels,
		CPU:       toFloat64(r[4]),
		Mem:       toInt(r[5]),
		Cwd:       toString(r[6]),
		Cmd:       toString(r[7]),
	}
}

// filterKeys returns keys from set that are not in exclude, as a sorted slice.
func filterKeys(set, exclude map[string]bool) []string {
	keep := make(map[string]bool, len(set))
	for k := range set {
		if !exclude[k] {
			keep[k] = true
		}
	}
	return setToSlice(keep)
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
