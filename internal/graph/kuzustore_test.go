//go:build cgo

package graph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

// sorted returns a sorted copy of the given string slice so that assertions
// are deterministic regardless of map iteration order.
func sorted(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_StageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stage := StageNode{
		Name:      "tpcdigi_1",
		Seq:       4,
		Timeframe: 1,
		Labels:    []string{"DIGI"},
		CPU:       8,
		Mem:       9000,
		Cwd:       "tf1",
		Cmd:       "o2-sim-digitizer-workflow --onlyDet TPC",
	}
	require.NoError(t, s.AddStage(ctx, stage))

	got, err := s.GetStage(ctx, stage.Name)
	require.NoError(t, err)
	require.NotNil(t, got, "GetStage should return a non-nil result")
	assert.Equal(t, stage, *got)
}

func TestKuzuStore_GetStage_NotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetStage(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got, "GetStage should return nil for a missing stage")
}

func TestKuzuStore_IngestAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, Ingest(ctx, s, chain()))

	stages, err := s.ListStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 7)
	assert.Equal(t, "bkg", stages[0].Name)
	assert.Equal(t, "sim_2", stages[6].Name)

	t.Run("downstream depth 1", func(t *testing.T) {
		chains, err := s.GetDependencies(ctx, "digi_1", DirectionDownstream, 1)
		require.NoError(t, err)
		require.Len(t, chains, 2)
		assert.Equal(t, []string{"digi_1", "reco_1"}, chains[0].Nodes)
		assert.Equal(t, []string{"digi_1", "its_1"}, chains[1].Nodes)
	})

	t.Run("upstream", func(t *testing.T) {
		chains, err := s.GetDependencies(ctx, "sim_2", DirectionUpstream, 10)
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.Equal(t, []string{"sim_2", "bkg"}, chains[0].Nodes)
	})

	t.Run("impact", func(t *testing.T) {
		res, err := s.AssessImpact(ctx, []string{"digi_1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"its_1", "reco_1"}, res.DirectlyBlocked)
		assert.Equal(t, []string{"aod_1", "its_1", "reco_1"}, sorted(res.TransitivelyBlocked))
		assert.InDelta(t, 3.0/7.0, res.BlockedFraction, 0.01)
	})

	t.Run("stats", func(t *testing.T) {
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &GraphStats{StageCount: 7, EdgeCount: 7, TimeframeCount: 2, IndependentCount: 1}, st)
	})

	t.Run("edges", func(t *testing.T) {
		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 7)
	})
}

func TestKuzuStore_WriteBatchReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, Ingest(ctx, s, chain()))
	require.NoError(t, Ingest(ctx, s, chain()))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, st.StageCount)
	assert.Equal(t, 7, st.EdgeCount)
}

func TestKuzuStore_AddEdge_UnknownKind(t *testing.T) {
	s := newTestStore(t)
	err := s.AddEdge(context.Background(), Edge{SourceID: "a", TargetID: "b", Kind: "IMPORTS"})
	assert.Error(t, err)
}
