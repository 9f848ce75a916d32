//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/simflow/internal/config"
	"github.com/dusk-indust/simflow/internal/export"
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/status"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// TestPipeline_FileToArtifacts drives the whole path a production run takes:
// parameter file, build, concurrent export, reload, and analysis of the
// reloaded document.
func TestPipeline_FileToArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "simflow.hcl")
	writeFile(t, cfgPath, `
collision_system = "PbPb"
timeframes       = 3
embedding        = true
use_bkg_from     = "alien:///cache/PbPb"
`)
	p, err := config.Load(dir)
	require.NoError(t, err)
	p.Output = filepath.Join(dir, "workflow.json")

	res, err := workflow.Build(p)
	require.NoError(t, err)
	assert.Equal(t, workflow.CachedBackground, res.Background)

	mem := graph.NewMemStore()
	require.NoError(t, export.WriteAll(ctx, res.Workflow,
		export.JSONFile(p.Output),
		export.MermaidFile(filepath.Join(dir, "workflow.mmd")),
		export.GraphStore("memory", mem),
	))

	wf, err := export.ReadJSONFile(p.Output)
	require.NoError(t, err)
	require.NoError(t, workflow.Validate(wf))
	assert.Equal(t, res.Workflow.Len(), wf.Len())

	order, err := workflow.TopoOrder(wf)
	require.NoError(t, err)
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, s := range wf.Stages {
		for _, n := range s.Needs {
			assert.Less(t, pos[n], pos[s.Name], "%s must run before %s", n, s.Name)
		}
	}

	sum := status.Summarize(wf, nil)
	require.Len(t, sum.Timeframes, 4, "shared stages plus three timeframes")
	assert.Equal(t, workflow.Independent, sum.Timeframes[0].Timeframe)
	for _, name := range sum.Ready {
		assert.Empty(t, wf.Stage(name).Needs)
	}

	impact, err := mem.AssessImpact(ctx, []string{"bkgdownloadheader"})
	require.NoError(t, err)
	for tf := 1; tf <= 3; tf++ {
		assert.Contains(t, impact.TransitivelyBlocked, fmt.Sprintf("aod_%d", tf))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
