//go:build e2e

package e2e

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/simflow/internal/export"
	"github.com/dusk-indust/simflow/internal/workflow"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// goldenConfigs maps golden filenames to the parameters they are built from.
var goldenConfigs = []struct {
	golden string
	mutate func(*workflow.Parameters)
}{
	{"pp_default.json", func(*workflow.Parameters) {}},
	{"pbpb_fresh_background.json", func(p *workflow.Parameters) {
		p.CollisionSystem = "PbPb"
		p.Embedding = true
		p.UploadBkgTo = "alien:///alice/cern.ch/user/s/simflow/bkg"
	}},
	{"pp_cached_combined.json", func(p *workflow.Parameters) {
		p.Embedding = true
		p.UseBkgFrom = "alien:///alice/cern.ch/user/s/simflow/bkg"
		p.CombineSmallerDigi = true
		p.NoIPC = true
	}},
	{"jets_pthat_bin.json", func(p *workflow.Parameters) {
		p.Process = "jets"
		p.PtTrigMin = 7
		p.PtHatBin = 3
		p.WeightPow = 4
		p.Timeframes = 1
		p.Ini = "${O2DPG_ROOT}/MC/config/PWGGAJE/ini/trigger_decay_gamma.ini"
		p.ConfKey = "GeneratorPythia8.config=pythia8.cfg"
	}},
}

// render builds one configuration and returns its serialized workflow.
func render(t *testing.T, mutate func(*workflow.Parameters)) []byte {
	t.Helper()
	p := workflow.DefaultParameters()
	mutate(&p)
	res, err := workflow.Build(p)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, res.Workflow))
	return buf.Bytes()
}

// TestGolden compares generated workflows against golden files. If golden
// files do not exist, the test is skipped with a message to run with -update.
func TestGolden(t *testing.T) {
	gDir := goldenDir()

	for _, gc := range goldenConfigs {
		t.Run(gc.golden, func(t *testing.T) {
			goldenPath := filepath.Join(gDir, gc.golden)
			golden, err := os.ReadFile(goldenPath)
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", gc.golden)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, string(golden), string(render(t, gc.mutate)),
				"workflow does not match golden file %s", gc.golden)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current generator.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	gDir := goldenDir()
	require.NoError(t, os.MkdirAll(gDir, 0o755))

	for _, gc := range goldenConfigs {
		require.NoError(t, os.WriteFile(filepath.Join(gDir, gc.golden), render(t, gc.mutate), 0o644))
		t.Logf("updated %s", gc.golden)
	}
}
