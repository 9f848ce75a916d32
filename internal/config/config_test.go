package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/simflow/internal/workflow"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_NoFileYieldsDefaults(t *testing.T) {
	p, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, workflow.DefaultParameters(), p)
}

func TestLoadFile_MissingFileIsAnError(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, workflow.ErrConfig)
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoadFile_YAMLRejectsUnknownKeys(t *testing.T) {
	path := write(t, t.TempDir(), "typo.yaml", "timeframe: 10\ncolisionSystem: PbPb\n")
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, workflow.ErrConfig)
	assert.ErrorContains(t, err, "timeframe")
}

func TestLoadFile_EmptyYAMLYieldsDefaults(t *testing.T) {
	p, err := LoadFile(write(t, t.TempDir(), "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, workflow.DefaultParameters(), p)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "simflow.yml", `
collisionSystem: PbPb
timeframes: 4
embedding: true
useBkgFrom: alien:///alice/cern.ch/user/bkg
ptHatBin: 2
process: jets
ptTrigMin: 3.5
`)

	p, err := Load(dir)
	require.NoError(t, err)

	want := workflow.DefaultParameters()
	want.CollisionSystem = "PbPb"
	want.Timeframes = 4
	want.Embedding = true
	want.UseBkgFrom = "alien:///alice/cern.ch/user/bkg"
	want.PtHatBin = 2
	want.Process = "jets"
	want.PtTrigMin = 3.5
	assert.Equal(t, want, p)
}

func TestLoad_PrefersYAMLOverHCL(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "simflow.hcl", "timeframes = 9\n")
	write(t, dir, "simflow.yaml", "timeframes: 3\n")

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Timeframes)
}

func TestLoadFile_HCL(t *testing.T) {
	t.Setenv("SIMFLOW_TEST_CACHE", "alien:///cache")
	path := write(t, t.TempDir(), "prod.hcl", `
collision_system = "pPb"
ecm              = 8160
timeframes       = 3
workers          = 16
embedding        = true
use_bkg_from     = "${env.SIMFLOW_TEST_CACHE}/pPb"
no_ipc           = true
`)

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pPb", p.CollisionSystem)
	assert.Equal(t, 8160.0, p.ECM)
	assert.Equal(t, 3, p.Timeframes)
	assert.Equal(t, 16, p.Workers)
	assert.True(t, p.Embedding)
	assert.True(t, p.NoIPC)
	assert.Equal(t, "alien:///cache/pPb", p.UseBkgFrom)
	// Absent attributes keep their defaults.
	assert.Equal(t, 20, p.SignalEvents)
	assert.Equal(t, "TGeant4", p.Engine)
	assert.Equal(t, workflow.CachedBackground, p.BackgroundMode())
}

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(`{"timeframes": 5, "combineSmallerDigi": true}`))
	require.NoError(t, err)
	assert.Equal(t, 5, p.Timeframes)
	assert.True(t, p.CombineSmallerDigi)
	assert.Equal(t, "pp", p.CollisionSystem)

	p, err = ParseJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.DefaultParameters(), p)

	_, err = ParseJSON([]byte(`{"timeFrames": 5}`))
	assert.ErrorIs(t, err, workflow.ErrConfig)
	assert.ErrorContains(t, err, `"timeFrames"`)

	_, err = ParseJSON([]byte(`{"SIGNALEVENTS": 5, "signalEvents": 5}`))
	assert.ErrorIs(t, err, workflow.ErrConfig)

	_, err = ParseJSON([]byte(`{"timeframes": "five"}`))
	assert.ErrorIs(t, err, workflow.ErrConfig)
}

func TestLoadFile_JSON(t *testing.T) {
	p, err := LoadFile(write(t, t.TempDir(), "params.json", `{"signalEvents": 100}`))
	require.NoError(t, err)
	assert.Equal(t, 100, p.SignalEvents)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(write(t, dir, "bad.yml", "timeframes: [1, 2\n"))
	assert.ErrorContains(t, err, "decoding")

	_, err = LoadFile(write(t, dir, "bad.hcl", "timeframes = \n"))
	assert.ErrorContains(t, err, "failed to parse HCL")

	_, err = LoadFile(write(t, dir, "unknown.hcl", "bogus = 1\n"))
	assert.ErrorContains(t, err, "failed to decode HCL")

	_, err = LoadFile(write(t, dir, "params.toml", "timeframes = 1\n"))
	assert.ErrorContains(t, err, "unsupported parameter file type")
}
