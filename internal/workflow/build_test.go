package workflow

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, mutate func(*Parameters)) *Result {
	t.Helper()
	p := DefaultParameters()
	if mutate != nil {
		mutate(&p)
	}
	res, err := Build(p)
	require.NoError(t, err)
	return res
}

func cached(p *Parameters) {
	p.Embedding = true
	p.UseBkgFrom = "alien:///cache/bkg/"
}

func fresh(p *Parameters) {
	p.Embedding = true
}

func stage(t *testing.T, w *Workflow, name string) *Stage {
	t.Helper()
	s := w.Stage(name)
	require.NotNil(t, s, "stage %s missing", name)
	return s
}

func names(stages []*Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name
	}
	return out
}

var configurations = map[string]func(*Parameters){
	"default":  nil,
	"fresh":    fresh,
	"cached":   cached,
	"combined": func(p *Parameters) { cached(p); p.CombineSmallerDigi = true },
	"upload":   func(p *Parameters) { fresh(p); p.UploadBkgTo = "alien:///up" },
	"PbPb noIPC": func(p *Parameters) {
		p.CollisionSystem = "PbPb"
		p.NoIPC = true
		p.Timeframes = 4
	},
	"binned jets": func(p *Parameters) {
		p.Process = "jets"
		p.PtTrigMin = 3.5
		p.PtHatBin = 5
		p.Generator = "external"
	},
}

func TestBuild_StructuralInvariants(t *testing.T) {
	for name, mutate := range configurations {
		t.Run(name, func(t *testing.T) {
			w := build(t, mutate).Workflow
			require.NoError(t, Validate(w))

			byName := make(map[string]*Stage)
			for _, s := range w.Stages {
				byName[s.Name] = s
			}
			for _, s := range w.Stages {
				for _, n := range s.Needs {
					dep, ok := byName[n]
					require.True(t, ok, "%s needs unknown %s", s.Name, n)
					if dep.Timeframe != Independent {
						assert.Equal(t, s.Timeframe, dep.Timeframe, "%s -> %s", s.Name, n)
					}
				}
			}

			_, err := TopoOrder(w)
			assert.NoError(t, err)
		})
	}
}

func TestBuild_NoEmbedding(t *testing.T) {
	res := build(t, nil)
	w := res.Workflow
	assert.Equal(t, NoEmbedding, res.Background)

	for _, s := range w.Stages {
		assert.NotContains(t, s.Labels, LabelBkgCache, s.Name)
		assert.False(t, strings.HasPrefix(s.Name, "bkg"), s.Name)
		assert.NotContains(t, s.Name, "hitdownload")
		assert.NotEqual(t, Independent, s.Timeframe, s.Name)
	}

	assert.Equal(t, []string{"sgnsim_1"}, stage(t, w, "linkGRP_1").Needs)
	assert.Equal(t, []string{"gensgnconf_1"}, stage(t, w, "sgnsim_1").Needs)
	assert.Len(t, w.Stages, 2*30)
}

func TestBuild_CachedBackground(t *testing.T) {
	res := build(t, cached)
	w := res.Workflow
	assert.Equal(t, CachedBackground, res.Background)

	header := stage(t, w, "bkgdownloadheader")
	assert.Equal(t, Independent, header.Timeframe)
	assert.Equal(t, []string{LabelBkgCache}, header.Labels)
	assert.Contains(t, header.Cmd, "alien.py cp alien:///cache/bkg/bkg_MCHeader.root .")

	for _, d := range TrackedDetectors {
		dl := stage(t, w, string(d)+"hitdownload")
		assert.Contains(t, dl.Cmd, "bkg_Hits"+string(d)+".root")
	}
	assert.Len(t, TrackedDetectors, 14)

	assert.Contains(t, stage(t, w, "aod_1").Needs, "bkgkinedownload")
	assert.Contains(t, stage(t, w, "aod_2").Needs, "bkgkinedownload")
	assert.Contains(t, stage(t, w, "tpcdigi_1").Needs, "TPChitdownload")
	assert.Contains(t, stage(t, w, "itsdigi_1").Needs, "ITShitdownload")
	assert.Contains(t, stage(t, w, "sgnsim_1").Needs, "bkgdownloadheader")
	assert.Equal(t, []string{"bkgdownloadheader"}, stage(t, w, "linkGRP_1").Needs)
	assert.Nil(t, w.Stage("bkgsim"))
}

func TestBuild_CachedCombinedDigitization(t *testing.T) {
	w := build(t, func(p *Parameters) { cached(p); p.CombineSmallerDigi = true }).Workflow

	rest := stage(t, w, "restdigi_1")
	for _, d := range SmallSensors {
		assert.Contains(t, rest.Needs, string(d)+"hitdownload")
		assert.Nil(t, w.Stage(d.lower()+"digi_1"), "per-detector digitizer for %s", d)
	}
	assert.NotContains(t, rest.Needs, "TPChitdownload")
	assert.Contains(t, rest.Cmd, "--skipDet TPC,TRD")
	assert.NotContains(t, rest.Cmd, "--rate 1000")
	assert.Equal(t, []string{LabelDigi, LabelSmallDigi}, rest.Labels)

	assert.Contains(t, stage(t, w, "itsreco_1").Needs, "restdigi_1")
	assert.Contains(t, stage(t, w, "tofmatch_1").Needs, "restdigi_1")
}

func TestBuild_FreshBackground(t *testing.T) {
	w := build(t, func(p *Parameters) { fresh(p); p.UploadBkgTo = "alien:///up" }).Workflow

	bkg := stage(t, w, "bkgsim")
	assert.Equal(t, Independent, bkg.Timeframe)
	assert.Contains(t, bkg.Cmd, "-o bkg --configFile ${O2DPG_ROOT}/MC/config/common/ini/basic.ini")
	assert.Equal(t, []string{"bkgsim"}, stage(t, w, "bkgupload").Needs)

	assert.Equal(t, []string{"gensgnconf_1", "bkgsim"}, stage(t, w, "sgnsim_1").Needs)
	assert.Equal(t, []string{"bkgsim"}, stage(t, w, "linkGRP_1").Needs)
	assert.Contains(t, stage(t, w, "sgnsim_1").Cmd, "--embedIntoFile ../bkg_MCHeader.root")
	assert.Contains(t, stage(t, w, "digicontext_1").Cmd, "--sims bkg,sgn_1")
	assert.Nil(t, w.Stage("bkgkinedownload"))
	assert.Equal(t, []string{"pvfinder_1", "tofmatch_1", "trdreco_1"}, stage(t, w, "aod_1").Needs)
}

func TestBuild_CachedSkipsUpload(t *testing.T) {
	res := build(t, func(p *Parameters) { cached(p); p.UploadBkgTo = "alien:///up" })
	assert.Nil(t, res.Workflow.Stage("bkgupload"))
	require.NotEmpty(t, res.Advisories)
	assert.Equal(t, AdvisoryWarn, res.Advisories[len(res.Advisories)-1].Level)
}

func TestBuild_Idempotent(t *testing.T) {
	for name, mutate := range configurations {
		t.Run(name, func(t *testing.T) {
			a := build(t, mutate)
			b := build(t, mutate)
			ja, err := json.MarshalIndent(a.Workflow, "", "  ")
			require.NoError(t, err)
			jb, err := json.MarshalIndent(b.Workflow, "", "  ")
			require.NoError(t, err)
			assert.Equal(t, string(ja), string(jb))
			assert.Equal(t, a.ID, b.ID)
		})
	}
}

func TestBuild_IDIgnoresOutputPath(t *testing.T) {
	a := build(t, nil)
	b := build(t, func(p *Parameters) { p.Output = "other.json" })
	c := build(t, func(p *Parameters) { p.Seed = 7 })
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestBuild_CreationOrder(t *testing.T) {
	w := build(t, func(p *Parameters) { p.Timeframes = 1 }).Workflow
	want := []string{
		"gensgnconf_1", "sgnsim_1", "linkGRP_1", "digicontext_1", "tpcdigi_1", "trddigi_1",
		"itsdigi_1", "tofdigi_1", "ft0digi_1", "fv0digi_1", "fdddigi_1", "mchdigi_1",
		"middigi_1", "mftdigi_1", "hmpdigi_1", "emcdigi_1", "phsdigi_1", "cpvdigi_1",
		"tpcclusterpart1_1", "tpcclusterpart2_1", "tpcclustermerge_1", "tpcreco_1",
		"itsreco_1", "ft0reco_1", "itstpcMatch_1", "trdreco_1", "tofmatch_1",
		"toftpcmatch_1", "pvfinder_1", "aod_1",
	}
	if diff := cmp.Diff(want, names(w.Stages)); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SessionFollowsCreationCounter(t *testing.T) {
	w := build(t, nil).Workflow
	// digicontext is the fourth stage created.
	assert.Contains(t, stage(t, w, "digicontext_1").Cmd, "--session 4 --driver-client-backend ws://")
	assert.Contains(t, stage(t, w, "digicontext_2").Cmd, "--session 34 ")
	assert.Contains(t, stage(t, w, "tpcclusterpart1_1").Cmd, "--shm-segment-size ${SHMSIZE:-50000000000} --session 19")

	noIPC := build(t, func(p *Parameters) { p.NoIPC = true }).Workflow
	for _, s := range noIPC.Stages {
		assert.NotContains(t, s.Cmd, "--driver-client-backend", s.Name)
	}
	assert.Contains(t, stage(t, noIPC, "aod_1").Cmd, "-b --run --no-IPC --rate 1000")
}

func TestBuild_Commands(t *testing.T) {
	w := build(t, func(p *Parameters) { p.CollisionSystem = "PbPb"; p.Seed = 11 }).Workflow

	gen := stage(t, w, "gensgnconf_1")
	assert.True(t, strings.HasPrefix(gen.Cmd, ". ${O2_ROOT}/share/scripts/jobutils.sh; taskwrapper gensgnconf_1.log '"))
	assert.Contains(t, gen.Cmd, "--seed=11 --idA=1000822080 --idB=1000822080 --eCM=5020.0")
	assert.Equal(t, "tf1", gen.Cwd)
	assert.Equal(t, 1, gen.Timeframe)

	assert.Contains(t, stage(t, w, "tpcdigi_1").Cmd, "--interactionRate 50000")
	assert.Contains(t, stage(t, w, "sgnsim_1").Cmd, "o2-sim -e TGeant4 --skipModules ZDC -n 20 -j 8 -g pythia8")
	assert.Contains(t, stage(t, w, "aod_2").Cmd, "--aod-timeframe-id 2")
	assert.Contains(t, stage(t, w, "trdreco_1").Cmd, "would do TRD tracking")
	assert.Contains(t, stage(t, w, "tpcreco_1").Cmd, `"GPU_global.continuousMaxTimeBin=100000;GPU_proc.ompThreads=8"`)
	assert.Equal(t, []string{"tpcclusterpart1_1", "tpcclusterpart2_1"}, stage(t, w, "tpcclustermerge_1").Needs)

	for _, s := range w.Stages {
		assert.Equal(t, strings.Join(strings.Fields(s.Cmd), " "), s.Cmd, "whitespace in %s", s.Name)
	}
}

func TestBuild_NonPythiaGeneratorKeepsShape(t *testing.T) {
	w := build(t, func(p *Parameters) { p.Generator = "external"; p.Ini = "gen.ini" }).Workflow
	gen := stage(t, w, "gensgnconf_1")
	assert.Contains(t, gen.Cmd, "taskwrapper gensgnconf_1.log 'true'")
	sim := stage(t, w, "sgnsim_1")
	assert.Contains(t, sim.Needs, "gensgnconf_1")
	assert.Contains(t, sim.Cmd, "-g external")
	assert.Contains(t, sim.Cmd, "--configFile gen.ini")
}

func TestBuild_ConfigErrorsStopConstruction(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
		want   error
	}{
		{"pt-hat bin", func(p *Parameters) { p.Process = "jets"; p.PtTrigMin = 3.5; p.PtHatBin = 6 }, ErrPtHatBinRange},
		{"unknown system", func(p *Parameters) { p.CollisionSystem = "AuAu" }, ErrUnknownCollisionSystem},
		{"no energy", func(p *Parameters) { p.EA = -1 }, ErrNoEnergy},
		{"no timeframes", func(p *Parameters) { p.Timeframes = 0 }, ErrConfig},
		{"no background events", func(p *Parameters) { fresh(p); p.BackgroundEvents = 0 }, ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			res, err := Build(p)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), err.Error())
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}
}
