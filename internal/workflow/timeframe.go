package workflow

import (
	"fmt"
	"strconv"
)

const (
	contextFile   = "collisioncontext.root"
	mkpy8cfg      = "${O2DPG_ROOT}/MC/config/common/pythia8/utils/mkpy8cfg.py"
	gpuKeyValues  = "GPU_global.continuousMaxTimeBin=100000;GPU_proc.ompThreads="
	shmSegment    = "${SHMSIZE:-50000000000}"
	bkgHeaderFile = "../bkg_MCHeader.root"
)

// resolved collects the parameter-derived values shared by every timeframe.
type resolved struct {
	ptHat PtHatRange
	beams Beams
	rate  int
}

// timeframeBuilder creates the signal stages of one timeframe. The first
// failure is kept in err and turns later additions into no-ops.
type timeframeBuilder struct {
	c   *Context
	p   Parameters
	r   resolved
	bg  *Background
	tf  int
	dir string
	err error
}

// Timeframe is the set of terminal handles of one timeframe's subgraph.
type Timeframe struct {
	Index     int
	Transport *Stage
	Digi      map[Detector]*Stage
	AOD       *Stage
}

func buildTimeframe(c *Context, p Parameters, r resolved, bg *Background, tf int) (*Timeframe, error) {
	t := &timeframeBuilder{c: c, p: p, r: r, bg: bg, tf: tf, dir: "tf" + strconv.Itoa(tf)}
	out := t.build()
	return out, t.err
}

func (t *timeframeBuilder) build() *Timeframe {
	genConf := t.add("gensgnconf", StageOpts{}, t.generatorScript)

	transportNeeds := []string{genConf.Name}
	if bkg := t.bg.Provider(); bkg != nil {
		transportNeeds = append(transportNeeds, bkg.Name)
	}
	transport := t.add("sgnsim", StageOpts{Needs: transportNeeds, Labels: []string{LabelGeant}, CPU: 5}, t.transportScript)

	// With embedding, geometry and GRP come from the background run. Linking
	// them after the signal run would let the signal GRP win.
	linkNeeds := []string{transport.Name}
	if bkg := t.bg.Provider(); bkg != nil {
		linkNeeds = []string{bkg.Name}
	}
	linkGRP := t.add("linkGRP", StageOpts{Needs: linkNeeds}, t.linkScript)

	digiContext := t.add("digicontext", StageOpts{
		Needs:  []string{transport.Name, linkGRP.Name},
		Labels: []string{LabelDigi},
		CPU:    1,
	}, func() Script {
		return NewScript(Cmd("o2-sim-digitizer-workflow", "--only-context").
			Int("--interactionRate", t.r.rate).
			Arg(t.dpl(false, false)...).
			Int("-n", t.p.SignalEvents).
			Arg("--sims", t.sims()))
	})

	digi := t.digitization(digiContext, linkGRP)
	aod := t.reconstruction(digi)

	return &Timeframe{
		Index:     t.tf,
		Transport: transport,
		Digi:      digi,
		AOD:       aod,
	}
}

// digitization creates the per-detector digitizers and returns the stage
// producing each detector's digits.
func (t *timeframeBuilder) digitization(digiContext, linkGRP *Stage) map[Detector]*Stage {
	digi := make(map[Detector]*Stage, len(TrackedDetectors))

	tpcNeeds := t.withHits([]string{digiContext.Name, linkGRP.Name}, DetTPC)
	digi[DetTPC] = t.add("tpcdigi", StageOpts{Needs: tpcNeeds, Labels: []string{LabelDigi}, CPU: 8, Mem: 9000}, func() Script {
		return t.linkHits(DetTPC.hitsFile()).Then(t.digitizer().
			Arg("--onlyDet", string(DetTPC)).
			Int("--interactionRate", t.r.rate).
			Int("--tpc-lanes", t.p.Workers).
			Arg("--incontext", contextFile, "--tpc-chunked-writer"))
	})

	trdNeeds := t.withHits([]string{digiContext.Name}, DetTRD)
	digi[DetTRD] = t.add("trddigi", StageOpts{Needs: trdNeeds, Labels: []string{LabelDigi}, CPU: 8, Mem: 8000}, func() Script {
		return t.linkHits(DetTRD.hitsFile()).Then(t.digitizer().
			Arg("--onlyDet", string(DetTRD)).
			Int("--interactionRate", t.r.rate).
			Arg("--configKeyValues", "TRDSimParams.digithreads="+strconv.Itoa(t.p.Workers)).
			Arg("--incontext", contextFile))
	})

	if t.p.CombineSmallerDigi {
		rest := t.add("restdigi", StageOpts{
			Needs:  t.withHits([]string{digiContext.Name}, SmallSensors...),
			Labels: []string{LabelDigi, LabelSmallDigi},
			CPU:    8,
		}, func() Script {
			return t.linkHits("bkg_Hits*.root").Then(Cmd("o2-sim-digitizer-workflow").
				Arg(t.dpl(false, true)...).
				Int("-n", t.p.SignalEvents).
				Arg("--sims", t.sims()).
				Arg("--skipDet", "TPC,TRD").
				Int("--interactionRate", t.r.rate).
				Arg("--incontext", contextFile))
		})
		for _, d := range SmallSensors {
			digi[d] = rest
		}
		return digi
	}

	for _, d := range SmallSensors {
		digi[d] = t.add(d.lower()+"digi", StageOpts{
			Needs:  t.withHits([]string{digiContext.Name}, d),
			Labels: []string{LabelDigi, LabelSmallDigi},
			CPU:    1,
		}, func() Script {
			return t.linkHits(d.hitsFile()).Then(t.digitizer().
				Arg("--onlyDet", string(d)).
				Int("--interactionRate", t.r.rate).
				Arg("--incontext", contextFile))
		})
	}
	return digi
}

// reconstruction creates clustering, tracking, matching, vertexing and AOD
// production on top of the digitizers and returns the AOD stage.
func (t *timeframeBuilder) reconstruction(digi map[Detector]*Stage) *Stage {
	reco := []string{LabelReco}

	// TPC clusterization runs per sector range to bound memory.
	clusterPart := func(part int, sectors string) *Stage {
		return t.add("tpcclusterpart"+strconv.Itoa(part), StageOpts{
			Needs: []string{digi[DetTPC].Name}, Labels: reco, CPU: 8, Mem: 16000,
		}, func() Script {
			return NewScript(Cmd("o2-tpc-chunkeddigit-merger", "--tpc-sectors", sectors, "--rate", "1").
				Int("--tpc-lanes", t.p.Workers).
				Int("--session", t.c.Session())).
				Pipe(Cmd("o2-tpc-reco-workflow").
					Arg(t.dpl(true, false)...).
					Arg("--input-type", "digitizer",
						"--output-type", "clusters,send-clusters-per-sector",
						"--outfile", fmt.Sprintf("tpc-native-clusters-part%d.root", part),
						"--tpc-sectors", sectors,
						"--configKeyValues", t.gpuKeyValues()))
		})
	}
	part1 := clusterPart(1, "0-17")
	part2 := clusterPart(2, "18-35")

	merge := t.add("tpcclustermerge", StageOpts{Needs: []string{part1.Name, part2.Name}, Labels: reco, CPU: 1}, func() Script {
		return NewScript(Cmd("o2-commonutils-treemergertool",
			"-i", "tpc-native-clusters-part*.root", "-o", "tpc-native-clusters.root", "-t", "tpcrec"))
	})

	tpcReco := t.add("tpcreco", StageOpts{Needs: []string{merge.Name}, Labels: reco, CPU: 3, Mem: 16000}, func() Script {
		return NewScript(Cmd("o2-tpc-reco-workflow").
			Arg(t.dpl(true, false)...).
			Arg("--input-type", "clusters",
				"--output-type", "tracks,send-clusters-per-sector",
				"--configKeyValues", t.gpuKeyValues()))
	})

	itsReco := t.add("itsreco", StageOpts{Needs: []string{digi[DetITS].Name}, Labels: reco, CPU: 1, Mem: 2000}, func() Script {
		return NewScript(Cmd("o2-its-reco-workflow", "--trackerCA", "--tracking-mode", "async").Arg(t.dpl(false, false)...))
	})

	ft0Reco := t.add("ft0reco", StageOpts{Needs: []string{digi[DetFT0].Name}, Labels: reco}, func() Script {
		return NewScript(Cmd("o2-ft0-reco-workflow").Arg(t.dpl(false, false)...))
	})

	itsTPCMatch := t.add("itstpcMatch", StageOpts{Needs: []string{tpcReco.Name, itsReco.Name}, Labels: reco, CPU: 3, Mem: 8000}, func() Script {
		return NewScript(Cmd("o2-tpcits-match-workflow").
			Arg(t.dpl(true, false)...).
			Arg("--tpc-track-reader", "tpctracks.root",
				"--tpc-native-cluster-reader", "--infile tpc-native-clusters.root"))
	})

	// TRD global tracking is a stand-in: only its dependency shape is real.
	trdTracking := t.add("trdreco", StageOpts{
		Needs:  []string{digi[DetTRD].Name, itsTPCMatch.Name, tpcReco.Name, itsReco.Name},
		Labels: reco,
	}, func() Script {
		return NewScript(Cmd("echo", "would do TRD tracking"))
	})

	tofReco := t.add("tofmatch", StageOpts{Needs: []string{itsTPCMatch.Name, digi[DetTOF].Name}, Labels: reco}, func() Script {
		return NewScript(Cmd("o2-tof-reco-workflow").Arg(t.dpl(false, false)...))
	})

	tofTPCMatch := t.add("toftpcmatch", StageOpts{Needs: []string{tofReco.Name, tpcReco.Name}, Labels: reco}, func() Script {
		return NewScript(Cmd("o2-tof-matcher-tpc").Arg(t.dpl(false, false)...))
	})

	pvFinder := t.add("pvfinder", StageOpts{
		Needs:  []string{itsTPCMatch.Name, ft0Reco.Name, tofTPCMatch.Name},
		Labels: reco, CPU: 8, Mem: 4000,
	}, func() Script {
		return NewScript(Cmd("o2-primary-vertexing-workflow").Arg(t.dpl(false, false)...))
	})

	aodNeeds := []string{pvFinder.Name, tofReco.Name, trdTracking.Name}
	if kine := t.bg.KineDownload(); kine != nil {
		aodNeeds = append(aodNeeds, kine.Name)
	}
	return t.add("aod", StageOpts{Needs: aodNeeds, Labels: []string{LabelAOD}, CPU: 1, Mem: 4000}, func() Script {
		return t.linkHits("bkg_Kine.root").Then(Cmd("o2-aod-producer-workflow",
			"--reco-mctracks-only", "1",
			"--aod-writer-keep", "dangling",
			"--aod-writer-resfile", "AO2D",
			"--aod-writer-resmode", "UPDATE").
			Int("--aod-timeframe-id", t.tf).
			Arg(t.dpl(true, false)...))
	})
}

// add creates, scripts and registers a stage of this timeframe.
func (t *timeframeBuilder) add(base string, o StageOpts, script func() Script) *Stage {
	o.Timeframe = t.tf
	o.Cwd = t.dir
	s := t.c.NewStage(t.name(base), o)
	if t.err != nil {
		return s
	}
	s.SetScript(script())
	t.err = t.c.Add(s)
	return s
}

func (t *timeframeBuilder) name(base string) string {
	return base + "_" + strconv.Itoa(t.tf)
}

// withHits appends the background hit downloads of dets that exist.
func (t *timeframeBuilder) withHits(needs []string, dets ...Detector) []string {
	for _, d := range dets {
		if s := t.bg.HitDownload(d); s != nil {
			needs = append(needs, s.Name)
		}
	}
	return needs
}

// linkHits starts a script with a link to a background file in the parent
// directory when embedding.
func (t *timeframeBuilder) linkHits(file string) Script {
	if !t.bg.embedding() {
		return Script{}
	}
	return NewScript(Cmd("ln", "-nfs", "../"+file, "."))
}

func (t *timeframeBuilder) signalPrefix() string {
	return "sgn_" + strconv.Itoa(t.tf)
}

func (t *timeframeBuilder) sims() string {
	if t.bg.embedding() {
		return "bkg," + t.signalPrefix()
	}
	return t.signalPrefix()
}

func (t *timeframeBuilder) digitizer() Command {
	return Cmd("o2-sim-digitizer-workflow").
		Arg(t.dpl(false, false)...).
		Int("-n", t.p.SignalEvents).
		Arg("--sims", t.sims())
}

func (t *timeframeBuilder) gpuKeyValues() string {
	return gpuKeyValues + strconv.Itoa(t.p.Workers)
}

// dpl returns the global DPL options. The session id is the creation counter
// of the stage being built.
func (t *timeframeBuilder) dpl(bigShm, noRate bool) []string {
	args := []string{"-b", "--run"}
	if t.p.NoIPC {
		args = append(args, "--no-IPC")
	} else {
		if bigShm {
			args = append(args, "--shm-segment-size", shmSegment)
		}
		args = append(args, "--session", strconv.Itoa(t.c.Session()), "--driver-client-backend", "ws://")
	}
	if !noRate {
		args = append(args, "--rate", "1000")
	}
	return args
}

func (t *timeframeBuilder) generatorScript() Script {
	if t.p.Generator != "pythia8" {
		// Other generators are configured entirely through the ini file.
		return NewScript(Cmd("true"))
	}
	b := t.r.beams
	c := Cmd(mkpy8cfg,
		"--output=pythia8.cfg",
		"--seed="+strconv.Itoa(t.p.Seed),
		"--idA="+strconv.Itoa(b.PDGA),
		"--idB="+strconv.Itoa(b.PDGB),
		"--eCM="+formatFloat(b.ECM),
		"--process="+t.p.Process,
		"--ptHatMin="+strconv.Itoa(t.r.ptHat.Min),
		"--ptHatMax="+strconv.Itoa(t.r.ptHat.Max)).
		ArgIf(b.ECM < 0, "--eA="+formatFloat(b.EA), "--eB="+formatFloat(b.EB)).
		ArgIf(t.p.WeightPow > -1, "--weightPow="+strconv.Itoa(t.p.WeightPow))
	return NewScript(c)
}

func (t *timeframeBuilder) transportScript() Script {
	p := t.p
	return NewScript(Cmd("o2-sim", "-e", p.Engine).
		Fields(p.Modules).
		Int("-n", p.SignalEvents).
		Int("-j", p.Workers).
		Arg("-g", p.Generator).
		ArgIf(p.Trigger != "", "-t", p.Trigger).
		ArgIf(p.ConfKey != "", "--configKeyValues", p.ConfKey).
		ArgIf(p.Ini != "", "--configFile", p.Ini).
		Arg("-o", t.signalPrefix()).
		ArgIf(t.bg.embedding(), "--embedIntoFile", bkgHeaderFile))
}

func (t *timeframeBuilder) linkScript() Script {
	if t.bg.embedding() {
		return NewScript(
			Cmd("ln", "-nsf", "../bkg_grp.root", "o2sim_grp.root"),
			Cmd("ln", "-nsf", "../bkg_geometry.root", "o2sim_geometry.root"),
			Cmd("ln", "-nsf", "../bkg_geometry.root", "bkg_geometry.root"),
			Cmd("ln", "-nsf", "../bkg_grp.root", "bkg_grp.root"),
		)
	}
	prefix := t.signalPrefix()
	return NewScript(
		Cmd("ln", "-nsf", prefix+"_grp.root", "o2sim_grp.root"),
		Cmd("ln", "-nsf", prefix+"_geometry.root", "o2sim_geometry.root"),
	)
}

// formatFloat renders v with at least one decimal, e.g. 5020.0 or -1.0.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for _, ch := range s {
		if ch == '.' {
			return s
		}
	}
	return s + ".0"
}
