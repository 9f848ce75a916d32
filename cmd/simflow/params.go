package main

import (
	"flag"

	"github.com/dusk-indust/simflow/internal/workflow"
)

// bindParameterFlags registers one flag per generator parameter, writing into
// p. Flag names follow the established production option names.
func bindParameterFlags(fs *flag.FlagSet, p *workflow.Parameters) {
	// Signal generation.
	fs.IntVar(&p.SignalEvents, "ns", p.SignalEvents, "number of signal events per timeframe")
	fs.StringVar(&p.Generator, "gen", p.Generator, "generator: pythia8, extgen")
	fs.StringVar(&p.Process, "proc", p.Process, "process type: dirgamma, jets, ccbar")
	fs.StringVar(&p.Trigger, "trigger", p.Trigger, "event selection: particle, external")
	fs.StringVar(&p.Ini, "ini", p.Ini, "generator init parameters file")
	fs.StringVar(&p.ConfKey, "confKey", p.ConfKey, "generator or trigger configuration key values")
	fs.IntVar(&p.PtHatBin, "ptHatBin", p.PtHatBin, "pt-hat bin number, -1 for none")
	fs.IntVar(&p.PtHatMin, "ptHatMin", p.PtHatMin, "pt-hat minimum when no bin is requested")
	fs.IntVar(&p.PtHatMax, "ptHatMax", p.PtHatMax, "pt-hat maximum when no bin is requested")
	fs.IntVar(&p.WeightPow, "weightPow", p.WeightPow, "flatten the pt-hat spectrum with this power")
	fs.Float64Var(&p.PtTrigMin, "ptTrigMin", p.PtTrigMin, "generated pt trigger minimum")

	// Beams.
	fs.StringVar(&p.CollisionSystem, "col", p.CollisionSystem, "collision system: pp, PbPb, pPb, Pbp")
	fs.Float64Var(&p.ECM, "eCM", p.ECM, "centre-of-mass energy (GeV)")
	fs.Float64Var(&p.EA, "eA", p.EA, "beam A energy (GeV)")
	fs.Float64Var(&p.EB, "eB", p.EB, "beam B energy (GeV)")
	fs.IntVar(&p.InteractionRate, "interactionRate", p.InteractionRate, "interaction rate (Hz) used in digitization")

	// Background embedding.
	fs.BoolVar(&p.Embedding, "embedding", p.Embedding, "embed signal into background events")
	fs.IntVar(&p.BackgroundEvents, "nb", p.BackgroundEvents, "number of background events per timeframe")
	fs.StringVar(&p.BackgroundGenerator, "genBkg", p.BackgroundGenerator, "background generator")
	fs.StringVar(&p.BackgroundIni, "iniBkg", p.BackgroundIni, "background generator init parameters file")
	fs.StringVar(&p.UploadBkgTo, "upload-bkg-to", p.UploadBkgTo, "alien path to upload background events to")
	fs.StringVar(&p.UseBkgFrom, "use-bkg-from", p.UseBkgFrom, "alien path to take background events from")

	// Execution.
	fs.StringVar(&p.Engine, "e", p.Engine, "simulation engine")
	fs.IntVar(&p.Timeframes, "tf", p.Timeframes, "number of timeframes")
	fs.IntVar(&p.Workers, "j", p.Workers, "number of workers")
	fs.StringVar(&p.Modules, "mod", p.Modules, "active modules")
	fs.IntVar(&p.Seed, "seed", p.Seed, "random seed")
	fs.StringVar(&p.Output, "o", p.Output, "output workflow file")
	fs.BoolVar(&p.NoIPC, "noIPC", p.NoIPC, "disable shared memory in DPL")
	fs.BoolVar(&p.CombineSmallerDigi, "combine-smaller-digi", p.CombineSmallerDigi, "digitize the small detectors in one stage")
}
