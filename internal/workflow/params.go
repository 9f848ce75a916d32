package workflow

import (
	"fmt"
	"strings"
)

// Parameters is the complete configuration surface of the generator.
// Negative energies, rates and pt-hat bounds mean "unset".
type Parameters struct {
	// Signal generation.
	SignalEvents int     `yaml:"signalEvents" json:"signalEvents" hcl:"signal_events,optional"`
	Generator    string  `yaml:"generator" json:"generator" hcl:"generator,optional"`
	Process      string  `yaml:"process" json:"process" hcl:"process,optional"`
	Trigger      string  `yaml:"trigger" json:"trigger" hcl:"trigger,optional"`
	Ini          string  `yaml:"ini" json:"ini" hcl:"ini,optional"`
	ConfKey      string  `yaml:"confKey" json:"confKey" hcl:"conf_key,optional"`
	PtHatBin     int     `yaml:"ptHatBin" json:"ptHatBin" hcl:"pt_hat_bin,optional"`
	PtHatMin     int     `yaml:"ptHatMin" json:"ptHatMin" hcl:"pt_hat_min,optional"`
	PtHatMax     int     `yaml:"ptHatMax" json:"ptHatMax" hcl:"pt_hat_max,optional"`
	WeightPow    int     `yaml:"weightPow" json:"weightPow" hcl:"weight_pow,optional"`
	PtTrigMin    float64 `yaml:"ptTrigMin" json:"ptTrigMin" hcl:"pt_trig_min,optional"`

	// Beams.
	CollisionSystem string  `yaml:"collisionSystem" json:"collisionSystem" hcl:"collision_system,optional"`
	ECM             float64 `yaml:"eCM" json:"eCM" hcl:"ecm,optional"`
	EA              float64 `yaml:"eA" json:"eA" hcl:"ea,optional"`
	EB              float64 `yaml:"eB" json:"eB" hcl:"eb,optional"`
	InteractionRate int     `yaml:"interactionRate" json:"interactionRate" hcl:"interaction_rate,optional"`

	// Background embedding.
	Embedding           bool   `yaml:"embedding" json:"embedding" hcl:"embedding,optional"`
	BackgroundEvents    int    `yaml:"backgroundEvents" json:"backgroundEvents" hcl:"background_events,optional"`
	BackgroundGenerator string `yaml:"backgroundGenerator" json:"backgroundGenerator" hcl:"background_generator,optional"`
	BackgroundIni       string `yaml:"backgroundIni" json:"backgroundIni" hcl:"background_ini,optional"`
	UploadBkgTo         string `yaml:"uploadBkgTo" json:"uploadBkgTo" hcl:"upload_bkg_to,optional"`
	UseBkgFrom          string `yaml:"useBkgFrom" json:"useBkgFrom" hcl:"use_bkg_from,optional"`

	// Execution.
	Engine             string `yaml:"engine" json:"engine" hcl:"engine,optional"`
	Timeframes         int    `yaml:"timeframes" json:"timeframes" hcl:"timeframes,optional"`
	Workers            int    `yaml:"workers" json:"workers" hcl:"workers,optional"`
	Modules            string `yaml:"modules" json:"modules" hcl:"modules,optional"`
	Seed               int    `yaml:"seed" json:"seed" hcl:"seed,optional"`
	Output             string `yaml:"output" json:"output" hcl:"output,optional"`
	NoIPC              bool   `yaml:"noIPC" json:"noIPC" hcl:"no_ipc,optional"`
	CombineSmallerDigi bool   `yaml:"combineSmallerDigi" json:"combineSmallerDigi" hcl:"combine_smaller_digi,optional"`
}

// DefaultParameters returns the generator defaults.
func DefaultParameters() Parameters {
	return Parameters{
		SignalEvents: 20,
		Generator:    "pythia8",
		PtHatBin:     -1,
		PtHatMin:     0,
		PtHatMax:     -1,
		WeightPow:    -1,

		CollisionSystem: "pp",
		ECM:             -1,
		EA:              6499,
		EB:              -1,
		InteractionRate: -1,

		BackgroundEvents:    20,
		BackgroundGenerator: "pythia8hi",
		BackgroundIni:       "${O2DPG_ROOT}/MC/config/common/ini/basic.ini",

		Engine:     "TGeant4",
		Timeframes: 2,
		Workers:    8,
		Modules:    "--skipModules ZDC",
		Output:     "workflow.json",
	}
}

// Validate rejects counts that cannot produce a workflow.
func (p Parameters) Validate() error {
	switch {
	case p.Timeframes < 1:
		return fmt.Errorf("%w: timeframes must be positive, got %d", ErrConfig, p.Timeframes)
	case p.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfig, p.Workers)
	case p.SignalEvents < 1:
		return fmt.Errorf("%w: signal events must be positive, got %d", ErrConfig, p.SignalEvents)
	case p.Embedding && p.UseBkgFrom == "" && p.BackgroundEvents < 1:
		return fmt.Errorf("%w: background events must be positive, got %d", ErrConfig, p.BackgroundEvents)
	case strings.TrimSpace(p.Engine) == "":
		return fmt.Errorf("%w: simulation engine is empty", ErrConfig)
	}
	return nil
}

// BackgroundMode selects how embedded background events are provided.
type BackgroundMode int

const (
	NoEmbedding BackgroundMode = iota
	FreshBackground
	CachedBackground
)

func (m BackgroundMode) String() string {
	switch m {
	case NoEmbedding:
		return "none"
	case FreshBackground:
		return "fresh"
	case CachedBackground:
		return "cached"
	default:
		return "unknown"
	}
}

// BackgroundMode derives the embedding mode from the parameters.
func (p Parameters) BackgroundMode() BackgroundMode {
	switch {
	case !p.Embedding:
		return NoEmbedding
	case p.UseBkgFrom != "":
		return CachedBackground
	default:
		return FreshBackground
	}
}
