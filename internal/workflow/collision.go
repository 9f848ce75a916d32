package workflow

import "fmt"

// PDG codes of the beam species.
const (
	PDGProton = 2212
	PDGLead   = 1000822080
)

// DefaultPbPbECM is the CM energy (GeV) assumed for Pb-Pb when none is given.
const DefaultPbPbECM = 5020.0

// Beams is a fully resolved beam configuration.
type Beams struct {
	System string  `json:"system"`
	PDGA   int     `json:"pdgA"`
	PDGB   int     `json:"pdgB"`
	ECM    float64 `json:"eCM"`
	EA     float64 `json:"eA"`
	EB     float64 `json:"eB"`
}

// Asymmetric reports whether the two beams carry different species.
func (b Beams) Asymmetric() bool { return b.PDGA != b.PDGB }

var beamSpecies = map[string][2]int{
	"pp":   {PDGProton, PDGProton},
	"PbPb": {PDGLead, PDGLead},
	"pPb":  {PDGProton, PDGLead},
	"Pbp":  {PDGLead, PDGProton},
}

// AdvisoryLevel grades a non-fatal configuration note.
type AdvisoryLevel string

const (
	AdvisoryInfo AdvisoryLevel = "info"
	AdvisoryWarn AdvisoryLevel = "warn"
)

// Advisory is a configuration note that does not stop construction.
type Advisory struct {
	Level   AdvisoryLevel `json:"level"`
	Message string        `json:"message"`
}

func info(format string, args ...any) Advisory {
	return Advisory{Level: AdvisoryInfo, Message: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Advisory {
	return Advisory{Level: AdvisoryWarn, Message: fmt.Sprintf(format, args...)}
}

// ResolveCollision maps a collision system to beam species and fills in
// missing energies. Energies below zero are unset.
func ResolveCollision(system string, eCM, eA, eB float64) (Beams, []Advisory, error) {
	species, ok := beamSpecies[system]
	if !ok {
		return Beams{}, nil, fmt.Errorf("%w: %q (want pp, PbPb, pPb or Pbp)", ErrUnknownCollisionSystem, system)
	}
	b := Beams{System: system, PDGA: species[0], PDGB: species[1], ECM: eCM, EA: eA, EB: eB}
	var notes []Advisory

	if system == "PbPb" && b.ECM < 0 {
		b.ECM = DefaultPbPbECM
		notes = append(notes, info("CM energy set to the Pb-Pb default of %g GeV", DefaultPbPbECM))
	}

	if b.EB < 0 && b.ECM < 0 {
		b.EB = b.EA
		notes = append(notes, info("beam B energy set equal to beam A (%g GeV)", b.EA))
		if b.Asymmetric() {
			notes = append(notes, warn("both beam energies are equal for the asymmetric system %s", system))
		}
	}

	if b.ECM > 0 {
		if b.Asymmetric() {
			notes = append(notes, warn("CM energy is ambiguous for the asymmetric system %s", system))
		}
		if eB > 0 {
			notes = append(notes, warn("beam energies are ignored when a CM energy is given"))
		}
	}

	if b.ECM < 0 && b.EA < 0 && b.EB < 0 {
		return Beams{}, notes, ErrNoEnergy
	}
	return b, notes, nil
}

// ResolveInteractionRate returns rate, or the per-system default in Hz when
// rate is unset.
func ResolveInteractionRate(system string, rate int) int {
	if rate >= 0 {
		return rate
	}
	switch system {
	case "PbPb":
		return 50000
	case "pp":
		return 400000
	default:
		return 200000
	}
}
