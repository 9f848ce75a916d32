package workflow

import "fmt"

// OpenEnded is the upper pt-hat edge of the last bin: no upper bound.
const OpenEnded = -1

// PtHatRange is a generator-level hard-process transverse momentum cut.
type PtHatRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ptHatTable holds the low edges of consecutive bins. The high edge of bin i
// is the low edge of bin i+1; the last bin is open-ended.
type ptHatTable []int

func (t ptHatTable) bin(i int) (PtHatRange, bool) {
	if i < 0 || i >= len(t) {
		return PtHatRange{}, false
	}
	hi := OpenEnded
	if i+1 < len(t) {
		hi = t[i+1]
	}
	return PtHatRange{Min: t[i], Max: hi}, true
}

var (
	dirGammaEdges = ptHatTable{5, 11, 21, 36, 57, 84}
	jetsTrig3p5   = ptHatTable{5, 7, 9, 12, 16, 21}
	jetsTrig7     = ptHatTable{8, 10, 14, 19, 26, 35, 48, 66}
	unbiasedEdges = ptHatTable{0, 5, 7, 9, 12, 16, 21, 28, 36, 45, 57, 70, 85, 99, 115, 132, 150, 169, 190, 212, 235}
)

// ptHatEdges selects the bin table for a process and trigger threshold.
// Biased jet tables exist only for the 3.5 and 7 GeV/c triggers.
func ptHatEdges(process string, ptTrigMin float64) ptHatTable {
	switch process {
	case "dirgamma":
		return dirGammaEdges
	case "jets":
		switch ptTrigMin {
		case 3.5:
			return jetsTrig3p5
		case 7:
			return jetsTrig7
		}
	}
	return unbiasedEdges
}

// ResolvePtHat maps a pt-hat bin to its cut. Bin -1 requests no binning and
// returns min and max unchanged.
func ResolvePtHat(bin int, process string, ptTrigMin float64, min, max int) (PtHatRange, error) {
	if bin == -1 {
		return PtHatRange{Min: min, Max: max}, nil
	}
	edges := ptHatEdges(process, ptTrigMin)
	r, ok := edges.bin(bin)
	if !ok {
		return PtHatRange{}, fmt.Errorf("%w: bin %d for process %q (trigger %g) must be in [0, %d]",
			ErrPtHatBinRange, bin, process, ptTrigMin, len(edges)-1)
	}
	return r, nil
}
