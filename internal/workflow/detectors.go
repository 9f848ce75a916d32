package workflow

import "strings"

// Detector names a sub-detector whose hits are digitized separately.
type Detector string

const (
	DetTPC Detector = "TPC"
	DetTRD Detector = "TRD"
	DetITS Detector = "ITS"
	DetTOF Detector = "TOF"
	DetFT0 Detector = "FT0"
	DetFV0 Detector = "FV0"
	DetFDD Detector = "FDD"
	DetMCH Detector = "MCH"
	DetMID Detector = "MID"
	DetMFT Detector = "MFT"
	DetHMP Detector = "HMP"
	DetEMC Detector = "EMC"
	DetPHS Detector = "PHS"
	DetCPV Detector = "CPV"
)

// SmallSensors are the single-threaded digitizers that may be collapsed into
// one combined stage.
var SmallSensors = []Detector{
	DetITS, DetTOF, DetFT0, DetFV0, DetFDD, DetMCH,
	DetMID, DetMFT, DetHMP, DetEMC, DetPHS, DetCPV,
}

// TrackedDetectors lists every detector with its own background hit file, in
// the order their download stages are created.
var TrackedDetectors = append([]Detector{DetTPC, DetTRD}, SmallSensors...)

// lower returns the lowercase stage-name prefix for d (e.g. "its").
func (d Detector) lower() string {
	return strings.ToLower(string(d))
}

// hitsFile is the background hit file produced for d.
func (d Detector) hitsFile() string {
	return "bkg_Hits" + string(d) + ".root"
}
