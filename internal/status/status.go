package status

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dusk-indust/simflow/internal/workflow"
)

// StageState is the progress of one stage as seen from its working directory.
type StageState string

const (
	StatePending StageState = "pending"
	StateReady   StageState = "ready" // every dependency done
	StateDone    StageState = "done"
)

// TimeframeSummary aggregates the stages of one timeframe.
type TimeframeSummary struct {
	Timeframe int     `json:"timeframe"` // workflow.Independent for shared stages
	Stages    int     `json:"stages"`
	Done      int     `json:"done"`
	CPU       float64 `json:"cpu"`     // sum of cpu hints
	PeakMem   int     `json:"peakMem"` // largest single-stage memory hint
}

// Summary describes a workflow and, when scanned against a run directory,
// its progress.
type Summary struct {
	Stages     int                `json:"stages"`
	Done       int                `json:"done"`
	Timeframes []TimeframeSummary `json:"timeframes"`
	Labels     map[string]int     `json:"labels"`
	Ready      []string           `json:"ready"` // runnable now, in creation order
}

// DoneMarker is the file taskwrapper leaves next to a stage log on success.
func DoneMarker(root string, s *workflow.Stage) string {
	return filepath.Join(root, s.Cwd, s.Name+".log_done")
}

// ScanCompleted checks which stages have a done marker under root.
func ScanCompleted(root string, wf *workflow.Workflow) map[string]bool {
	done := make(map[string]bool)
	for _, s := range wf.Stages {
		if _, err := os.Stat(DoneMarker(root, s)); err == nil {
			done[s.Name] = true
		}
	}
	return done
}

// State returns the state of s given the set of completed stages.
func State(s *workflow.Stage, done map[string]bool) StageState {
	if done[s.Name] {
		return StateDone
	}
	for _, n := range s.Needs {
		if !done[n] {
			return StatePending
		}
	}
	return StateReady
}

// Summarize aggregates wf per timeframe and label. done may be nil.
func Summarize(wf *workflow.Workflow, done map[string]bool) Summary {
	sum := Summary{Stages: len(wf.Stages), Labels: make(map[string]int)}
	byTF := make(map[int]*TimeframeSummary)
	for _, s := range wf.Stages {
		tf, ok := byTF[s.Timeframe]
		if !ok {
			tf = &TimeframeSummary{Timeframe: s.Timeframe}
			byTF[s.Timeframe] = tf
		}
		tf.Stages++
		tf.CPU += s.Resources.CPU
		tf.PeakMem = max(tf.PeakMem, s.Resources.Mem)
		for _, l := range s.Labels {
			sum.Labels[l]++
		}

		switch State(s, done) {
		case StateDone:
			tf.Done++
			sum.Done++
		case StateReady:
			sum.Ready = append(sum.Ready, s.Name)
		}
	}

	for _, tf := range byTF {
		sum.Timeframes = append(sum.Timeframes, *tf)
	}
	sort.Slice(sum.Timeframes, func(i, j int) bool {
		return sum.Timeframes[i].Timeframe < sum.Timeframes[j].Timeframe
	})
	return sum
}
