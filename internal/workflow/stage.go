// Package workflow builds the declarative task graph of a Monte-Carlo
// simulation-to-AOD production: named shell-command stages, their
// dependencies and resource hints. Nothing here executes a stage.
package workflow

import "fmt"

// Independent marks a stage that belongs to no timeframe.
const Independent = -1

// Stage labels consumed by the runner for selective execution.
const (
	LabelGeant     = "GEANT"
	LabelDigi      = "DIGI"
	LabelSmallDigi = "SMALLDIGI"
	LabelReco      = "RECO"
	LabelAOD       = "AOD"
	LabelBkgCache  = "BKGCACHE"
)

// Resources are advisory scheduling hints.
type Resources struct {
	CPU float64 `json:"cpu"`
	Mem int     `json:"mem"` // MB
}

// Stage is one node of the workflow graph. Only Cmd changes after creation,
// when Finalize renders the stage's script.
type Stage struct {
	Name      string    `json:"name"`
	Cmd       string    `json:"cmd"`
	Needs     []string  `json:"needs"`
	Resources Resources `json:"resources"`
	Timeframe int       `json:"timeframe"`
	Labels    []string  `json:"labels"`
	Cwd       string    `json:"cwd"`

	script Script
}

// Script returns the structured command of s.
func (s *Stage) Script() Script { return s.script }

// SetScript sets the structured command of s.
func (s *Stage) SetScript(sc Script) { s.script = sc }

// StageOpts are the optional attributes of a new stage.
type StageOpts struct {
	Needs     []string
	Timeframe int // 1-based; zero means Independent
	Cwd       string
	Labels    []string
	CPU       float64
	Mem       int
}

// Context owns the state shared by all builders of one workflow: the ordered
// stage collection and the creation counter used for DPL session ids.
type Context struct {
	counter int
	stages  []*Stage
	index   map[string]*Stage
}

// NewContext returns an empty builder context.
func NewContext() *Context {
	return &Context{index: make(map[string]*Stage)}
}

// NewStage allocates a stage and advances the creation counter. The stage is
// not part of the graph until Add is called.
func (c *Context) NewStage(name string, o StageOpts) *Stage {
	c.counter++
	tf := o.Timeframe
	if tf == 0 {
		tf = Independent
	}
	cwd := o.Cwd
	if cwd == "" {
		cwd = "./"
	}
	return &Stage{
		Name:      name,
		Needs:     dedupe(o.Needs),
		Resources: Resources{CPU: o.CPU, Mem: o.Mem},
		Timeframe: tf,
		Labels:    append([]string{}, o.Labels...),
		Cwd:       cwd,
	}
}

// Session is the current value of the creation counter.
func (c *Context) Session() int { return c.counter }

// Add appends s to the graph. Every dependency must name a stage added
// earlier, which keeps the graph acyclic by construction.
func (c *Context) Add(s *Stage) error {
	if _, dup := c.index[s.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name)
	}
	for _, n := range s.Needs {
		if _, ok := c.index[n]; !ok {
			return fmt.Errorf("%w: %s needs %s", ErrDanglingDependency, s.Name, n)
		}
	}
	c.stages = append(c.stages, s)
	c.index[s.Name] = s
	return nil
}

// Stages returns the stages in creation order.
func (c *Context) Stages() []*Stage {
	out := make([]*Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Lookup returns the stage called name, or nil.
func (c *Context) Lookup(name string) *Stage {
	return c.index[name]
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
