package workflow

import "strings"

// jobUtils is sourced before every stage so taskwrapper is available.
const jobUtils = ". ${O2_ROOT}/share/scripts/jobutils.sh"

// Workflow is the persisted artifact: the stages in creation order.
type Workflow struct {
	Stages []*Stage `json:"stages"`
}

// Len is the number of stages.
func (w *Workflow) Len() int { return len(w.Stages) }

// Stage returns the stage called name, or nil.
func (w *Workflow) Stage(name string) *Stage {
	for _, s := range w.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Finalize renders every stage script, wraps it in taskwrapper with a log
// named after the stage and collapses whitespace. Stages keep their creation
// order. Stages read back from a file have no script and keep their Cmd.
func Finalize(c *Context) *Workflow {
	stages := c.Stages()
	for _, s := range stages {
		if !s.script.Empty() {
			s.Cmd = wrap(s.Name, s.script.Render())
		}
		if s.Needs == nil {
			s.Needs = []string{}
		}
		if s.Labels == nil {
			s.Labels = []string{}
		}
	}
	return &Workflow{Stages: stages}
}

// wrap runs cmd through taskwrapper, logging to <name>.log. cmd is passed in
// single quotes, so embedded single quotes are closed and reopened.
func wrap(name, cmd string) string {
	escaped := strings.ReplaceAll(cmd, "'", `'\''`)
	return collapse(jobUtils + "; taskwrapper " + name + ".log '" + escaped + "'")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
