package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the structural invariants a runner relies on: unique
// names, dependencies that resolve, no cycles, and timeframe isolation.
func Validate(w *Workflow) error {
	index := make(map[string]*Stage, len(w.Stages))
	for _, s := range w.Stages {
		if _, dup := index[s.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name)
		}
		index[s.Name] = s
	}

	for _, s := range w.Stages {
		for _, n := range s.Needs {
			dep, ok := index[n]
			if !ok {
				return fmt.Errorf("%w: %s needs %s", ErrDanglingDependency, s.Name, n)
			}
			if dep.Timeframe != Independent && dep.Timeframe != s.Timeframe {
				return fmt.Errorf("%w: %s (timeframe %d) needs %s (timeframe %d)",
					ErrTimeframeCrossing, s.Name, s.Timeframe, dep.Name, dep.Timeframe)
			}
		}
	}

	if cycle := findCycle(w.Stages); len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
	}
	return nil
}

// TopoOrder returns the stage names in a dependency-respecting order. Ties
// are broken by creation order so the result is deterministic.
func TopoOrder(w *Workflow) ([]string, error) {
	order, rest := kahn(w.Stages)
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(witness(w.Stages, rest), " -> "))
	}
	return order, nil
}

func findCycle(stages []*Stage) []string {
	_, rest := kahn(stages)
	if len(rest) == 0 {
		return nil
	}
	return witness(stages, rest)
}

// kahn runs Kahn's algorithm over stages. It returns the sorted names and
// the set of names left on cycles. Dependencies on unknown stages are
// ignored.
func kahn(stages []*Stage) ([]string, map[string]bool) {
	pos := make(map[string]int, len(stages))
	for i, s := range stages {
		pos[s.Name] = i
	}
	indegree := make([]int, len(stages))
	dependents := make([][]int, len(stages))
	for i, s := range stages {
		for _, n := range s.Needs {
			j, ok := pos[n]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]string, 0, len(stages))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		order = append(order, stages[i].Name)
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	var rest map[string]bool
	for i, d := range indegree {
		if d > 0 {
			if rest == nil {
				rest = make(map[string]bool)
			}
			rest[stages[i].Name] = true
		}
	}
	return order, rest
}

// witness walks dependencies inside the unsorted remainder, starting from its
// first stage in creation order, until a stage repeats.
func witness(stages []*Stage, rest map[string]bool) []string {
	index := make(map[string]*Stage, len(stages))
	var start string
	for _, s := range stages {
		index[s.Name] = s
		if start == "" && rest[s.Name] {
			start = s.Name
		}
	}

	seen := make(map[string]int)
	var path []string
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			return append(path[at:], cur)
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, n := range index[cur].Needs {
			if rest[n] {
				next = n
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}
