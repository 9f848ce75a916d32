package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/dusk-indust/simflow/internal/export"
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/status"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// Colors are dropped automatically when stdout is not a terminal.
var (
	heading = color.New(color.Bold)
	warning = color.New(color.FgRed)
	good    = color.New(color.FgGreen)
)

func loadWorkflow(fs *flag.FlagSet) (*workflow.Workflow, error) {
	if fs.NArg() < 1 {
		return nil, fmt.Errorf("%s: workflow file required", fs.Name())
	}
	wf, err := export.ReadJSONFile(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	if err := workflow.Validate(wf); err != nil {
		return nil, fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	return wf, nil
}

// runDiagram prints a Mermaid diagram of a workflow file, or of the graph
// stored in a Kuzu or Postgres database.
func runDiagram(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	graphDB := fs.String("graph-db", "", "read the graph from this Kuzu database instead of a workflow file")
	pgURL := fs.String("pg-url", "", "read the graph from this Postgres database instead of a workflow file")
	id := fs.String("id", "", "workflow id to read from Postgres")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var store graph.Store
	switch {
	case *graphDB != "":
		s, err := openGraphDB(*graphDB)
		if err != nil {
			return err
		}
		store = s
	case *pgURL != "":
		if *id == "" {
			return errors.New("diagram: -id is required with -pg-url")
		}
		s, err := graph.OpenPGStore(ctx, *pgURL, *id)
		if err != nil {
			return err
		}
		store = s
	default:
		wf, err := loadWorkflow(fs)
		if err != nil {
			return err
		}
		s, err := graph.FromWorkflow(ctx, wf)
		if err != nil {
			return err
		}
		store = s
	}
	defer store.Close()

	mermaid, err := export.GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, mermaid)
	return nil
}

// runInspect summarizes a workflow file, or shows one stage with its
// upstream and downstream chains.
func runInspect(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	depth := fs.Int("depth", 3, "maximum dependency depth shown for a stage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	wf, err := loadWorkflow(fs)
	if err != nil {
		return err
	}

	if fs.NArg() < 2 {
		printSummary(stdout, status.Summarize(wf, nil))
		return nil
	}

	name := fs.Arg(1)
	s := wf.Stage(name)
	if s == nil {
		return fmt.Errorf("inspect: unknown stage %q", name)
	}
	store, err := graph.FromWorkflow(ctx, wf)
	if err != nil {
		return err
	}

	tf := "shared"
	if s.Timeframe != workflow.Independent {
		tf = fmt.Sprintf("%d", s.Timeframe)
	}
	heading.Fprintf(stdout, "Stage:     %s\n", s.Name)
	fmt.Fprintf(stdout, "Timeframe: %s\n", tf)
	fmt.Fprintf(stdout, "Labels:    %s\n", strings.Join(s.Labels, ", "))
	fmt.Fprintf(stdout, "Resources: cpu=%g mem=%d\n", s.Resources.CPU, s.Resources.Mem)
	fmt.Fprintf(stdout, "Cwd:       %s\n", s.Cwd)

	for _, dir := range []graph.Direction{graph.DirectionUpstream, graph.DirectionDownstream} {
		chains, err := store.GetDependencies(ctx, name, dir, *depth)
		if err != nil {
			return err
		}
		heading.Fprintf(stdout, "\n%s (%d):\n", dir, len(chains))
		for _, c := range chains {
			fmt.Fprintf(stdout, "  %s\n", strings.Join(c.Nodes, " -> "))
		}
	}
	return nil
}

// runImpact lists the stages that cannot run when the given stages fail.
func runImpact(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("impact", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	wf, err := loadWorkflow(fs)
	if err != nil {
		return err
	}
	failed := fs.Args()[1:]
	if len(failed) == 0 {
		return errors.New("impact: at least one failed stage required")
	}
	for _, f := range failed {
		if wf.Stage(f) == nil {
			return fmt.Errorf("impact: unknown stage %q", f)
		}
	}

	store, err := graph.FromWorkflow(ctx, wf)
	if err != nil {
		return err
	}
	impact, err := store.AssessImpact(ctx, failed)
	if err != nil {
		return err
	}

	heading.Fprintf(stdout, "Directly blocked (%d):\n", len(impact.DirectlyBlocked))
	for _, n := range impact.DirectlyBlocked {
		fmt.Fprintf(stdout, "  %s\n", n)
	}
	warning.Fprintf(stdout, "Blocked in total: %d of %d stages (%.1f%%)\n",
		len(impact.TransitivelyBlocked), wf.Len(), impact.BlockedFraction*100)
	return nil
}

// runStatus reports the progress of a run directory.
func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	dir := fs.String("dir", ".", "run directory the workflow executes in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	wf, err := loadWorkflow(fs)
	if err != nil {
		return err
	}
	printSummary(stdout, status.Summarize(wf, status.ScanCompleted(*dir, wf)))
	return nil
}

// runCatalog lists the workflows stored in Postgres.
func runCatalog(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	pgURL := fs.String("pg-url", "", "Postgres database holding stored workflows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pgURL == "" {
		return errors.New("catalog: -pg-url is required")
	}
	store, err := graph.OpenPGStore(ctx, *pgURL, "")
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	ids, err := store.Workflows(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(stdout, id)
	}
	return nil
}

func printSummary(w io.Writer, sum status.Summary) {
	heading.Fprintf(w, "Stages: %d (%d done)\n\n", sum.Stages, sum.Done)
	for _, tf := range sum.Timeframes {
		name := fmt.Sprintf("timeframe %d", tf.Timeframe)
		if tf.Timeframe == workflow.Independent {
			name = "shared"
		}
		fmt.Fprintf(w, "  %-13s %3d stages  %3d done  cpu %5g  peak mem %6d MB\n",
			name, tf.Stages, tf.Done, tf.CPU, tf.PeakMem)
	}

	labels := make([]string, 0, len(sum.Labels))
	for l := range sum.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	heading.Fprintln(w, "\nLabels:")
	for _, l := range labels {
		fmt.Fprintf(w, "  %-10s %d\n", l, sum.Labels[l])
	}

	if len(sum.Ready) > 0 {
		good.Fprintf(w, "\nReady (%d): %s\n", len(sum.Ready), strings.Join(sum.Ready, ", "))
	}
}
