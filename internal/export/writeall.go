package export

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// Target writes a workflow somewhere.
type Target struct {
	Name  string
	Write func(ctx context.Context, wf *workflow.Workflow) error
}

// JSONFile is a target writing the workflow document to path.
func JSONFile(path string) Target {
	return Target{Name: path, Write: func(_ context.Context, wf *workflow.Workflow) error {
		return WriteJSONFile(path, wf)
	}}
}

// MermaidFile is a target writing the Mermaid diagram to path.
func MermaidFile(path string) Target {
	return Target{Name: path, Write: func(ctx context.Context, wf *workflow.Workflow) error {
		store, err := graph.FromWorkflow(ctx, wf)
		if err != nil {
			return err
		}
		diagram, err := GenerateMermaid(ctx, store)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(diagram), 0o644)
	}}
}

// GraphStore is a target ingesting the workflow into store.
func GraphStore(name string, store graph.Store) Target {
	return Target{Name: name, Write: func(ctx context.Context, wf *workflow.Workflow) error {
		return graph.Ingest(ctx, store, wf)
	}}
}

// WriteAll runs every target concurrently. The first failure cancels the
// context passed to the others and is returned.
func WriteAll(ctx context.Context, wf *workflow.Workflow, targets ...Target) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := t.Write(ctx, wf); err != nil {
				return fmt.Errorf("write %s: %w", t.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
