package main

import (
	"context"
	"log/slog"

	"github.com/dusk-indust/simflow/internal/export"
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// runBuild constructs the workflow and writes every requested artifact.
// Nothing is written when construction fails.
func runBuild(ctx context.Context, p workflow.Parameters, flags cliFlags, logger *slog.Logger) error {
	res, err := workflow.Build(p)
	if err != nil {
		return err
	}
	logAdvisories(logger, res.Advisories)
	logger.Debug("workflow built",
		"id", res.ID, "stages", res.Workflow.Len(), "timeframes", len(res.Timeframes), "background", res.Background)

	targets := []export.Target{export.JSONFile(p.Output)}
	if flags.Mermaid != "" {
		targets = append(targets, export.MermaidFile(flags.Mermaid))
	}
	if flags.GraphDB != "" {
		store, err := openGraphDB(flags.GraphDB)
		if err != nil {
			return err
		}
		defer store.Close()
		targets = append(targets, export.GraphStore(flags.GraphDB, store))
	}
	if flags.PGURL != "" {
		store, err := graph.OpenPGStore(ctx, flags.PGURL, res.ID.String())
		if err != nil {
			return err
		}
		defer store.Close()
		targets = append(targets, export.GraphStore("postgres", store))
	}

	if err := export.WriteAll(ctx, res.Workflow, targets...); err != nil {
		return err
	}
	logger.Info("workflow written", "path", p.Output, "id", res.ID, "stages", res.Workflow.Len())
	return nil
}
