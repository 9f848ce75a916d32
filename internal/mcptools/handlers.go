package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/simflow/internal/config"
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// WorkflowService holds the most recently built workflow and its graph. The
// traversal tools answer questions about that workflow.
type WorkflowService struct {
	logger *slog.Logger

	mu    sync.Mutex
	store *graph.MemStore
	last  *workflow.Result
}

// NewWorkflowService creates a WorkflowService. A nil logger discards output.
func NewWorkflowService(logger *slog.Logger) *WorkflowService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WorkflowService{logger: logger, store: graph.NewMemStore()}
}

// Last returns the most recent build result, or nil.
func (s *WorkflowService) Last() *workflow.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ApplyParameters overlays the JSON-named fields of overrides onto the
// generator defaults. Unknown names are rejected.
func ApplyParameters(overrides map[string]any) (workflow.Parameters, error) {
	p := workflow.DefaultParameters()
	if len(overrides) == 0 {
		return p, nil
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return p, fmt.Errorf("encode parameters: %w", err)
	}
	return config.ParseJSON(raw)
}

// BuildWorkflow builds a workflow from the given parameters and makes it the
// subject of later traversal calls.
func (s *WorkflowService) BuildWorkflow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildWorkflowInput,
) (*mcp.CallToolResult, BuildWorkflowOutput, error) {
	p, err := ApplyParameters(input.Parameters)
	if err != nil {
		return nil, BuildWorkflowOutput{}, err
	}
	res, err := workflow.Build(p)
	if err != nil {
		return nil, BuildWorkflowOutput{}, fmt.Errorf("build workflow: %w", err)
	}
	for _, a := range res.Advisories {
		s.logger.Info("advisory", "level", a.Level, "message", a.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := graph.Ingest(ctx, s.store, res.Workflow); err != nil {
		return nil, BuildWorkflowOutput{}, fmt.Errorf("ingest workflow: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, BuildWorkflowOutput{}, fmt.Errorf("stats: %w", err)
	}
	s.last = res
	s.logger.Debug("workflow built", "id", res.ID, "stages", res.Workflow.Len())

	out := BuildWorkflowOutput{
		ID:         res.ID.String(),
		Background: res.Background.String(),
		Stats:      *stats,
		Advisories: append([]workflow.Advisory{}, res.Advisories...),
	}
	if input.IncludeStages {
		out.Stages = res.Workflow.Stages
	}
	return nil, out, nil
}

// ResolvePtHatBin maps a pt-hat bin to its generator cut.
func (s *WorkflowService) ResolvePtHatBin(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolvePtHatInput,
) (*mcp.CallToolResult, ResolvePtHatOutput, error) {
	def := workflow.DefaultParameters()
	lo, hi := def.PtHatMin, def.PtHatMax
	if input.PtHatMin != nil {
		lo = *input.PtHatMin
	}
	if input.PtHatMax != nil {
		hi = *input.PtHatMax
	}
	r, err := workflow.ResolvePtHat(input.Bin, input.Process, input.PtTrigMin, lo, hi)
	if err != nil {
		return nil, ResolvePtHatOutput{}, err
	}
	return nil, ResolvePtHatOutput{Range: r}, nil
}

// ResolveCollision resolves beam species, energies and interaction rate.
func (s *WorkflowService) ResolveCollision(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveCollisionInput,
) (*mcp.CallToolResult, ResolveCollisionOutput, error) {
	if input.System == "" {
		return nil, ResolveCollisionOutput{}, fmt.Errorf("system is required")
	}
	def := workflow.DefaultParameters()
	eCM, eA, eB, rate := def.ECM, def.EA, def.EB, def.InteractionRate
	if input.ECM != nil {
		eCM = *input.ECM
	}
	if input.EA != nil {
		eA = *input.EA
	}
	if input.EB != nil {
		eB = *input.EB
	}
	if input.InteractionRate != nil {
		rate = *input.InteractionRate
	}

	beams, notes, err := workflow.ResolveCollision(input.System, eCM, eA, eB)
	if err != nil {
		return nil, ResolveCollisionOutput{}, err
	}
	return nil, ResolveCollisionOutput{
		Beams:           beams,
		InteractionRate: workflow.ResolveInteractionRate(input.System, rate),
		Advisories:      append([]workflow.Advisory{}, notes...),
	}, nil
}

// GetDependencies traverses the last built workflow from one stage.
func (s *WorkflowService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Stage == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("stage is required")
	}

	direction := graph.DirectionUpstream
	if strings.EqualFold(input.Direction, "downstream") {
		direction = graph.DirectionDownstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStages(ctx, input.Stage); err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	chains, err := s.store.GetDependencies(ctx, input.Stage, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact computes which stages of the last built workflow cannot run
// when the given stages fail.
func (s *WorkflowService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.Failed) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("failed is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStages(ctx, input.Failed...); err != nil {
		return nil, AssessImpactOutput{}, err
	}
	impact, err := s.store.AssessImpact(ctx, input.Failed)
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}
	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// requireStages checks that a workflow has been built and contains every
// name. Callers hold s.mu.
func (s *WorkflowService) requireStages(ctx context.Context, names ...string) error {
	if s.last == nil {
		return fmt.Errorf("no workflow built yet; call build_workflow first")
	}
	for _, n := range names {
		st, err := s.store.GetStage(ctx, n)
		if err != nil {
			return fmt.Errorf("get stage %s: %w", n, err)
		}
		if st == nil {
			return fmt.Errorf("unknown stage %q", n)
		}
	}
	return nil
}
