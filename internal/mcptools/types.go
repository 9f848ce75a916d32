package mcptools

import (
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK derives each tool's JSON schema from these structs.

// BuildWorkflowInput is the input for the build_workflow MCP tool.
type BuildWorkflowInput struct {
	Parameters    map[string]any `json:"parameters,omitempty" jsonschema:"generator parameters overriding the defaults, keyed by their JSON names (e.g. timeframes, collisionSystem, embedding)"`
	IncludeStages bool           `json:"includeStages,omitempty" jsonschema:"return the full stage list in addition to the summary"`
}

// BuildWorkflowOutput is the result of the build_workflow MCP tool.
type BuildWorkflowOutput struct {
	ID         string              `json:"id"`
	Background string              `json:"background"`
	Stats      graph.GraphStats    `json:"stats"`
	Advisories []workflow.Advisory `json:"advisories"`
	Stages     []*workflow.Stage   `json:"stages,omitempty"`
}

// ResolvePtHatInput is the input for the resolve_pthat_bin MCP tool.
type ResolvePtHatInput struct {
	Bin       int     `json:"bin" jsonschema:"pt-hat bin index, or -1 for an explicit range"`
	Process   string  `json:"process,omitempty" jsonschema:"physics process: jets, dirgamma or empty for unbiased"`
	PtTrigMin float64 `json:"ptTrigMin,omitempty" jsonschema:"trigger threshold in GeV/c; selects the biased jet table for 3.5 and 7"`
	PtHatMin  *int    `json:"ptHatMin,omitempty" jsonschema:"explicit lower cut used when bin is -1 (default 0)"`
	PtHatMax  *int    `json:"ptHatMax,omitempty" jsonschema:"explicit upper cut used when bin is -1 (default -1, open-ended)"`
}

// ResolvePtHatOutput is the result of the resolve_pthat_bin MCP tool.
type ResolvePtHatOutput struct {
	Range workflow.PtHatRange `json:"range"`
}

// ResolveCollisionInput is the input for the resolve_collision MCP tool.
type ResolveCollisionInput struct {
	System          string   `json:"system" jsonschema:"collision system: pp, PbPb, pPb or Pbp"`
	ECM             *float64 `json:"eCM,omitempty" jsonschema:"centre-of-mass energy in GeV (default unset)"`
	EA              *float64 `json:"eA,omitempty" jsonschema:"beam A energy in GeV (default 6499)"`
	EB              *float64 `json:"eB,omitempty" jsonschema:"beam B energy in GeV (default unset)"`
	InteractionRate *int     `json:"interactionRate,omitempty" jsonschema:"interaction rate in Hz (default: per-system)"`
}

// ResolveCollisionOutput is the result of the resolve_collision MCP tool.
type ResolveCollisionOutput struct {
	Beams           workflow.Beams      `json:"beams"`
	InteractionRate int                 `json:"interactionRate"`
	Advisories      []workflow.Advisory `json:"advisories"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	Stage     string `json:"stage" jsonschema:"stage name, e.g. tpcreco_1"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it needs) or downstream (what needs it). Default: upstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	Failed []string `json:"failed" jsonschema:"names of the stages assumed to fail"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}
