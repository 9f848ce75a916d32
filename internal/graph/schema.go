package graph

// --- Enums ---

// EdgeKind classifies relationships between stages.
type EdgeKind string

const (
	// EdgeKindFeeds links a dependency (source) to the stage that needs it
	// (target).
	EdgeKindFeeds EdgeKind = "FEEDS"
)

// Independent is the timeframe of stages shared by all timeframes.
const Independent = -1

// --- Models ---

// StageNode is a workflow stage as stored in the graph.
type StageNode struct {
	Name      string   `json:"name"`
	Seq       int      `json:"seq"` // creation order
	Timeframe int      `json:"timeframe"`
	Labels    []string `json:"labels"`
	CPU       float64  `json:"cpu"`
	Mem       int      `json:"mem"`
	Cwd       string   `json:"cwd"`
	Cmd       string   `json:"cmd"`
}

// Edge represents a relationship between two stages.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored workflow graph.
type GraphStats struct {
	StageCount       int `json:"stageCount"`
	EdgeCount        int `json:"edgeCount"`
	TimeframeCount   int `json:"timeframeCount"`
	IndependentCount int `json:"independentCount"`
}

// DependencyChain is an ordered sequence of stages forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // stage names in order
	Depth int      `json:"depth"`
}

// ImpactResult describes which stages cannot run when a set of stages fails.
type ImpactResult struct {
	DirectlyBlocked     []string `json:"directlyBlocked"`     // stages needing a failed stage
	TransitivelyBlocked []string `json:"transitivelyBlocked"` // full downstream closure
	BlockedFraction     float64  `json:"blockedFraction"`     // 0.0-1.0 of all stages
}
