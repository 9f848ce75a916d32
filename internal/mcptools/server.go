package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the workflow tools registered.
func NewMCPServer(svc *WorkflowService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "simflow",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_workflow",
		Description: "Build a simulation-to-AOD workflow from generator parameters. Returns the workflow id, graph statistics and configuration advisories; the workflow becomes the subject of get_dependencies and assess_impact.",
	}, svc.BuildWorkflow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_pthat_bin",
		Description: "Map a pt-hat bin index to its generator-level pt-hat cut for a process and trigger threshold.",
	}, svc.ResolvePtHatBin)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_collision",
		Description: "Resolve a collision system to beam PDG codes and energies, and report the interaction rate used for digitization.",
	}, svc.ResolveCollision)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the last built workflow upstream or downstream from a stage. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "List the stages of the last built workflow that cannot run if the given stages fail, with the blocked fraction.",
	}, svc.AssessImpact)

	return server
}

// RunMCPServer starts an HTTP server exposing the workflow MCP tools.
func RunMCPServer(ctx context.Context, svc *WorkflowService, addr string) error {
	server := NewMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the workflow tools on stdio, blocking until stdin is
// closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *WorkflowService) error {
	return NewMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
