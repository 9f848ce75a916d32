package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/simflow/internal/config"
	"github.com/dusk-indust/simflow/internal/mcptools"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// CLI flags parsed from command line. Generator parameters are bound
// separately, see bindParameterFlags.
type cliFlags struct {
	Config    string
	Mermaid   string
	GraphDB   string
	PGURL     string
	LogLevel  string
	LogFormat string
	ServeMCP  bool
	MCPAddr   string
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "diagram":
			return runDiagram(ctx, args[1:], stdout)
		case "inspect":
			return runInspect(ctx, args[1:], stdout)
		case "impact":
			return runImpact(ctx, args[1:], stdout)
		case "status":
			return runStatus(args[1:], stdout)
		case "catalog":
			return runCatalog(ctx, args[1:], stdout)
		case "serve":
			return runServe(ctx, args[1:], stderr)
		}
	}

	var flags cliFlags
	params := workflow.DefaultParameters()

	fs := flag.NewFlagSet("simflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.Config, "config", "", "parameter file (.yml, .yaml, .hcl or .json); default: simflow.* in the working directory")
	fs.StringVar(&flags.Mermaid, "mermaid", "", "also write a Mermaid diagram of the workflow to this path")
	fs.StringVar(&flags.GraphDB, "graph-db", "", "also store the workflow graph in a Kuzu database at this path")
	fs.StringVar(&flags.PGURL, "pg-url", "", "also store the workflow graph in this Postgres database")
	fs.StringVar(&flags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&flags.LogFormat, "log-format", "text", "log format: text or json")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "run as MCP server on this HTTP address")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	bindParameterFlags(fs, &params)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	logger := newLogger(flags.LogLevel, flags.LogFormat, stderr)

	if flags.ServeMCP || flags.MCPAddr != "" {
		svc := mcptools.NewWorkflowService(logger)
		if flags.MCPAddr != "" {
			logger.Info("mcp server listening", "addr", flags.MCPAddr)
			return mcptools.RunMCPServer(ctx, svc, flags.MCPAddr)
		}
		return mcptools.RunMCPServerStdio(ctx, svc)
	}

	params, err := resolveParameters(fs, flags.Config)
	if err != nil {
		return err
	}
	return runBuild(ctx, params, flags, logger)
}

// resolveParameters layers the parameter file under the flags given on the
// command line. Without -config the working directory is searched.
func resolveParameters(fs *flag.FlagSet, path string) (workflow.Parameters, error) {
	var (
		p   workflow.Parameters
		err error
	)
	if path != "" {
		p, err = config.LoadFile(path)
	} else {
		p, err = config.Load(".")
	}
	if err != nil {
		return p, err
	}

	overlay := flag.NewFlagSet("overlay", flag.ContinueOnError)
	overlay.SetOutput(io.Discard)
	bindParameterFlags(overlay, &p)

	fs.Visit(func(f *flag.Flag) {
		if err != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		if serr := overlay.Set(f.Name, f.Value.String()); serr != nil {
			err = fmt.Errorf("flag -%s: %w", f.Name, serr)
		}
	})
	return p, err
}
