package main

import (
	"context"
	"flag"
	"io"

	"github.com/dusk-indust/simflow/internal/httpapi"
)

// runServe runs the HTTP API until ctx is cancelled.
func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", ":8080", "listen address")
	graphDB := fs.String("graph-db", "", "store each built workflow in a Kuzu database at this path")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []httpapi.Option{httpapi.WithLogger(newLogger(*logLevel, *logFormat, stderr))}
	if *graphDB != "" {
		store, err := openGraphDB(*graphDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, httpapi.WithGraphStore(store))
	}
	return httpapi.New(opts...).Run(ctx, *addr)
}
