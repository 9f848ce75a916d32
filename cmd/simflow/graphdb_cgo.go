//go:build cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/simflow/internal/graph"
)

func openGraphDB(path string) (graph.Store, error) {
	store, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open graph database %s: %w", path, err)
	}
	return store, nil
}
