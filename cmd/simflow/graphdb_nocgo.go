//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/simflow/internal/graph"
)

func openGraphDB(string) (graph.Store, error) {
	return nil, errors.New("graph database support requires a cgo build")
}
