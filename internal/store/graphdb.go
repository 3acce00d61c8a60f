package store

import (
	"github.com/taintgraph/engine/diagnostic"
	"github.com/taintgraph/engine/internal/config"
)

// GraphDBClient is the external graph-database collaborator spec.md §6
// treats as out of scope ("the graph database used only for ad-hoc
// querying"): bulk-load the computed graphs once, then serve read-only
// queries against them.
type GraphDBClient interface {
	// BulkPopulate loads a collection's documents into the graph database
	// in one batch, keyed as they are in the document store.
	BulkPopulate(collection Collection, docs map[string][]byte) error

	// Query runs a read-only graph query and returns raw result rows.
	Query(gremlin string) ([][]byte, error)
}

// NullGraphDBClient is a GraphDBClient that accepts bulk loads silently
// and returns no rows — the default when no orientdb-name/gremlin-name
// config key is set.
type NullGraphDBClient struct{}

func (NullGraphDBClient) BulkPopulate(Collection, map[string][]byte) error { return nil }

func (NullGraphDBClient) Query(string) ([][]byte, error) { return nil, nil }

// NewGraphDBClient selects a GraphDBClient for cfg: the null client unless
// a graph-DB backend was named in config, in which case every call fails
// with diagnostic.ErrGraphDBUnconfigured since no real OrientDB/Gremlin
// driver exists in this build.
func NewGraphDBClient(cfg *config.Config) GraphDBClient {
	if !cfg.GraphDBConfigured() {
		return NullGraphDBClient{}
	}
	return unconfiguredGraphDBClient{}
}

type unconfiguredGraphDBClient struct{}

func (unconfiguredGraphDBClient) BulkPopulate(Collection, map[string][]byte) error {
	return diagnostic.ErrGraphDBUnconfigured
}

func (unconfiguredGraphDBClient) Query(string) ([][]byte, error) {
	return nil, diagnostic.ErrGraphDBUnconfigured
}
