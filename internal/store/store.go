// Package store implements the document store contract spec.md §6 treats
// as an external collaborator ("persistent key-value store ... a commit-at-
// end document store"): a top-level map of named collections, each a
// JSON-serialized blob keyed by qualified name, staged in memory and
// flushed to disk only on an explicit Commit — spec.md §5's "append-only
// in-memory structures per file ... flushed to the document store at
// well-defined stage boundaries".
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/taintgraph/engine/model"
)

// Collection names the store's six top-level maps.
type Collection string

const (
	CollectionASTs        Collection = "asts"
	CollectionCFGs        Collection = "cfgs"
	CollectionDFGs        Collection = "dfgs"
	CollectionJavaClasses Collection = "javaClasses"
	CollectionTaintFlows  Collection = "taintFlows"
	CollectionCallGraph   Collection = "callGraph"
)

// Store is the document store: a staged, in-memory overlay over a
// modernc.org/sqlite-backed key/value table, committed explicitly.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	staged map[Collection]map[string]json.RawMessage
}

// Open opens (creating if absent) the sqlite-backed store at path and
// ensures its single key/value table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		PRIMARY KEY (collection, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store schema: %w", err)
	}
	return &Store{
		db:     db,
		path:   path,
		staged: make(map[Collection]map[string]json.RawMessage),
	}, nil
}

// Close releases the underlying database handle. Staged, uncommitted
// writes are discarded.
func (s *Store) Close() error {
	return s.db.Close()
}

// stage records a document in the in-memory overlay, not yet durable.
func (s *Store) stage(coll Collection, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s/%s: %w", coll, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged[coll] == nil {
		s.staged[coll] = make(map[string]json.RawMessage)
	}
	s.staged[coll][key] = raw
	return nil
}

// PutAST stages an AST document, keyed by file-qualified name
// (package.basename).
func (s *Store) PutAST(qualifiedName string, ast *model.AST) error {
	return s.stage(CollectionASTs, qualifiedName, ast)
}

// PutCFG stages a CFG document, keyed by qualified method name.
func (s *Store) PutCFG(qualifiedMethod string, cfg *model.CFG) error {
	return s.stage(CollectionCFGs, qualifiedMethod, cfg)
}

// PutDFG stages a DFG document, keyed by qualified method name.
func (s *Store) PutDFG(qualifiedMethod string, dfg *model.DFG) error {
	return s.stage(CollectionDFGs, qualifiedMethod, dfg)
}

// PutClass stages a class record, keyed by qualified class name.
func (s *Store) PutClass(qualifiedName string, class *model.ClassRecord) error {
	return s.stage(CollectionJavaClasses, qualifiedName, class)
}

// PutTaintFlows stages the complete taint-flow list under a single
// well-known key, replacing any previously staged list.
func (s *Store) PutTaintFlows(flows []model.TaintFlow) error {
	return s.stage(CollectionTaintFlows, "flows", flows)
}

// PutCallGraph stages the inter-procedural call graph, keyed by caller
// qualified method name, as a list of callee qualified method names.
func (s *Store) PutCallGraph(edges map[string][]string) error {
	return s.stage(CollectionCallGraph, "edges", edges)
}

// Commit flushes every staged document to the sqlite table in a single
// transaction, then clears the overlay. A failed Commit leaves the
// overlay untouched so the caller can retry.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.staged) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning commit: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO documents (collection, key, value) VALUES (?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing commit statement: %w", err)
	}
	defer stmt.Close()

	for coll, docs := range s.staged {
		for key, raw := range docs {
			if _, err := stmt.Exec(string(coll), key, []byte(raw)); err != nil {
				tx.Rollback()
				return fmt.Errorf("committing %s/%s: %w", coll, key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store: %w", err)
	}

	s.staged = make(map[Collection]map[string]json.RawMessage)
	return nil
}

// get reads a document, checking the staged overlay before the committed
// table so a read immediately after a Put sees its own write.
func (s *Store) get(coll Collection, key string, out interface{}) (bool, error) {
	s.mu.Lock()
	if docs, ok := s.staged[coll]; ok {
		if raw, ok := docs[key]; ok {
			s.mu.Unlock()
			return true, json.Unmarshal(raw, out)
		}
	}
	s.mu.Unlock()

	var raw []byte
	row := s.db.QueryRow(`SELECT value FROM documents WHERE collection = ? AND key = ?`, string(coll), key)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("reading %s/%s: %w", coll, key, err)
	}
	return true, json.Unmarshal(raw, out)
}

// GetAST reads back a previously stored AST document.
func (s *Store) GetAST(qualifiedName string) (*model.AST, bool, error) {
	var ast model.AST
	ok, err := s.get(CollectionASTs, qualifiedName, &ast)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &ast, true, nil
}

// GetTaintFlows reads back the committed taint-flow list.
func (s *Store) GetTaintFlows() ([]model.TaintFlow, error) {
	var flows []model.TaintFlow
	_, err := s.get(CollectionTaintFlows, "flows", &flows)
	return flows, err
}

// GetCallGraph reads back the committed call graph.
func (s *Store) GetCallGraph() (map[string][]string, error) {
	edges := make(map[string][]string)
	_, err := s.get(CollectionCallGraph, "edges", &edges)
	return edges, err
}
