// Package sourcesink discovers tainted-data entry points and dangerous
// sink calls by structural AST queries, keyed by the configured
// web-framework family, implementing spec.md §4.7. Neither family does
// any type inference beyond the class/method/field records the extractor
// already produced — a source or sink this package can't see statically
// (reflection-dispatched setters, dynamically built query strings) is
// simply absent from the result set, per spec.md §7's
// missing-framework-data error kind.
package sourcesink

import "github.com/taintgraph/engine/model"

// FrameworkRules finds sources and sinks within a single compilation
// unit's AST, given the class records (declarations only — the shape the
// extractor already produced) belonging to that unit.
type FrameworkRules interface {
	// FindSources returns every tainted-data entry point FrameworkRules
	// recognizes in ast, scoped to the class records from the same file.
	FindSources(ast *model.AST, classes []*model.ClassRecord) []model.Source
	// FindSinks returns every dangerous call FrameworkRules recognizes in
	// ast. Sinks are not scoped to a class family — any call matching a
	// sink name is reported, matching spec.md §4.7's "calls to
	// persistence-query entry points" (no ancestry requirement on sinks).
	FindSinks(ast *model.AST) []model.Sink
}
