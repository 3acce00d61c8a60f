package sourcesink

import "github.com/taintgraph/engine/model"

// Finder runs a single FrameworkRules implementation over every
// compilation unit in a run, deduplicating findings by SharedID (a
// pathological input could otherwise have a getter counted twice if two
// AST walks somehow both visited it — defensive, not expected in
// practice).
type Finder struct {
	Rules FrameworkRules
}

// New creates a Finder bound to one framework's rules, selected once at
// pipeline start from the `web-framework` config key.
func New(rules FrameworkRules) *Finder {
	return &Finder{Rules: rules}
}

// Unit pairs a compilation unit's AST with the class records the
// extractor produced from the same file.
type Unit struct {
	AST     *model.AST
	Classes []*model.ClassRecord
}

// Find runs source and sink discovery over every unit, returning the
// deduplicated union.
func (f *Finder) Find(units []Unit) ([]model.Source, []model.Sink) {
	seenSources := make(map[model.SharedID]struct{})
	seenSinks := make(map[model.SharedID]struct{})
	var sources []model.Source
	var sinks []model.Sink

	for _, u := range units {
		for _, s := range f.Rules.FindSources(u.AST, u.Classes) {
			if _, dup := seenSources[s.SharedID]; dup {
				continue
			}
			seenSources[s.SharedID] = struct{}{}
			sources = append(sources, s)
		}
		for _, s := range f.Rules.FindSinks(u.AST) {
			if _, dup := seenSinks[s.SharedID]; dup {
				continue
			}
			seenSinks[s.SharedID] = struct{}{}
			sinks = append(sinks, s)
		}
	}
	return sources, sinks
}
