package callresolve

import (
	"strings"

	"github.com/taintgraph/engine/model"
)

// SymbolTable indexes every class record discovered across the program,
// by both qualified and simple name, so a bare type reference on a
// parameter, local, or field can be turned back into the class it names.
type SymbolTable struct {
	byQualified map[string]*model.ClassRecord
	bySimple    map[string][]*model.ClassRecord
}

// NewSymbolTable builds a table over every class discovered in the run.
func NewSymbolTable(classes []*model.ClassRecord) *SymbolTable {
	t := &SymbolTable{
		byQualified: make(map[string]*model.ClassRecord),
		bySimple:    make(map[string][]*model.ClassRecord),
	}
	for _, c := range classes {
		t.byQualified[c.QualifiedName] = c
		t.bySimple[c.Name] = append(t.bySimple[c.Name], c)
	}
	return t
}

// Class looks up a class by its fully qualified name.
func (t *SymbolTable) Class(qualifiedName string) (*model.ClassRecord, bool) {
	c, ok := t.byQualified[qualifiedName]
	return c, ok
}

// Resolve turns a declared type's simple name into the class it names.
// Ambiguity (same simple name declared in more than one package) is broken
// in favor of a class in the caller's own package, then falls back to
// whichever candidate was discovered first.
func (t *SymbolTable) Resolve(typeName, callerPackage string) (*model.ClassRecord, bool) {
	typeName = baseTypeName(typeName)
	if c, ok := t.byQualified[typeName]; ok {
		return c, true
	}
	candidates := t.bySimple[typeName]
	if len(candidates) == 0 {
		return nil, false
	}
	for _, c := range candidates {
		if c.Package == callerPackage {
			return c, true
		}
	}
	return candidates[0], true
}

// baseTypeName strips generic parameters and array brackets from a
// declared type: "List<String>" -> "List", "byte[]" -> "byte".
func baseTypeName(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, '['); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
