package defuse

import "github.com/taintgraph/engine/model"

// scope tracks which names are visible as the DEF/USE visitor descends into
// nested blocks. LocalVars is a flat stack; Stamp/Truncate give block-entry
// and block-exit semantics without a separate scope-tree structure, mirroring
// spec.md §4.4's "stamped at block entry, truncated at block exit" rule.
type scope struct {
	LocalVars []string
	params    map[string]struct{}
	fields    map[string]struct{}
}

func newScope(method *model.Method, fields []model.Field) *scope {
	params := make(map[string]struct{}, len(method.Params))
	for _, p := range method.Params {
		params[p.Name] = struct{}{}
	}
	fieldSet := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		fieldSet[f.Name] = struct{}{}
	}
	return &scope{params: params, fields: fieldSet}
}

// Stamp returns the current length of LocalVars, to be passed to Truncate
// when the enclosing block exits.
func (s *scope) Stamp() int {
	return len(s.LocalVars)
}

// Truncate drops every local declared since the matching Stamp.
func (s *scope) Truncate(mark int) {
	s.LocalVars = s.LocalVars[:mark]
}

// Declare adds a local to scope (a declarator, a catch's synthetic
// exception local, a for-loop variable, or a try-with-resources resource).
func (s *scope) Declare(name string) {
	if name != "" {
		s.LocalVars = append(s.LocalVars, name)
	}
}

// IsDefined reports whether name resolves to a parameter, an in-scope
// local, a field of the enclosing class(es), or the keyword this — spec.md §4.4's
// acceptance filter for DEF/USE/SelfFlow candidates.
func (s *scope) IsDefined(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := s.params[name]; ok {
		return true
	}
	for i := len(s.LocalVars) - 1; i >= 0; i-- {
		if s.LocalVars[i] == name {
			return true
		}
	}
	if _, ok := s.fields[name]; ok {
		return true
	}
	return name == "this"
}
