package sourcesink

import (
	"strings"

	"github.com/taintgraph/engine/callresolve"
	"github.com/taintgraph/engine/model"
)

// struts2Sinks are the MVC-action family's dangerous call names: per
// spec.md §4.7, persistence-query entry points plus process-exec APIs.
var struts2Sinks = map[string]model.VulnerabilityKind{
	"createQuery": model.VulnSQLInjection,
	"save":        model.VulnSQLInjection,
	"exec":        model.VulnCommandInjection,
}

// Struts2Rules implements FrameworkRules for the MVC-action framework
// family: action classes whose transitive parent is ActionSupport.
type Struts2Rules struct {
	// Symbols resolves a class's Extends name to the class record it
	// names, so ancestry can be walked across files.
	Symbols *callresolve.SymbolTable
}

// NewStruts2Rules creates Struts2Rules over the program's class symbol
// table.
func NewStruts2Rules(symbols *callresolve.SymbolTable) *Struts2Rules {
	return &Struts2Rules{Symbols: symbols}
}

// FindSources reports, for every action class in classes: its getter
// method declarations (the field value leaves through the getter's public
// surface), and setter invocations / direct assignments to its fields,
// found anywhere in the action class's own body (the common Struts2
// idiom of a handler method calling this.setX(...) or assigning the field
// directly — spec.md's S1 scenario).
func (r *Struts2Rules) FindSources(ast *model.AST, classes []*model.ClassRecord) []model.Source {
	var out []model.Source
	for _, class := range classes {
		if !r.isActionClass(class) {
			continue
		}
		classNode, ok := findClassNode(ast, class.Name)
		if !ok {
			continue
		}
		fieldNames := make(map[string]struct{}, len(class.Fields))
		for _, f := range class.Fields {
			fieldNames[f.Name] = struct{}{}
		}

		var walk func(n *model.ASTNode)
		walk = func(n *model.ASTNode) {
			if n == nil {
				return
			}
			switch n.Kind {
			case model.ASTMethod:
				if field, ok := accessorField(n.Name); ok {
					if _, isField := fieldNames[field]; isField && isGetterName(n.Name) {
						out = append(out, model.Source{
							SharedID: n.SharedID, Kind: model.VulnSQLInjection, File: n.File, Line: n.Line,
							Description: "getter " + n.Name + " exposes action field " + field,
						})
					}
				}
			case model.ASTCall:
				if field, ok := accessorField(n.Name); ok && isSetterName(n.Name) {
					if _, isField := fieldNames[field]; isField {
						out = append(out, model.Source{
							SharedID: n.SharedID, Kind: model.VulnSQLInjection, File: n.File, Line: n.Line,
							Description: "setter invocation " + n.Name + " assigns action field " + field,
						})
					}
				}
			case model.ASTAssign:
				if left := n.Slot(model.SlotLeft); left != nil {
					if name := leafName(left); name != "" {
						if _, isField := fieldNames[name]; isField {
							out = append(out, model.Source{
								SharedID: n.SharedID, Kind: model.VulnSQLInjection, File: n.File, Line: n.Line,
								Description: "direct assignment to action field " + name,
							})
						}
					}
				}
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
		walk(classNode)
	}
	return out
}

// FindSinks reports every call to a Struts2 sink name, anywhere in ast.
func (r *Struts2Rules) FindSinks(ast *model.AST) []model.Sink {
	var out []model.Sink
	for _, n := range ast.AllNodes() {
		if n.Kind != model.ASTCall {
			continue
		}
		kind, ok := struts2Sinks[n.Name]
		if !ok {
			continue
		}
		out = append(out, model.Sink{
			SharedID: n.SharedID, Kind: kind, File: n.File, Line: n.Line,
			Description: "call to " + n.Name,
			Argument:    firstArgText(n),
		})
	}
	return out
}

// isActionClass walks the Extends chain (across files, via Symbols) up to
// a fixed depth looking for the literal ActionSupport base, guarding
// against a cyclic or unbounded Extends chain in malformed input.
func (r *Struts2Rules) isActionClass(class *model.ClassRecord) bool {
	const maxDepth = 32
	current := class
	for i := 0; i < maxDepth; i++ {
		if current.Extends == "" {
			return false
		}
		if baseName(current.Extends) == "ActionSupport" {
			return true
		}
		parent, ok := r.Symbols.Resolve(current.Extends, current.Package)
		if !ok {
			return false
		}
		current = parent
	}
	return false
}

func baseName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func isGetterName(method string) bool {
	return strings.HasPrefix(method, "get") || strings.HasPrefix(method, "is")
}

func isSetterName(method string) bool {
	return strings.HasPrefix(method, "set")
}

// accessorField turns "getQ"/"setQ"/"isQ" into its field name "q" (lower
// camel case, matching the common Java bean convention).
func accessorField(method string) (string, bool) {
	var prefixLen int
	switch {
	case strings.HasPrefix(method, "get"), strings.HasPrefix(method, "set"):
		prefixLen = 3
	case strings.HasPrefix(method, "is"):
		prefixLen = 2
	default:
		return "", false
	}
	rest := method[prefixLen:]
	if rest == "" {
		return "", false
	}
	return strings.ToLower(rest[:1]) + rest[1:], true
}

func findClassNode(ast *model.AST, simpleName string) (*model.ASTNode, bool) {
	for _, n := range ast.AllNodes() {
		if n.Kind == model.ASTClass && n.Name == simpleName {
			return n, true
		}
	}
	return nil, false
}

// leafName reduces an assignment's left-hand side to the field name it
// writes: "q" stays "q", "this.q" reduces to "q".
func leafName(n *model.ASTNode) string {
	if n == nil {
		return ""
	}
	if n.Kind == model.ASTDot {
		return n.Name
	}
	return n.Name
}

// firstArgText returns the literal source text of a call's first
// argument, skipping the receiver child if the call is qualified.
func firstArgText(call *model.ASTNode) string {
	recv := call.Slot(model.SlotReceiver)
	for _, c := range call.Children {
		if c == recv {
			continue
		}
		return c.Code
	}
	return ""
}
