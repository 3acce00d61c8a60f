// Package callresolve links call sites across method boundaries. For every
// ASTCall whose receiver type (or, for an unqualified call, the enclosing
// class) resolves to a user-defined method the program already has a
// CFG/DFG for, it stamps the DFG node containing the call with the
// callee's entry SharedID (model.DFGNode.IpDefs), implementing spec.md
// §4.6's inter-procedural linking. A callee the resolver can't pin down —
// a built-in collection method, an unresolved receiver type, a callee
// outside the analyzed source set — is left unlinked; reachability simply
// stops at that call rather than guessing. Resolution is by (class, method
// name) only: overloads share one Program.Methods key, so a call links to
// whichever overload was registered last.
package callresolve

import "github.com/taintgraph/engine/model"

// MethodGraphs bundles the per-method artifacts the resolver needs to both
// read a call site's context and write its outcome.
type MethodGraphs struct {
	AST    *model.AST
	CFG    *model.CFG
	DFG    *model.DFG
	Class  *model.ClassRecord
	Method *model.Method
	Node   *model.ASTNode // the Method/Constructor AST node
}

// Program is the whole-run registry the resolver consults: every class
// discovered (for receiver-type lookups) and every method actually built
// into a CFG/DFG pair (for "does the callee exist" checks).
type Program struct {
	Symbols *SymbolTable
	Methods map[string]*MethodGraphs
}

// NewProgram creates an empty registry seeded with every discovered class.
func NewProgram(classes []*model.ClassRecord) *Program {
	return &Program{
		Symbols: NewSymbolTable(classes),
		Methods: make(map[string]*MethodGraphs),
	}
}

// Register records a method's built graphs under its qualified name
// (package.Class.method), the key both this resolver and the store use.
func (p *Program) Register(qualifiedMethod string, g *MethodGraphs) {
	p.Methods[qualifiedMethod] = g
}

// Resolver performs inter-procedural linking over an already-registered
// Program.
type Resolver struct {
	program *Program
}

// New creates a Resolver over program. Every method the resolver needs to
// link into must already be registered — Link only ever reads Program, it
// never builds new CFG/DFG pairs itself.
func New(program *Program) *Resolver {
	return &Resolver{program: program}
}

// Link walks one method's AST, resolving every call site it can and
// stamping IpDefs on the DFG node that contains it. Safe to call once per
// method, in any order, since linking a call never mutates the callee.
func (r *Resolver) Link(g *MethodGraphs) {
	parents := g.AST.ParentIndex()
	locals := localTypes(g.Node)

	var walk func(n *model.ASTNode)
	walk = func(n *model.ASTNode) {
		if n == nil {
			return
		}
		if n.Kind == model.ASTCall {
			r.linkCall(g, parents, locals, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(g.Node)
}

func (r *Resolver) linkCall(g *MethodGraphs, parents map[string]*model.ASTNode, locals map[string]string, call *model.ASTNode) {
	calleeQN, ok := r.resolveCallee(g, locals, call)
	if !ok {
		return
	}
	callee, ok := r.program.Methods[calleeQN]
	if !ok {
		return
	}
	entry, ok := entryDFGNode(callee.CFG, callee.DFG)
	if !ok {
		return
	}
	dfgNode, ok := model.LiftToDFGNode(parents, call, g.DFG)
	if !ok {
		return
	}
	dfgNode.IpDefs = string(entry.SharedID)
}

// resolveCallee implements spec.md §4.6's lookup order: a qualified call
// (a.b(...)) resolves the receiver's declared type through parameters,
// then locals, then fields of the enclosing class, then fields of its
// outer class; an unqualified call
// (b(...)) is either a constructor invocation (object_creation_expression,
// whose Name is the type being constructed) or an implicit-this call on
// the enclosing class.
func (r *Resolver) resolveCallee(g *MethodGraphs, locals map[string]string, call *model.ASTNode) (string, bool) {
	if recv := call.Slot(model.SlotReceiver); recv != nil {
		typeName, ok := r.receiverType(g, locals, recv)
		if !ok || isBuiltin(typeName) {
			return "", false
		}
		class, ok := r.program.Symbols.Resolve(typeName, g.Class.Package)
		if !ok {
			return "", false
		}
		if _, ok := class.MethodByName(call.Name); !ok {
			return "", false
		}
		return class.QualifiedName + "." + call.Name, true
	}

	if ctor, ok := r.program.Symbols.Resolve(call.Name, g.Class.Package); ok {
		if _, ok := ctor.MethodByName(call.Name); ok && ctor.Name == call.Name {
			return ctor.QualifiedName + "." + call.Name, true
		}
	}

	if _, ok := g.Class.MethodByName(call.Name); ok {
		return g.Class.QualifiedName + "." + call.Name, true
	}
	return "", false
}

// receiverType finds the declared type of a call's receiver expression,
// checking method parameters, then locals, then fields of the enclosing
// class, then fields of the outer class a nested class is declared in, in
// that order.
func (r *Resolver) receiverType(g *MethodGraphs, locals map[string]string, recv *model.ASTNode) (string, bool) {
	name := receiverName(recv)
	if name == "" {
		return "", false
	}
	if name == "this" {
		return g.Class.QualifiedName, true
	}
	if name == "super" {
		return g.Class.Extends, true
	}
	for _, p := range g.Method.Params {
		if p.Name == name {
			return p.Type, true
		}
	}
	if t, ok := locals[name]; ok {
		return t, true
	}
	if f, ok := g.Class.FieldByName(name); ok {
		return f.Type, true
	}
	if n := len(g.Class.QualifiedName) - len(g.Class.Name) - 1; n > 0 {
		if outer, ok := r.program.Symbols.Class(g.Class.QualifiedName[:n]); ok {
			if f, ok := outer.FieldByName(name); ok {
				return f.Type, true
			}
		}
	}
	return "", false
}

// receiverName reduces a receiver expression to the simple or dotted name
// it reads as, for scope lookup. A receiver that isn't itself a name or
// dotted chain (e.g. the result of another call) has no declared type the
// resolver can see, so it's left unresolved.
func receiverName(n *model.ASTNode) string {
	switch n.Kind {
	case model.ASTName:
		return n.Name
	case model.ASTDot:
		if len(n.Children) == 0 {
			return n.Name
		}
		base := receiverName(n.Children[0])
		if base == "" {
			return n.Name
		}
		return base + "." + n.Name
	default:
		return ""
	}
}

// localTypes collects every local variable's declared type from a method
// body, keyed by name, so the resolver can answer "what type is this
// receiver" without re-running the DEF/USE analyzer's scoping pass.
// Reassigned-in-place shadowing across nested blocks is not modelled —
// the last VarDecl seen for a name wins, matching the common case of one
// declaration per name per method.
func localTypes(methodNode *model.ASTNode) map[string]string {
	out := make(map[string]string)
	var walk func(n *model.ASTNode)
	walk = func(n *model.ASTNode) {
		if n == nil {
			return
		}
		if n.Kind == model.ASTVarDecl && n.Name != "" {
			out[n.Name] = n.Type
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(methodNode)
	return out
}

// entryDFGNode finds the first statement-level DFG node reachable from a
// CFG's Entry — the callee's real first point of execution, since Entry
// itself is a structural marker with no DFG counterpart.
func entryDFGNode(cfg *model.CFG, dfg *model.DFG) (*model.DFGNode, bool) {
	visited := make(map[string]bool)
	var walk func(id string) (*model.DFGNode, bool)
	walk = func(id string) (*model.DFGNode, bool) {
		if visited[id] {
			return nil, false
		}
		visited[id] = true
		if n, ok := cfg.Nodes[id]; ok {
			if dn, ok := dfg.NodeBySharedID(n.SharedID); ok {
				return dn, true
			}
		}
		for _, e := range cfg.Successors(id) {
			if dn, ok := walk(e.To); ok {
				return dn, true
			}
		}
		return nil, false
	}
	return walk(cfg.Entry)
}
