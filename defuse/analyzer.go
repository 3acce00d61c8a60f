// Package defuse computes, for every statement-level node of a method's
// CFG, the set of variables it DEFines, USEs, and both-reads-and-writes in
// the same node (SelfFlow). It implements spec.md §4.4: a fixpoint over a
// single method, monotone because DEF/USE/SelfFlow sets only ever grow.
package defuse

import (
	"strings"

	"github.com/taintgraph/engine/model"
)

var mutatingPrefixes = []string{"set", "put", "add", "insert", "push", "append"}

// Analyzer computes DEF/USE/SelfFlow annotations.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze annotates a fresh DFG, one node per statement-level CFG node,
// keyed by the SharedID it shares with both its CFG and AST counterparts.
// ast is the compilation unit's AST (used to look up the expression
// subtree behind each CFG node's SharedID); methodNode is the Method AST
// node (its parameter list seeds the initial scope); cfg is the already
// built control-flow graph for the same method. Every formal parameter is
// also seeded as a DEF on the method's first statement-level node, since a
// parameter's value is live from entry but has no CFG node of its own to
// carry that definition.
func (a *Analyzer) Analyze(ast *model.AST, methodNode *model.ASTNode, method *model.Method, fields []model.Field, cfg *model.CFG, methodFQN, file string) *model.DFG {
	dfg := model.NewDFG(methodFQN)
	for _, cfgNode := range cfg.Nodes {
		if !isStatementLevel(cfgNode.Kind) {
			continue
		}
		node := model.NewDFGNode(cfgNode.ID, cfgNode.Line, cfgNode.Code, cfgNode.SharedID, methodFQN, file)
		dfg.AddNode(node)
	}

	if entry, ok := entryNode(cfg, dfg); ok {
		for _, p := range method.Params {
			entry.AddDef(p.Name)
		}
	}

	s := newScope(method, fields)
	changed := true
	for changed {
		changed = false
		var walk func(n *model.ASTNode)
		walk = func(n *model.ASTNode) {
			if n == nil {
				return
			}
			if n.Kind == model.ASTBlock {
				mark := s.Stamp()
				for _, c := range n.Children {
					walk(c)
				}
				s.Truncate(mark)
				return
			}
			if n.Kind == model.ASTCatch {
				mark := s.Stamp()
				s.Declare(catchLocalName(n))
				for _, c := range n.Children {
					walk(c)
				}
				s.Truncate(mark)
				return
			}
			if n.Kind == model.ASTFor || n.Kind == model.ASTForEach {
				mark := s.Stamp()
				declareLoopVars(s, n)
				if n.Kind == model.ASTForEach {
					if dfgNode, ok := dfg.NodeBySharedID(n.SharedID); ok {
						if annotateForEach(dfgNode, n, s) {
							changed = true
						}
					}
				}
				for _, c := range n.Children {
					walk(c)
				}
				s.Truncate(mark)
				return
			}
			if n.Kind == model.ASTTry {
				mark := s.Stamp()
				for _, c := range n.Children {
					if c.Kind == model.ASTResource {
						s.Declare(c.Name)
					}
				}
				for _, c := range n.Children {
					walk(c)
				}
				s.Truncate(mark)
				return
			}

			if dfgNode, ok := dfg.NodeBySharedID(n.SharedID); ok {
				if annotate(dfgNode, n, s) {
					changed = true
				}
			}
			if n.Kind == model.ASTVarDecl {
				s.Declare(n.Name)
			}

			for _, c := range n.Children {
				walk(c)
			}
		}
		walk(methodNode)
	}
	return dfg
}

// entryNode finds the first statement-level DFG node reachable from cfg's
// Entry, walking successors until one lands on a node dfg actually holds.
// A method's formal parameters are seeded as DEFs there (see Analyze),
// since they're bound before any statement runs and have no CFG node of
// their own to carry a definition.
func entryNode(cfg *model.CFG, dfg *model.DFG) (*model.DFGNode, bool) {
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

func isStatementLevel(kind model.CFGKind) bool {
	switch kind {
	case model.CFGAssign, model.CFGExpr, model.CFGIf, model.CFGWhile, model.CFGDoWhile,
		model.CFGForExpr, model.CFGForInit, model.CFGForUpdate, model.CFGSwitch,
		model.CFGCaseStmt, model.CFGReturn, model.CFGThrow, model.CFGCatch, model.CFGResource:
		return true
	default:
		return false
	}
}

// annotate fills in a DFG node's DEF/USE/SelfFlow sets from its matching
// AST expression, plus the node's canonical textual form (spec.md §4.4
// step 2), stashed under Optional["canonical"] for callers that need a
// literal-normalized form of the statement's value expression (e.g. to
// recognize two call sites as equivalent regardless of the literal
// arguments they pass). Returns true if any set grew.
func annotate(node *model.DFGNode, ast *model.ASTNode, s *scope) bool {
	grown := false
	defs, uses, selfFlows, canonical := collect(ast, s)
	for _, d := range defs {
		if node.AddDef(d) {
			grown = true
		}
	}
	for _, u := range uses {
		if node.AddUse(u) {
			grown = true
		}
	}
	for _, sf := range selfFlows {
		if node.AddSelfFlow(sf) {
			grown = true
		}
	}
	if canonical != "" {
		if node.Optional == nil {
			node.Optional = make(map[string]string)
		}
		if node.Optional["canonical"] != canonical {
			node.Optional["canonical"] = canonical
			grown = true
		}
	}
	return grown
}

// collect walks a statement-level node's expression(s) and returns the
// DEF/USE/SelfFlow candidates, already filtered by isDefined, plus a
// canonical form of the node's value expression where one applies.
func collect(n *model.ASTNode, s *scope) (defs, uses, selfFlows []string, canonical string) {
	switch n.Kind {
	case model.ASTVarDecl:
		if n.Name != "" {
			defs = append(defs, n.Name)
		}
		if init := n.Slot(model.SlotInit); init != nil {
			uses = append(uses, collectExpr(init, s)...)
			canonical = canonicalize(init)
		}
	case model.ASTAssign:
		left := n.Slot(model.SlotLeft)
		right := n.Slot(model.SlotRight)
		if left != nil {
			if name, ok := dottedDefName(left, s); ok {
				defs = append(defs, name)
				if n.Operator != "=" {
					// compound assignment reads and writes the same name
					selfFlows = append(selfFlows, name)
				}
			}
		}
		if right != nil {
			uses = append(uses, collectExpr(right, s)...)
			canonical = canonicalize(right)
		}
	case model.ASTUnaryOp:
		if len(n.Children) > 0 {
			if name, ok := dottedDefName(n.Children[0], s); ok && isIncrementDecrement(n.Operator) {
				defs = append(defs, name)
				selfFlows = append(selfFlows, name)
			}
		}
		uses = append(uses, collectExpr(n, s)...)
	case model.ASTCall:
		if isMutatingCall(n) && len(n.Children) > 0 {
			recv := exprName(n.Children[0])
			if s.IsDefined(recv) {
				defs = append(defs, recv)
			}
		}
		uses = append(uses, collectExpr(n, s)...)
		canonical = canonicalize(n)
	default:
		uses = append(uses, collectExpr(n, s)...)
	}
	return dedupe(defs), dedupe(uses), dedupe(selfFlows), canonical
}

// dottedDefName resolves an assignment/increment target to the name that
// should be recorded as defined: the full dotted name if the scope
// recognizes it directly, otherwise falling back to the qualifying object
// (e.g. "this" in "this.q = q") the same way collectExpr's USE-side
// fallback already does — a field write through a dotted path still
// defines the object it's reached through, rather than being dropped.
func dottedDefName(left *model.ASTNode, s *scope) (string, bool) {
	name := exprName(left)
	if s.IsDefined(name) {
		return name, true
	}
	if left.Kind == model.ASTDot && len(left.Children) > 0 {
		base := exprName(left.Children[0])
		if s.IsDefined(base) {
			return base, true
		}
	}
	return "", false
}

// collectExpr recursively gathers every usable sub-expression (a variable
// name or dotted access, not a literal/call-result/array-index/
// prefix-postfix expression), filtered by isDefined.
func collectExpr(n *model.ASTNode, s *scope) (uses []string) {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case model.ASTName:
		if s.IsDefined(n.Name) {
			uses = append(uses, n.Name)
		}
		return uses
	case model.ASTDot:
		name := exprName(n)
		if s.IsDefined(name) {
			return append(uses, name)
		}
	case model.ASTLiteral, model.ASTCall, model.ASTArray, model.ASTUnaryOp:
		// not usable sub-expressions in their own right; fall through to
		// scan children for nested usable names (e.g. call arguments).
	}
	for _, c := range n.Children {
		uses = append(uses, collectExpr(c, s)...)
	}
	return uses
}

func exprName(n *model.ASTNode) string {
	if n == nil {
		return ""
	}
	if n.Kind == model.ASTDot {
		base := ""
		if len(n.Children) > 0 {
			base = exprName(n.Children[0])
		}
		if base == "" {
			return n.Name
		}
		return base + "." + n.Name
	}
	if n.Name != "" {
		return n.Name
	}
	return n.Code
}

func isIncrementDecrement(op string) bool {
	return op == "++" || op == "--"
}

func isMutatingCall(n *model.ASTNode) bool {
	for _, p := range mutatingPrefixes {
		if strings.HasPrefix(n.Name, p) {
			return true
		}
	}
	return false
}

func catchLocalName(n *model.ASTNode) string {
	for _, c := range n.Children {
		if c.Kind == model.ASTName {
			return c.Name
		}
	}
	return ""
}

// annotateForEach seeds a for-each header's DFG node with the loop
// variable's DEF and the collection expression's USE(s): the header binds
// a fresh variable per iteration but has no assignment node of its own to
// carry that definition.
func annotateForEach(node *model.DFGNode, n *model.ASTNode, s *scope) bool {
	grown := false
	var loopVar string
	for _, c := range n.Children {
		if c.Kind == model.ASTName && c.Name != "" {
			loopVar = c.Name
			break
		}
	}
	if loopVar != "" && node.AddDef(loopVar) {
		grown = true
	}
	if coll := forEachCollection(n); coll != nil {
		for _, u := range collectExpr(coll, s) {
			if node.AddUse(u) {
				grown = true
			}
		}
	}
	return grown
}

// forEachCollection returns a for-each header's iterated-collection
// expression: positionally, the first non-block child after the loop
// variable's name node.
func forEachCollection(n *model.ASTNode) *model.ASTNode {
	foundName := false
	for _, c := range n.Children {
		if !foundName {
			if c.Kind == model.ASTName && c.Name != "" {
				foundName = true
			}
			continue
		}
		if c.Kind == model.ASTBlock {
			return nil
		}
		return c
	}
	return nil
}

func declareLoopVars(s *scope, n *model.ASTNode) {
	if n.Kind == model.ASTForEach {
		for _, c := range n.Children {
			if c.Kind == model.ASTName && c.Name != "" {
				s.Declare(c.Name)
				return
			}
		}
		return
	}
	for _, c := range n.Children {
		if c.Kind == model.ASTVarDecl {
			s.Declare(c.Name)
		}
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
