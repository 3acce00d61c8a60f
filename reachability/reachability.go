// Package reachability implements spec.md §4.8: for each (source, sink)
// pair, lift both AST nodes to their enclosing DFG node, then BFS the
// source's DFG forward over Intra edges, descending into a callee's DFG
// whenever a dequeued node carries IpDefs, until a node sharing the
// sink's SharedID is found.
package reachability

import "github.com/taintgraph/engine/model"

// MethodDFG is one method's DFG plus the AST it was lifted from, the pair
// the engine needs to both find a source/sink's enclosing node and to
// follow IpDefs into a callee.
type MethodDFG struct {
	AST *model.AST
	DFG *model.DFG
}

// Program is the whole-run registry the engine searches: every method's
// DFG, held as a plain list, plus a lookup from DFGNode.IpDefs (a callee SharedID) to
// the MethodDFG that SharedID lives in — IpDefs names a node, not a
// method, so descent needs to find which DFG contains it.
type Program struct {
	bySharedID map[model.SharedID]*MethodDFG
	methods    []*MethodDFG
}

// NewProgram indexes every registered method's DFG by the SharedID of
// each of its nodes, so IpDefs (a SharedID) can be resolved to "which
// DFG, and which node in it" in one lookup.
func NewProgram(methods []*MethodDFG) *Program {
	p := &Program{bySharedID: make(map[model.SharedID]*MethodDFG), methods: methods}
	for _, m := range methods {
		for _, n := range m.DFG.Nodes {
			p.bySharedID[n.SharedID] = m
		}
	}
	return p
}

// Engine runs reachability queries over a Program.
type Engine struct {
	program *Program
}

// New creates an Engine over program.
func New(program *Program) *Engine {
	return &Engine{program: program}
}

// Reaches reports whether sink is reachable from source: both are lifted
// to their enclosing DFG node (walking up source's AST's parent index),
// then a BFS runs forward from the source's DFG node, crossing into a
// callee's DFG via IpDefs whenever a visited node carries one, until a
// node with sink's SharedID is dequeued.
func (e *Engine) Reaches(sourceAST, sinkAST *model.AST, source model.Source, sink model.Sink) bool {
	_, sourceNode, ok := e.lift(sourceAST, source.SharedID)
	if !ok {
		return false
	}
	_, sinkNode, ok := e.lift(sinkAST, sink.SharedID)
	if !ok {
		return false
	}
	return e.bfs(sourceNode, sinkNode.SharedID, make(map[string]bool))
}

// FindFlows runs Reaches for every (source, sink) pair whose files are
// present in asts, returning the deduplicated set of confirmed flows —
// spec.md §8's invariant 6, no two entries sharing a
// (source.SharedId, sink.SharedId, vulnerability) triple.
func (e *Engine) FindFlows(asts map[string]*model.AST, sources []model.Source, sinks []model.Sink) []model.TaintFlow {
	seen := make(map[[3]string]struct{})
	var flows []model.TaintFlow

	for _, src := range sources {
		sourceAST, ok := asts[src.File]
		if !ok {
			continue
		}
		for _, sink := range sinks {
			sinkAST, ok := asts[sink.File]
			if !ok {
				continue
			}
			if !e.Reaches(sourceAST, sinkAST, src, sink) {
				continue
			}
			flow := model.TaintFlow{
				SourceSharedID: src.SharedID, SinkSharedID: sink.SharedID,
				SourceFile: src.File, SourceLine: src.Line,
				SinkFile: sink.File, SinkLine: sink.Line,
				Kind: sink.Kind,
			}
			if _, dn, ok := e.lift(sourceAST, src.SharedID); ok {
				flow.SourceDfNode = dn.ID
			}
			if _, dn, ok := e.lift(sinkAST, sink.SharedID); ok {
				flow.SinkDfNode = dn.ID
			}
			key := flow.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			flows = append(flows, flow)
		}
	}
	return flows
}

// lift walks up from the AST node with the given SharedID until it finds
// an ancestor with a DFG counterpart in this source's own method.
func (e *Engine) lift(ast *model.AST, sharedID model.SharedID) (*MethodDFG, *model.DFGNode, bool) {
	astNode, ok := ast.NodeBySharedID(sharedID)
	if !ok {
		return nil, nil, false
	}
	m, ok := e.program.bySharedID[sharedID]
	if ok {
		if dn, ok := m.DFG.NodeBySharedID(sharedID); ok {
			return m, dn, true
		}
	}
	parents := ast.ParentIndex()
	for n := astNode; n != nil; n = parents[n.ID] {
		if m, ok := e.program.bySharedID[n.SharedID]; ok {
			if dn, ok := m.DFG.NodeBySharedID(n.SharedID); ok {
				return m, dn, true
			}
		}
	}
	return nil, nil, false
}

// frontier pairs a DFG node with the method DFG it belongs to, since BFS
// crossing into a callee changes which DFG subsequent IntraSuccessors
// lookups must run against.
type frontier struct {
	method *MethodDFG
	node   *model.DFGNode
}

// bfs explores forward from start, crossing into callee DFGs via IpDefs.
// visited is keyed by "{method}:{nodeID}" so the same graph-local ID in
// two different methods is never conflated.
func (e *Engine) bfs(start *model.DFGNode, targetSharedID model.SharedID, visited map[string]bool) bool {
	startMethod, ok := e.program.bySharedID[start.SharedID]
	if !ok {
		return false
	}
	queue := []frontier{{startMethod, start}}
	visited[startMethod.DFG.Method+":"+start.ID] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, m := cur.node, cur.method

		if n.SharedID == targetSharedID {
			return true
		}

		if n.IpDefs != "" {
			if callee, ok := e.program.bySharedID[model.SharedID(n.IpDefs)]; ok {
				if entry, ok := callee.DFG.NodeBySharedID(model.SharedID(n.IpDefs)); ok {
					k := callee.DFG.Method + ":" + entry.ID
					if !visited[k] {
						visited[k] = true
						queue = append(queue, frontier{callee, entry})
					}
				}
			}
		}

		for _, edge := range m.DFG.IntraSuccessors(n.ID) {
			next, ok := m.DFG.Nodes[edge.Target]
			if !ok {
				continue
			}
			k := m.DFG.Method + ":" + next.ID
			if visited[k] {
				continue
			}
			visited[k] = true
			queue = append(queue, frontier{m, next})
		}
	}
	return false
}
