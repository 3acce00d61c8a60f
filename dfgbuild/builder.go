// Package dfgbuild adds data-flow edges to a DFG already annotated with
// DEF/USE/SelfFlow sets (defuse.Analyzer's output), implementing spec.md
// §4.5: self-flow edges plus each-def-to-first-use-per-path
// reaching-definition edges, computed by bounded CFG traversal.
package dfgbuild

import "github.com/taintgraph/engine/model"

// Builder inserts DFG edges for a single method's CFG/DFG pair.
type Builder struct{}

// New creates a Builder.
func New() *Builder {
	return &Builder{}
}

// Build adds self-flow and reaching-definition intra-edges to dfg in
// place, using cfg to drive traversal order. dfg and cfg must be for the
// same method and share SharedIDs node-for-node.
func (b *Builder) Build(cfg *model.CFG, dfg *model.DFG) {
	for _, n := range dfg.Nodes {
		for _, v := range n.SelfFlowSlice() {
			dfg.AddEdge(n.ID, n.ID, v, model.DFGIntra)
		}
	}

	for _, n := range dfg.Nodes {
		if len(n.DEFs) == 0 && n.IpDefs == "" {
			continue
		}
		for _, v := range n.DefSlice() {
			b.reachingDefs(cfg, dfg, n, v)
		}
	}
}

// reachingDefs walks forward from d's CFG node, stopping a sub-path as
// soon as a node re-defines v, and recording an intra-edge to every node
// along the way that uses v before that happens.
func (b *Builder) reachingDefs(cfg *model.CFG, dfg *model.DFG, d *model.DFGNode, v string) {
	cfgNode, ok := cfg.Nodes[d.ID]
	if !ok {
		return
	}
	visited := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, edge := range cfg.Successors(id) {
			u, ok := dfg.Nodes[edge.To]
			if !ok {
				walk(edge.To)
				continue
			}
			if uses(u, v) {
				dfg.AddEdge(d.ID, u.ID, v, model.DFGIntra)
			}
			if redefines(u, v) {
				continue
			}
			walk(edge.To)
		}
	}
	walk(cfgNode.ID)
}

func uses(n *model.DFGNode, v string) bool {
	_, ok := n.USEs[v]
	return ok
}

func redefines(n *model.DFGNode, v string) bool {
	_, ok := n.DEFs[v]
	return ok
}
