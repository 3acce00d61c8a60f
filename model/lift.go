package model

// LiftToDFGNode walks from an AST node up through its ancestors (via the
// tree's ParentIndex) until it finds one whose SharedId has a DFG
// counterpart. Both the call resolver (to find "the DFG node containing
// this call", spec.md §4.6) and the reachability engine (to lift a
// source/sink AST node to its enclosing statement, spec.md §4.8) need
// exactly this walk.
func LiftToDFGNode(idx map[string]*ASTNode, from *ASTNode, dfg *DFG) (*DFGNode, bool) {
	n := from
	for n != nil {
		if dn, ok := dfg.NodeBySharedID(n.SharedID); ok {
			return dn, true
		}
		n = idx[n.ID]
	}
	return nil, false
}
