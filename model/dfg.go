package model

// DFGEdgeKind distinguishes a data-flow edge that stays within one method's
// DFG from one that crosses into a callee's DFG.
type DFGEdgeKind string

const (
	DFGIntra DFGEdgeKind = "Intra"
	DFGInter DFGEdgeKind = "Inter"
)

// DFGNode decorates exactly one "statement-level" CFG node (same SharedID)
// with its DEF/USE/SelfFlow sets. It is produced empty by the DEF/USE
// analyzer's first pass and filled in by repeated fixpoint iteration.
type DFGNode struct {
	ID         string
	Line       uint32
	Code       string
	SharedID   SharedID
	Method     string
	File       string
	DEFs       map[string]struct{}
	USEs       map[string]struct{}
	SelfFlows  map[string]struct{}
	IpDefs     string // SharedID of a callee CFG/DFG entry node, set by the call resolver
	Optional   map[string]string
}

// NewDFGNode creates an empty, not-yet-annotated DFG node for a statement.
func NewDFGNode(id string, line uint32, code string, sharedID SharedID, method, file string) *DFGNode {
	return &DFGNode{
		ID:        id,
		Line:      line,
		Code:      code,
		SharedID:  sharedID,
		Method:    method,
		File:      file,
		DEFs:      make(map[string]struct{}),
		USEs:      make(map[string]struct{}),
		SelfFlows: make(map[string]struct{}),
	}
}

// AddDef records a DEF candidate. Returns true if this grew the set,
// letting the fixpoint driver detect "no change" termination cheaply.
func (n *DFGNode) AddDef(v string) bool {
	if _, ok := n.DEFs[v]; ok {
		return false
	}
	n.DEFs[v] = struct{}{}
	return true
}

// AddUse records a USE candidate.
func (n *DFGNode) AddUse(v string) bool {
	if _, ok := n.USEs[v]; ok {
		return false
	}
	n.USEs[v] = struct{}{}
	return true
}

// AddSelfFlow records a SelfFlow candidate (read and written in one node).
func (n *DFGNode) AddSelfFlow(v string) bool {
	if _, ok := n.SelfFlows[v]; ok {
		return false
	}
	n.SelfFlows[v] = struct{}{}
	return true
}

// DefSlice returns DEFs as a sorted-free slice (order is not meaningful;
// callers that need determinism sort it themselves).
func (n *DFGNode) DefSlice() []string { return keys(n.DEFs) }

// UseSlice returns USEs as a slice.
func (n *DFGNode) UseSlice() []string { return keys(n.USEs) }

// SelfFlowSlice returns SelfFlows as a slice.
func (n *DFGNode) SelfFlowSlice() []string { return keys(n.SelfFlows) }

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// DFGEdge is a directed data-flow edge carrying the variable expression
// that flows along it.
type DFGEdge struct {
	Source string // DFGNode.ID
	Target string // DFGNode.ID
	Label  string // the variable expression
	Kind   DFGEdgeKind
}

// DFG is the data-flow graph of a single method, built in two phases: first
// DEF/USE/SelfFlow annotation (defuse.Analyzer), then edge insertion
// (dfgbuild.Builder).
type DFG struct {
	Method string
	Nodes  map[string]*DFGNode
	Edges  []*DFGEdge
	byShared map[SharedID]*DFGNode
	edgeSet  map[dfgEdgeKey]struct{}
}

type dfgEdgeKey struct {
	source, target, label string
	kind                  DFGEdgeKind
}

// NewDFG creates an empty DFG for a method.
func NewDFG(method string) *DFG {
	return &DFG{
		Method:   method,
		Nodes:    make(map[string]*DFGNode),
		byShared: make(map[SharedID]*DFGNode),
		edgeSet:  make(map[dfgEdgeKey]struct{}),
	}
}

// AddNode registers a DFG node, indexed by both graph-local ID and SharedID.
func (d *DFG) AddNode(n *DFGNode) {
	d.Nodes[n.ID] = n
	d.byShared[n.SharedID] = n
}

// NodeBySharedID looks up a DFG node by the SharedID it shares with its AST
// and CFG counterparts.
func (d *DFG) NodeBySharedID(id SharedID) (*DFGNode, bool) {
	n, ok := d.byShared[id]
	return n, ok
}

// AddEdge inserts an edge, deduplicating by (source, label, target, kind)
// as spec.md §4.5 requires — repeated CFG traversals may otherwise produce
// the same reaching-definition edge more than once.
func (d *DFG) AddEdge(source, target, label string, kind DFGEdgeKind) {
	key := dfgEdgeKey{source: source, target: target, label: label, kind: kind}
	if _, exists := d.edgeSet[key]; exists {
		return
	}
	d.edgeSet[key] = struct{}{}
	d.Edges = append(d.Edges, &DFGEdge{Source: source, Target: target, Label: label, Kind: kind})
}

// IntraSuccessors returns the intra-procedural edges leaving a node. Used by
// the reachability engine, which never follows Inter edges directly.
func (d *DFG) IntraSuccessors(nodeID string) []*DFGEdge {
	var out []*DFGEdge
	for _, e := range d.Edges {
		if e.Source == nodeID && e.Kind == DFGIntra {
			out = append(out, e)
		}
	}
	return out
}
