package model

// CFGKind enumerates control-flow graph node kinds. Every structured region
// of the source (if/loop/switch/try/sync/label) has a paired start/end
// node, per spec.md §3's CFG invariant.
type CFGKind string

const (
	CFGEntry       CFGKind = "Entry"
	CFGAssign      CFGKind = "Assign"
	CFGIf          CFGKind = "If"
	CFGIfEnd       CFGKind = "IfEnd"
	CFGExpr        CFGKind = "Expr"
	CFGForExpr     CFGKind = "ForExpr"
	CFGForInit     CFGKind = "ForInit"
	CFGForUpdate   CFGKind = "ForUpdate"
	CFGForEnd      CFGKind = "ForEnd"
	CFGWhile       CFGKind = "While"
	CFGWhileEnd    CFGKind = "WhileEnd"
	CFGDoWhile     CFGKind = "DoWhile"
	CFGDoWhileEnd  CFGKind = "DoWhileEnd"
	CFGSwitch      CFGKind = "Switch"
	CFGSwitchEnd   CFGKind = "SwitchEnd"
	CFGCaseStmt    CFGKind = "CaseStmt"
	CFGBreak       CFGKind = "Break"
	CFGContinue    CFGKind = "Continue"
	CFGReturn      CFGKind = "Return"
	CFGTry         CFGKind = "Try"
	CFGTryEnd      CFGKind = "TryEnd"
	CFGCatch       CFGKind = "Catch"
	CFGCatchEnd    CFGKind = "CatchEnd"
	CFGFinally     CFGKind = "Finally"
	CFGFinallyEnd  CFGKind = "FinallyEnd"
	CFGResource    CFGKind = "Resource"
	CFGThrow       CFGKind = "Throw"
	CFGSync        CFGKind = "Sync"
	CFGSyncEnd     CFGKind = "SyncEnd"
	CFGLabel       CFGKind = "Label"
	CFGLabelEnd    CFGKind = "LabelEnd"
)

// CFGEdgeLabel categorizes a control-flow edge.
type CFGEdgeLabel string

const (
	EdgeEps    CFGEdgeLabel = "Eps"
	EdgeTrue   CFGEdgeLabel = "True"
	EdgeFalse  CFGEdgeLabel = "False"
	EdgeThrows CFGEdgeLabel = "Throws"
)

// CFGNode is one control-flow graph node, corresponding to a single
// statement-level parse-tree production. Shares SharedID with the AST node
// (and, once DFG decoration runs, with exactly one DFG node) it was built
// from.
type CFGNode struct {
	ID       string
	Kind     CFGKind
	Line     uint32
	Code     string
	SharedID SharedID
	Method   string // fully qualified: package.class.method
	File     string
	Optional map[string]string
}

// CFGEdge is a directed, labelled control-flow edge.
type CFGEdge struct {
	From  string // CFGNode.ID
	To    string // CFGNode.ID
	Label CFGEdgeLabel
}

// CFG is the control-flow graph of a single method or constructor. The
// graph is connected, has a unique Entry, and one or more sink nodes
// (Return, Throw, or an unreachable end node).
type CFG struct {
	Method  string
	Entry   string // CFGNode.ID
	Nodes   map[string]*CFGNode
	Edges   []*CFGEdge
	out     map[string][]*CFGEdge
	in      map[string][]*CFGEdge
}

// NewCFG creates an empty CFG with a fresh Entry node.
func NewCFG(method, file string) *CFG {
	cfg := &CFG{
		Method: method,
		Nodes:  make(map[string]*CFGNode),
		out:    make(map[string][]*CFGEdge),
		in:     make(map[string][]*CFGEdge),
	}
	entry := &CFGNode{ID: method + ":entry", Kind: CFGEntry, Method: method, File: file}
	cfg.AddNode(entry)
	cfg.Entry = entry.ID
	return cfg
}

// AddNode registers a node in the CFG.
func (c *CFG) AddNode(n *CFGNode) {
	c.Nodes[n.ID] = n
}

// AddEdge adds a labelled edge and updates both adjacency indexes.
func (c *CFG) AddEdge(from, to string, label CFGEdgeLabel) {
	e := &CFGEdge{From: from, To: to, Label: label}
	c.Edges = append(c.Edges, e)
	c.out[from] = append(c.out[from], e)
	c.in[to] = append(c.in[to], e)
}

// Successors returns the outgoing edges of a node.
func (c *CFG) Successors(id string) []*CFGEdge {
	return c.out[id]
}

// Predecessors returns the incoming edges of a node.
func (c *CFG) Predecessors(id string) []*CFGEdge {
	return c.in[id]
}
