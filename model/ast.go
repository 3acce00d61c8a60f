package model

// ASTKind enumerates the semantic node kinds the AST builder produces.
// Layout-only parse-tree productions (punctuation, whitespace) are never
// modelled; only constructs with compiler-visible semantics are.
type ASTKind string

const (
	ASTRoot       ASTKind = "Root"
	ASTPackage    ASTKind = "Package"
	ASTImport     ASTKind = "Import"
	ASTClass      ASTKind = "Class"
	ASTMethod     ASTKind = "Method"
	ASTField      ASTKind = "Field"
	ASTParameter  ASTKind = "Parameter"
	ASTBlock      ASTKind = "Block"
	ASTIf         ASTKind = "If"
	ASTWhile      ASTKind = "While"
	ASTDoWhile    ASTKind = "DoWhile"
	ASTFor        ASTKind = "For"
	ASTForEach    ASTKind = "ForEach"
	ASTSwitch     ASTKind = "Switch"
	ASTCase       ASTKind = "Case"
	ASTTry        ASTKind = "Try"
	ASTCatch      ASTKind = "Catch"
	ASTFinally    ASTKind = "Finally"
	ASTReturn     ASTKind = "Return"
	ASTThrow      ASTKind = "Throw"
	ASTSync       ASTKind = "Sync"
	ASTLabel      ASTKind = "Label"
	ASTBreak      ASTKind = "Break"
	ASTContinue   ASTKind = "Continue"
	ASTStatement  ASTKind = "Statement"
	ASTAssign     ASTKind = "Assign"
	ASTBinOp      ASTKind = "BinOp"
	ASTUnaryOp    ASTKind = "UnaryOp"
	ASTCast       ASTKind = "Cast"
	ASTCall       ASTKind = "Call"
	ASTDot        ASTKind = "Dot"
	ASTArray      ASTKind = "Array"
	ASTArrayInit  ASTKind = "ArrayInit"
	ASTLiteral    ASTKind = "Literal"
	ASTName       ASTKind = "Name"
	ASTType       ASTKind = "Type"
	ASTModifier   ASTKind = "Modifier"
	ASTTernary    ASTKind = "Ternary"
	ASTResource   ASTKind = "Resource"
	ASTVarDecl    ASTKind = "VarDecl"
)

// Canonical child-slot names used by nodes whose children are not simply
// positional (If, Assign, Ternary). AST.Children still holds the full
// ordered child list; these constants index into AST.Slots for callers that
// need a named child rather than a positional one.
const (
	SlotCondition = "Condition"
	SlotThen      = "Then"
	SlotElse      = "Else"
	SlotLeft      = "Left"
	SlotRight     = "Right"
	SlotPredicate = "Predicate"
	SlotTrue      = "True"
	SlotFalse     = "False"
	SlotInit      = "Init"     // VarDecl's initializer expression, if any
	SlotReceiver  = "Receiver" // Call's receiver expression, if the call is qualified (a.b())
)

// ASTNode is a node in the semantic AST. AST nodes form a tree: every node
// except Root has exactly one parent, reachable only by walking down from
// Root (AST never stores a Parent back-pointer — the ParentStack used
// during construction is a builder-local concern, not a node field).
type ASTNode struct {
	ID       string // graph-local identifier, unique within this file's AST
	Kind     ASTKind
	Line     uint32
	Code     string // literal source slice this node spans
	SharedID SharedID
	File     string // package.basename, set once the tree is finalized
	Children []*ASTNode
	Slots    map[string]*ASTNode // named children, for kinds with non-positional structure

	// Optional, kind-specific properties. Only the fields relevant to Kind
	// are populated; this mirrors spec.md's "OptionalProperties" bag
	// without resorting to an untyped map for the common cases.
	Name       string // Name/Call/Dot/Label/Field/Method/Parameter/Class
	Value      string // Literal
	Operator   string // BinOp/UnaryOp/Assign (compound operator, e.g. "+=")
	CastType   string // Cast
	Type       string // VarDecl/Parameter's declared type
	Modifiers  []string
	Annotation []string
}

// AddChild appends a child to the node's ordered child list.
func (n *ASTNode) AddChild(child *ASTNode) {
	n.Children = append(n.Children, child)
}

// SetSlot records a named child in addition to the ordered child list.
func (n *ASTNode) SetSlot(name string, child *ASTNode) {
	if n.Slots == nil {
		n.Slots = make(map[string]*ASTNode)
	}
	n.Slots[name] = child
}

// Slot returns the named child, or nil if it was never set.
func (n *ASTNode) Slot(name string) *ASTNode {
	if n.Slots == nil {
		return nil
	}
	return n.Slots[name]
}

// AST is a single compilation unit's semantic tree.
type AST struct {
	File    string
	Root    *ASTNode
	Package string
	byID    map[string]*ASTNode
	bySharedID map[SharedID]*ASTNode
}

// NewAST creates an empty AST rooted at the given node.
func NewAST(file string, root *ASTNode) *AST {
	return &AST{
		File:       file,
		Root:       root,
		byID:       make(map[string]*ASTNode),
		bySharedID: make(map[SharedID]*ASTNode),
	}
}

// Index registers a node for O(1) lookup by ID and SharedID. The builder
// calls this for every node it creates.
func (a *AST) Index(n *ASTNode) {
	a.byID[n.ID] = n
	a.bySharedID[n.SharedID] = n
}

// NodeByID returns a node by its graph-local identifier.
func (a *AST) NodeByID(id string) (*ASTNode, bool) {
	n, ok := a.byID[id]
	return n, ok
}

// NodeBySharedID returns a node by its cross-graph SharedID.
func (a *AST) NodeBySharedID(id SharedID) (*ASTNode, bool) {
	n, ok := a.bySharedID[id]
	return n, ok
}

// AllNodes returns every indexed node, in no particular order.
func (a *AST) AllNodes() []*ASTNode {
	nodes := make([]*ASTNode, 0, len(a.byID))
	for _, n := range a.byID {
		nodes = append(nodes, n)
	}
	return nodes
}

// ParentOf walks the tree from Root to find n's parent. AST nodes don't
// carry a parent pointer (§3's tree invariant), so callers that need
// ancestor lookups build the index once via ParentIndex rather
// than re-walking the whole tree per query.
func (a *AST) ParentOf(n *ASTNode) *ASTNode {
	idx := a.ParentIndex()
	return idx[n.ID]
}

// ParentIndex returns a map from child ID to parent node, built by one walk
// of the tree. Callers doing repeated ancestor lookups (e.g. the
// reachability engine lifting an AST node to its enclosing DFG statement)
// should build this once and reuse it.
func (a *AST) ParentIndex() map[string]*ASTNode {
	idx := make(map[string]*ASTNode, len(a.byID))
	var walk func(n *ASTNode)
	walk = func(n *ASTNode) {
		for _, c := range n.Children {
			idx[c.ID] = n
			walk(c)
		}
		for _, c := range n.Slots {
			if _, seen := idx[c.ID]; !seen {
				idx[c.ID] = n
				walk(c)
			}
		}
	}
	if a.Root != nil {
		walk(a.Root)
	}
	return idx
}
