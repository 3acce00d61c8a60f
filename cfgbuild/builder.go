// Package cfgbuild constructs one control-flow graph per method from the
// semantic AST astbuild produces. It follows spec.md §4.3: two small
// builder-local stacks (PreNodes/PreEdgeKinds for pending predecessor
// edges, LoopBlocks/LabeledBlocks/TryBlocks for break/continue/throw
// targets) plus a DontPop flag for statements that terminate flow locally.
package cfgbuild

import (
	"fmt"
	"strings"

	"github.com/taintgraph/engine/model"
)

type blockPair struct {
	Start string
	End   string
	Label string
}

// Builder builds the CFG for a single method. A fresh Builder (or a
// reset one, via New) is used per method — none of its stacks survive
// across methods.
type Builder struct {
	cfg    *model.CFG
	method string
	file   string
	nextID int

	PreNodes     []string
	PreEdgeKinds []model.CFGEdgeLabel

	LoopBlocks    []blockPair // continue targets: loops only
	BreakBlocks   []blockPair // break targets: loops and switches
	LabeledBlocks []blockPair
	TryBlocks     []blockPair
	DontPop       bool
}

// New creates a CFG builder.
func New() *Builder {
	return &Builder{}
}

// Build constructs the CFG for one method's AST node. methodFQN is the
// `{package}.{class}.{method}` qualified name the call resolver and
// store use as the CFG's key.
func (b *Builder) Build(methodNode *model.ASTNode, methodFQN, file string) *model.CFG {
	b.cfg = model.NewCFG(methodFQN, file)
	b.method = methodFQN
	b.file = file

	b.PreNodes = []string{b.cfg.Entry}
	b.PreEdgeKinds = []model.CFGEdgeLabel{model.EdgeEps}

	var body *model.ASTNode
	for _, c := range methodNode.Children {
		if c.Kind == model.ASTBlock {
			body = c
		}
	}
	if body != nil {
		b.visitBlock(body)
	}
	return b.cfg
}

func (b *Builder) allocID() string {
	b.nextID++
	return fmt.Sprintf("%s:n%d", b.method, b.nextID)
}

func (b *Builder) newNodeWithID(id string, kind model.CFGKind, astNode *model.ASTNode) *model.CFGNode {
	node := &model.CFGNode{
		ID:       id,
		Kind:     kind,
		Line:     astNode.Line,
		Code:     astNode.Code,
		SharedID: astNode.SharedID,
		Method:   b.method,
		File:     b.file,
	}
	b.cfg.AddNode(node)
	return node
}

func (b *Builder) newNode(kind model.CFGKind, astNode *model.ASTNode) *model.CFGNode {
	return b.newNodeWithID(b.allocID(), kind, astNode)
}

// connectPendingTo installs an edge from every pending predecessor to
// node, then clears the pending set — the "dequeue a pair and install
// the edge" step spec.md §4.3 describes.
func (b *Builder) connectPendingTo(node *model.CFGNode) {
	for i, from := range b.PreNodes {
		b.cfg.AddEdge(from, node.ID, b.PreEdgeKinds[i])
	}
	b.PreNodes = nil
	b.PreEdgeKinds = nil
}

func (b *Builder) queue(from string, label model.CFGEdgeLabel) {
	b.PreNodes = append(b.PreNodes, from)
	b.PreEdgeKinds = append(b.PreEdgeKinds, label)
}

// emit creates a node for a straight-line statement, consuming pending
// predecessors, and clears DontPop (a statement was reached normally).
func (b *Builder) emit(kind model.CFGKind, astNode *model.ASTNode) *model.CFGNode {
	node := b.newNode(kind, astNode)
	b.connectPendingTo(node)
	b.DontPop = false
	return node
}

func (b *Builder) visitBlock(block *model.ASTNode) {
	for _, stmt := range block.Children {
		b.visitStmt(stmt)
	}
}

func (b *Builder) visitStmt(n *model.ASTNode) {
	switch n.Kind {
	case model.ASTBlock:
		b.visitBlock(n)
	case model.ASTIf:
		b.visitIf(n)
	case model.ASTWhile:
		b.visitWhile(n)
	case model.ASTDoWhile:
		b.visitDoWhile(n)
	case model.ASTFor:
		b.visitFor(n)
	case model.ASTForEach:
		b.visitForEach(n)
	case model.ASTSwitch:
		b.visitSwitch(n)
	case model.ASTTry:
		b.visitTry(n)
	case model.ASTReturn:
		b.visitReturn(n)
	case model.ASTThrow:
		b.visitThrow(n)
	case model.ASTBreak:
		b.visitBreak(n)
	case model.ASTContinue:
		b.visitContinue(n)
	case model.ASTSync:
		b.visitSync(n)
	case model.ASTLabel:
		b.visitLabel(n)
	case model.ASTAssign, model.ASTVarDecl:
		node := b.emit(model.CFGAssign, n)
		b.queue(node.ID, model.EdgeEps)
	default:
		node := b.emit(model.CFGExpr, n)
		b.queue(node.ID, model.EdgeEps)
	}
}

func (b *Builder) visitIf(n *model.ASTNode) {
	ifNode := b.emit(model.CFGIf, n)
	ifEnd := b.newNode(model.CFGIfEnd, n)

	b.queue(ifNode.ID, model.EdgeTrue)
	if then := n.Slot(model.SlotThen); then != nil {
		b.visitStmt(then)
	}
	thenPending, thenKinds := b.PreNodes, b.PreEdgeKinds
	b.PreNodes, b.PreEdgeKinds = nil, nil

	var elsePending []string
	var elseKinds []model.CFGEdgeLabel
	if els := n.Slot(model.SlotElse); els != nil {
		b.queue(ifNode.ID, model.EdgeFalse)
		b.visitStmt(els)
		elsePending, elseKinds = b.PreNodes, b.PreEdgeKinds
		b.PreNodes, b.PreEdgeKinds = nil, nil
	} else {
		elsePending = []string{ifNode.ID}
		elseKinds = []model.CFGEdgeLabel{model.EdgeFalse}
	}

	b.PreNodes = append(thenPending, elsePending...)
	b.PreEdgeKinds = append(thenKinds, elseKinds...)
	b.connectPendingTo(ifEnd)
	b.queue(ifEnd.ID, model.EdgeEps)
}

func (b *Builder) visitWhile(n *model.ASTNode) {
	whileNode := b.emit(model.CFGWhile, n)
	whileEnd := b.newNode(model.CFGWhileEnd, n)
	b.LoopBlocks = append(b.LoopBlocks, blockPair{Start: whileNode.ID, End: whileEnd.ID})
	b.BreakBlocks = append(b.BreakBlocks, blockPair{End: whileEnd.ID})

	body := loopBody(n)
	b.queue(whileNode.ID, model.EdgeTrue)
	if body != nil {
		b.visitStmt(body)
	}
	for i, from := range b.PreNodes {
		b.cfg.AddEdge(from, whileNode.ID, edgeOrEps(b.PreEdgeKinds[i]))
	}
	b.PreNodes, b.PreEdgeKinds = nil, nil

	b.LoopBlocks = b.LoopBlocks[:len(b.LoopBlocks)-1]
	b.BreakBlocks = b.BreakBlocks[:len(b.BreakBlocks)-1]
	b.cfg.AddEdge(whileNode.ID, whileEnd.ID, model.EdgeFalse)
	b.queue(whileEnd.ID, model.EdgeEps)
}

func (b *Builder) visitDoWhile(n *model.ASTNode) {
	testID := b.allocID()
	endID := b.allocID()
	b.LoopBlocks = append(b.LoopBlocks, blockPair{Start: testID, End: endID})
	b.BreakBlocks = append(b.BreakBlocks, blockPair{End: endID})

	bodyFirstMarker := b.nextID
	body := loopBody(n)
	if body != nil {
		b.visitStmt(body)
	}
	bodyRanAtLeastOneNode := b.nextID > bodyFirstMarker
	bodyFirstID := fmt.Sprintf("%s:n%d", b.method, bodyFirstMarker+1)

	testNode := b.newNodeWithID(testID, model.CFGDoWhile, n)
	b.connectPendingTo(testNode)

	loopBackTarget := testNode.ID
	if bodyRanAtLeastOneNode {
		loopBackTarget = bodyFirstID
	}
	b.cfg.AddEdge(testNode.ID, loopBackTarget, model.EdgeTrue)

	b.LoopBlocks = b.LoopBlocks[:len(b.LoopBlocks)-1]
	b.BreakBlocks = b.BreakBlocks[:len(b.BreakBlocks)-1]
	endNode := b.newNodeWithID(endID, model.CFGDoWhileEnd, n)
	b.cfg.AddEdge(testNode.ID, endNode.ID, model.EdgeFalse)
	b.queue(endNode.ID, model.EdgeEps)
}

// isForInitKind reports whether k is a kind a for-loop's init clause can
// take (a declaration or plain assignment) but a condition never does.
func isForInitKind(k model.ASTKind) bool {
	return k == model.ASTVarDecl || k == model.ASTAssign
}

func (b *Builder) visitFor(n *model.ASTNode) {
	var init, cond, update, body *model.ASTNode
	stmts := n.Children
	if len(stmts) > 0 {
		body = stmts[len(stmts)-1]
		rest := stmts[:len(stmts)-1]
		switch len(rest) {
		case 3:
			init, cond, update = rest[0], rest[1], rest[2]
		case 2:
			// Ambiguous between {cond, update} (init omitted, the common
			// case) and {init, update} (condition omitted, e.g.
			// "for (int i = 0; ; i++)"): an init clause is always a
			// declaration or plain assignment, which a loop condition
			// never is, so that shape distinguishes the two.
			if isForInitKind(rest[0].Kind) {
				init, update = rest[0], rest[1]
			} else {
				cond, update = rest[0], rest[1]
			}
		case 1:
			if isForInitKind(rest[0].Kind) {
				init = rest[0]
			} else {
				cond = rest[0]
			}
		}
	}

	if init != nil {
		initNode := b.emit(model.CFGForInit, init)
		b.queue(initNode.ID, model.EdgeEps)
	}

	var forExprAst *model.ASTNode = cond
	if forExprAst == nil {
		forExprAst = n
	}
	forExpr := b.emit(model.CFGForExpr, forExprAst)
	forEnd := b.newNode(model.CFGForEnd, n)
	b.LoopBlocks = append(b.LoopBlocks, blockPair{Start: forExpr.ID, End: forEnd.ID})
	b.BreakBlocks = append(b.BreakBlocks, blockPair{End: forEnd.ID})

	b.queue(forExpr.ID, model.EdgeTrue)
	if body != nil {
		b.visitStmt(body)
	}
	bodyPending, bodyKinds := b.PreNodes, b.PreEdgeKinds
	b.PreNodes, b.PreEdgeKinds = nil, nil

	var updateAst *model.ASTNode = update
	if updateAst == nil {
		updateAst = forExprAst
	}
	updateNode := b.newNode(model.CFGForUpdate, updateAst)
	for i, from := range bodyPending {
		b.cfg.AddEdge(from, updateNode.ID, edgeOrEps(bodyKinds[i]))
	}
	b.cfg.AddEdge(updateNode.ID, forExpr.ID, model.EdgeEps)

	b.LoopBlocks = b.LoopBlocks[:len(b.LoopBlocks)-1]
	b.BreakBlocks = b.BreakBlocks[:len(b.BreakBlocks)-1]
	b.cfg.AddEdge(forExpr.ID, forEnd.ID, model.EdgeFalse)
	b.queue(forEnd.ID, model.EdgeEps)
}

func (b *Builder) visitForEach(n *model.ASTNode) {
	forExpr := b.emit(model.CFGForExpr, n)
	forEnd := b.newNode(model.CFGForEnd, n)
	b.LoopBlocks = append(b.LoopBlocks, blockPair{Start: forExpr.ID, End: forEnd.ID})
	b.BreakBlocks = append(b.BreakBlocks, blockPair{End: forEnd.ID})

	body := loopBody(n)
	b.queue(forExpr.ID, model.EdgeTrue)
	if body != nil {
		b.visitStmt(body)
	}
	for i, from := range b.PreNodes {
		b.cfg.AddEdge(from, forExpr.ID, edgeOrEps(b.PreEdgeKinds[i]))
	}
	b.PreNodes, b.PreEdgeKinds = nil, nil

	b.LoopBlocks = b.LoopBlocks[:len(b.LoopBlocks)-1]
	b.BreakBlocks = b.BreakBlocks[:len(b.BreakBlocks)-1]
	b.cfg.AddEdge(forExpr.ID, forEnd.ID, model.EdgeFalse)
	b.queue(forEnd.ID, model.EdgeEps)
}

func (b *Builder) visitSwitch(n *model.ASTNode) {
	switchNode := b.emit(model.CFGSwitch, n)
	switchEnd := b.newNode(model.CFGSwitchEnd, n)
	b.BreakBlocks = append(b.BreakBlocks, blockPair{End: switchEnd.ID})

	var fallthroughPending []string
	var fallthroughKinds []model.CFGEdgeLabel

	for _, c := range n.Children {
		if c.Kind != model.ASTCase {
			continue
		}
		caseNode := b.newNode(model.CFGCaseStmt, c)
		b.cfg.AddEdge(switchNode.ID, caseNode.ID, model.EdgeTrue)
		for i, from := range fallthroughPending {
			b.cfg.AddEdge(from, caseNode.ID, edgeOrEps(fallthroughKinds[i]))
		}

		b.PreNodes, b.PreEdgeKinds = []string{caseNode.ID}, []model.CFGEdgeLabel{model.EdgeEps}
		for _, inner := range c.Children {
			b.visitStmt(inner)
		}
		// A case ending in break/return/throw/continue has already wired
		// its own exit edge and leaves nothing pending to fall through.
		fallthroughPending, fallthroughKinds = b.PreNodes, b.PreEdgeKinds
		b.PreNodes, b.PreEdgeKinds = nil, nil
	}

	// The last case's fallthrough (no trailing break) reaches SwitchEnd.
	for i, from := range fallthroughPending {
		b.cfg.AddEdge(from, switchEnd.ID, edgeOrEps(fallthroughKinds[i]))
	}
	// No case matched: switch falls through directly.
	b.cfg.AddEdge(switchNode.ID, switchEnd.ID, model.EdgeFalse)
	b.BreakBlocks = b.BreakBlocks[:len(b.BreakBlocks)-1]
	b.queue(switchEnd.ID, model.EdgeEps)
}

func (b *Builder) visitTry(n *model.ASTNode) {
	tryNode := b.emit(model.CFGTry, n)
	tryEnd := b.newNode(model.CFGTryEnd, n)
	b.TryBlocks = append(b.TryBlocks, blockPair{Start: tryNode.ID, End: tryEnd.ID})

	b.queue(tryNode.ID, model.EdgeEps)
	var catches, finally []*model.ASTNode
	for _, c := range n.Children {
		switch c.Kind {
		case model.ASTResource:
			node := b.emit(model.CFGResource, c)
			b.queue(node.ID, model.EdgeEps)
		case model.ASTBlock:
			b.visitBlock(c)
		case model.ASTCatch:
			catches = append(catches, c)
		case model.ASTFinally:
			finally = append(finally, c)
		}
	}
	b.connectPendingTo(tryEnd)
	b.TryBlocks = b.TryBlocks[:len(b.TryBlocks)-1]

	mergedExit := tryEnd
	if len(catches) > 0 {
		catchEnd := b.newNode(model.CFGCatchEnd, n)
		for _, catch := range catches {
			catchNode := b.emit(model.CFGCatch, catch)
			b.cfg.AddEdge(tryEnd.ID, catchNode.ID, model.EdgeThrows)
			b.PreNodes, b.PreEdgeKinds = nil, nil
			b.PreNodes, b.PreEdgeKinds = []string{catchNode.ID}, []model.CFGEdgeLabel{model.EdgeEps}
			b.visitBlock(onlyBlock(catch))
			b.connectPendingTo(catchEnd)
		}
		mergedExit = catchEnd
	}

	if len(finally) > 0 {
		finallyNode := b.emit(model.CFGFinally, finally[0])
		b.cfg.AddEdge(mergedExit.ID, finallyNode.ID, model.EdgeEps)
		b.PreNodes, b.PreEdgeKinds = []string{finallyNode.ID}, []model.CFGEdgeLabel{model.EdgeEps}
		b.visitBlock(onlyBlock(finally[0]))
		finallyEnd := b.newNode(model.CFGFinallyEnd, finally[0])
		b.connectPendingTo(finallyEnd)
		b.queue(finallyEnd.ID, model.EdgeEps)
	} else {
		b.queue(mergedExit.ID, model.EdgeEps)
	}
}

func onlyBlock(n *model.ASTNode) *model.ASTNode {
	for _, c := range n.Children {
		if c.Kind == model.ASTBlock {
			return c
		}
	}
	return n
}

func (b *Builder) visitReturn(n *model.ASTNode) {
	b.emit(model.CFGReturn, n)
	b.DontPop = true
}

func (b *Builder) visitThrow(n *model.ASTNode) {
	node := b.emit(model.CFGThrow, n)
	if len(b.TryBlocks) > 0 {
		top := b.TryBlocks[len(b.TryBlocks)-1]
		b.cfg.AddEdge(node.ID, top.End, model.EdgeThrows)
	}
	b.DontPop = true
}

func (b *Builder) visitBreak(n *model.ASTNode) {
	node := b.emit(model.CFGBreak, n)
	if target, ok := b.breakTarget(label(n)); ok {
		b.cfg.AddEdge(node.ID, target, model.EdgeEps)
	}
	b.DontPop = true
}

func (b *Builder) visitContinue(n *model.ASTNode) {
	node := b.emit(model.CFGContinue, n)
	if target, ok := b.continueTarget(label(n)); ok {
		b.cfg.AddEdge(node.ID, target, model.EdgeEps)
	}
	b.DontPop = true
}

func (b *Builder) breakTarget(lbl string) (string, bool) {
	if lbl != "" {
		for i := len(b.LabeledBlocks) - 1; i >= 0; i-- {
			if b.LabeledBlocks[i].Label == lbl {
				return b.LabeledBlocks[i].End, true
			}
		}
		return "", false
	}
	if len(b.BreakBlocks) == 0 {
		return "", false
	}
	return b.BreakBlocks[len(b.BreakBlocks)-1].End, true
}

func (b *Builder) continueTarget(lbl string) (string, bool) {
	if lbl != "" {
		for i := len(b.LabeledBlocks) - 1; i >= 0; i-- {
			if b.LabeledBlocks[i].Label == lbl {
				return b.LabeledBlocks[i].Start, true
			}
		}
		return "", false
	}
	if len(b.LoopBlocks) == 0 {
		return "", false
	}
	return b.LoopBlocks[len(b.LoopBlocks)-1].Start, true
}

func label(n *model.ASTNode) string {
	fields := strings.Fields(n.Code)
	if len(fields) >= 2 {
		return strings.TrimSuffix(fields[1], ";")
	}
	return ""
}

func (b *Builder) visitSync(n *model.ASTNode) {
	syncNode := b.emit(model.CFGSync, n)
	syncEnd := b.newNode(model.CFGSyncEnd, n)
	b.queue(syncNode.ID, model.EdgeEps)
	if body := onlyBlock(n); body != nil {
		b.visitBlock(body)
	}
	b.connectPendingTo(syncEnd)
	b.queue(syncEnd.ID, model.EdgeEps)
}

func (b *Builder) visitLabel(n *model.ASTNode) {
	labelNode := b.emit(model.CFGLabel, n)
	labelEnd := b.newNode(model.CFGLabelEnd, n)
	lbl := ""
	if len(n.Children) > 0 && n.Children[0].Kind == model.ASTName {
		lbl = n.Children[0].Name
	}
	b.LabeledBlocks = append(b.LabeledBlocks, blockPair{Start: labelNode.ID, End: labelEnd.ID, Label: lbl})

	b.queue(labelNode.ID, model.EdgeEps)
	for _, c := range n.Children {
		b.visitStmt(c)
	}
	b.connectPendingTo(labelEnd)
	b.LabeledBlocks = b.LabeledBlocks[:len(b.LabeledBlocks)-1]
	b.queue(labelEnd.ID, model.EdgeEps)
}

func loopBody(n *model.ASTNode) *model.ASTNode {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if n.Children[i].Kind == model.ASTBlock {
			return n.Children[i]
		}
	}
	if len(n.Children) > 0 {
		return n.Children[len(n.Children)-1]
	}
	return nil
}

func edgeOrEps(label model.CFGEdgeLabel) model.CFGEdgeLabel {
	if label == "" {
		return model.EdgeEps
	}
	return label
}
