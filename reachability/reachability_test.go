package reachability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taintgraph/engine/model"
)

// buildLinearDFG returns a one-method DFG with two statement nodes and a
// single directed edge from the first to the second, plus an AST whose two
// nodes carry the same SharedIDs so lift can find them directly.
func buildLinearDFG(t *testing.T) (*model.AST, *MethodDFG, *model.DFGNode, *model.DFGNode) {
	t.Helper()
	srcShared := model.NewSharedID("expression_statement", "T.java", 0, 10)
	sinkShared := model.NewSharedID("expression_statement", "T.java", 20, 30)

	dfg := model.NewDFG("a.b.C.run")
	src := model.NewDFGNode("n1", 1, "src()", srcShared, "a.b.C.run", "T.java")
	sink := model.NewDFGNode("n2", 2, "sink(x)", sinkShared, "a.b.C.run", "T.java")
	dfg.AddNode(src)
	dfg.AddNode(sink)
	dfg.AddEdge(src.ID, sink.ID, "x", model.DFGIntra)

	root := &model.ASTNode{ID: "root", Kind: model.ASTMethod, SharedID: "root"}
	srcNode := &model.ASTNode{ID: "n1", Kind: model.ASTCall, SharedID: srcShared}
	sinkNode := &model.ASTNode{ID: "n2", Kind: model.ASTCall, SharedID: sinkShared}
	root.AddChild(srcNode)
	root.AddChild(sinkNode)
	ast := model.NewAST("T.java", root)
	ast.Index(root)
	ast.Index(srcNode)
	ast.Index(sinkNode)

	return ast, &MethodDFG{AST: ast, DFG: dfg}, src, sink
}

// Reachability is asymmetric: an edge from source to sink does not imply a
// path the other way.
func TestReachesIsAsymmetric(t *testing.T) {
	ast, m, src, sink := buildLinearDFG(t)
	engine := New(NewProgram([]*MethodDFG{m}))

	forward := model.Source{SharedID: src.SharedID}
	backward := model.Sink{SharedID: sink.SharedID}
	require.True(t, engine.Reaches(ast, ast, forward, backward))

	reverseSource := model.Source{SharedID: sink.SharedID}
	reverseSink := model.Sink{SharedID: src.SharedID}
	require.False(t, engine.Reaches(ast, ast, reverseSource, reverseSink))
}

// FindFlows dedupes on (source, sink, kind): two independently-discovered
// sources for the same SharedId must not produce two flow entries.
func TestFindFlowsDedupesOnTriple(t *testing.T) {
	ast, m, src, sink := buildLinearDFG(t)
	engine := New(NewProgram([]*MethodDFG{m}))

	sources := []model.Source{
		{SharedID: src.SharedID, File: "T.java", Kind: model.VulnSQLInjection},
		{SharedID: src.SharedID, File: "T.java", Kind: model.VulnSQLInjection},
	}
	sinks := []model.Sink{
		{SharedID: sink.SharedID, File: "T.java", Kind: model.VulnSQLInjection},
	}

	flows := engine.FindFlows(map[string]*model.AST{"T.java": ast}, sources, sinks)
	require.Len(t, flows, 1)
}
