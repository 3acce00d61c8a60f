package cfgbuild

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taintgraph/engine/astbuild"
	"github.com/taintgraph/engine/extract"
	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/parse"
)

func buildCFG(t *testing.T, src, methodName string) *model.CFG {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "T.java")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	units, err := parse.New(output.NewLogger(output.VerbosityDebug)).ParseAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, units, 1)
	t.Cleanup(units[0].Close)

	classes := extract.New().Extract(units[0])
	require.NotEmpty(t, classes)
	ast := astbuild.New(units[0]).Build(classes[0].Package)

	var methodNode *model.ASTNode
	for _, n := range ast.AllNodes() {
		if n.Kind == model.ASTMethod && n.Name == methodName {
			methodNode = n
		}
	}
	require.NotNil(t, methodNode)

	return New().Build(methodNode, "a.b.C."+methodName, ast.File)
}

// Every structured region (if/while/for) pairs a start node with a
// dedicated end node: the if's two branches must both eventually reach the
// same IfEnd node, per spec.md §3's CFG structural invariant.
func TestIfStatementBranchesRejoinAtIfEnd(t *testing.T) {
	src := `package a.b;
class C {
  void run(boolean c) {
    if (c) {
      a();
    } else {
      b();
    }
    after();
  }
}`
	cfg := buildCFG(t, src, "run")

	var ifNode *model.CFGNode
	var ifEnd *model.CFGNode
	for _, n := range cfg.Nodes {
		if n.Kind == model.CFGIf {
			ifNode = n
		}
		if n.Kind == model.CFGIfEnd {
			ifEnd = n
		}
	}
	require.NotNil(t, ifNode)
	require.NotNil(t, ifEnd)

	succs := cfg.Successors(ifNode.ID)
	require.Len(t, succs, 2)
	labels := map[model.CFGEdgeLabel]bool{}
	for _, e := range succs {
		labels[e.Label] = true
	}
	require.True(t, labels[model.EdgeTrue])
	require.True(t, labels[model.EdgeFalse])

	require.True(t, reaches(cfg, ifNode.ID, ifEnd.ID, map[string]bool{}))
}

// A for-loop with both an init and an update clause but no condition
// ("for (int i = 0; ; i++)") must keep init and update as separate CFG
// nodes rather than misattributing the init clause as the condition.
func TestForLoopWithEmptyConditionKeepsInitSeparate(t *testing.T) {
	src := `package a.b;
class C {
  void run() {
    for (int i = 0; ; i++) {
      body();
    }
  }
}`
	cfg := buildCFG(t, src, "run")

	var initNode *model.CFGNode
	for _, n := range cfg.Nodes {
		if n.Kind == model.CFGForInit {
			initNode = n
		}
	}
	require.NotNil(t, initNode, "expected a CFGForInit node")
	require.Contains(t, initNode.Code, "i = 0")
}

func reaches(cfg *model.CFG, from, to string, visited map[string]bool) bool {
	if from == to {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, e := range cfg.Successors(from) {
		if reaches(cfg, e.To, to, visited) {
			return true
		}
	}
	return false
}
