package astbuild

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taintgraph/engine/extract"
	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/parse"
)

func buildAST(t *testing.T, src string) *model.AST {
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
	return New(units[0]).Build(classes[0].Package)
}

func firstOfKind(ast *model.AST, kind model.ASTKind) (*model.ASTNode, bool) {
	for _, n := range ast.AllNodes() {
		if n.Kind == kind {
			return n, true
		}
	}
	return nil, false
}

// A field_access ("this.q") must carry its field name on .Name, with only
// the object expression kept as a child, so exprName can reconstruct
// "this.q" rather than a trailing-dot string.
func TestFieldAccessCarriesFieldName(t *testing.T) {
	src := `package a.b;
class C {
  String q;
  void run() {
    use(this.q);
  }
}`
	ast := buildAST(t, src)
	dot, ok := firstOfKind(ast, model.ASTDot)
	require.True(t, ok, "expected a field_access node")
	require.Equal(t, "q", dot.Name)
	require.Len(t, dot.Children, 1)
	require.Equal(t, model.ASTName, dot.Children[0].Kind)
	require.Equal(t, "this", dot.Children[0].Name)
}

// The "this" keyword must build as a Name node (so receiverName/exprName
// recognize it), not fall through to a generic statement wrapper.
func TestThisKeywordBuildsAsName(t *testing.T) {
	src := `package a.b;
class C {
  void setQ(String q) { this.q = q; }
}`
	ast := buildAST(t, src)
	found := false
	for _, n := range ast.AllNodes() {
		if n.Kind == model.ASTName && n.Name == "this" {
			found = true
		}
	}
	require.True(t, found, "expected a Name node for the \"this\" keyword")
}

// A ternary expression must slot its three operands under Predicate/True/
// False, mirroring visitIf's Condition/Then/Else.
func TestTernarySetsPredicateTrueFalseSlots(t *testing.T) {
	src := `package a.b;
class C {
  String run(boolean c) {
    return c ? "yes" : "no";
  }
}`
	ast := buildAST(t, src)
	ternary, ok := firstOfKind(ast, model.ASTTernary)
	require.True(t, ok, "expected a ternary_expression node")
	require.NotNil(t, ternary.Slot(model.SlotPredicate))
	require.NotNil(t, ternary.Slot(model.SlotTrue))
	require.NotNil(t, ternary.Slot(model.SlotFalse))
}
