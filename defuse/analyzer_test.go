package defuse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taintgraph/engine/astbuild"
	"github.com/taintgraph/engine/cfgbuild"
	"github.com/taintgraph/engine/extract"
	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/parse"
)

// buildMethod parses src (a single Java file's contents), locates the named
// method on the named class, and runs every stage up through DEF/USE over
// it, returning the pieces a test needs to inspect.
func buildMethod(t *testing.T, src, className, methodName string) (*model.AST, *model.CFG, *model.DFG) {
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
	pkg := classes[0].Package
	ast := astbuild.New(units[0]).Build(pkg)

	var classNode *model.ASTNode
	for _, n := range ast.AllNodes() {
		if n.Kind == model.ASTClass && n.Name == className {
			classNode = n
		}
	}
	require.NotNil(t, classNode, "class %q not found", className)

	var class *model.ClassRecord
	for _, c := range classes {
		if c.Name == className {
			class = c
		}
	}
	require.NotNil(t, class)

	method, ok := class.MethodByName(methodName)
	require.True(t, ok, "method %q not found", methodName)

	var methodNode *model.ASTNode
	for _, c := range classNode.Children {
		if c.Kind == model.ASTMethod && c.Name == methodName {
			methodNode = c
		}
	}
	require.NotNil(t, methodNode)

	qualified := method.QualifiedName(class.QualifiedName)
	cfg := cfgbuild.New().Build(methodNode, qualified, ast.File)
	dfg := New().Analyze(ast, methodNode, method, class.Fields, cfg, qualified, ast.File)
	return ast, cfg, dfg
}

func nodeByCode(dfg *model.DFG, substr string) (*model.DFGNode, bool) {
	for _, n := range dfg.Nodes {
		if len(n.Code) > 0 && containsSubstring(n.Code, substr) {
			return n, true
		}
	}
	return nil, false
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestAnalyzeBareFieldAssignmentDefs(t *testing.T) {
	src := `package a.b;
class C {
  String q;
  void run() {
    q = "tainted";
    use(q);
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "run")
	assign, ok := nodeByCode(dfg, `q = "tainted"`)
	require.True(t, ok)
	require.Contains(t, assign.DEFs, "q")

	use, ok := nodeByCode(dfg, "use(q)")
	require.True(t, ok)
	require.Contains(t, use.USEs, "q")
}

func TestAnalyzeQualifiedSetterDefinesReceiver(t *testing.T) {
	src := `package a.b;
class C {
  String q;
  void setQ(String q) { this.q = q; }
  void run() {
    this.setQ("x");
    use(this.q);
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "run")
	call, ok := nodeByCode(dfg, "this.setQ")
	require.True(t, ok)
	require.Contains(t, call.DEFs, "this")
}

// this.q = q; can't define the bare field name "q" (IsDefined only
// accepts undotted names), so it must fall back to defining the
// qualifying object "this" rather than being dropped outright.
func TestAnalyzeQualifiedFieldAssignmentDefsThis(t *testing.T) {
	src := `package a.b;
class C {
  String q;
  void setQ(String q) {
    this.q = q;
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "setQ")
	assign, ok := nodeByCode(dfg, "this.q = q")
	require.True(t, ok)
	require.Contains(t, assign.DEFs, "this")
	require.Contains(t, assign.USEs, "q")
}

// annotate stashes a literal-normalized canonical form of a statement's
// value expression, so that e.g. two string-literal assignments compare
// equal regardless of their actual text.
func TestAnnotateStoresCanonicalForm(t *testing.T) {
	src := `package a.b;
class C {
  void run() {
    String q = "tainted";
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "run")
	decl, ok := nodeByCode(dfg, `String q = "tainted"`)
	require.True(t, ok)
	require.Equal(t, "$STR", decl.Optional["canonical"])
}

func TestAnalyzeForEachBindsLoopVariable(t *testing.T) {
	src := `package a.b;
class C {
  void run(String[] c) {
    for (String e : c) {
      use(e);
    }
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "run")
	header, ok := nodeByCode(dfg, "for (String e : c)")
	require.True(t, ok)
	require.Contains(t, header.DEFs, "e")
	require.Contains(t, header.USEs, "c")
}

// A compound assignment both reads and writes the same name (SelfFlow); a
// plain "=" assignment only DEFs it.
func TestAnalyzeCompoundAssignIsSelfFlow(t *testing.T) {
	src := `package a.b;
class C {
  void run(int x) {
    int y = x;
    y += 1;
    use(y);
  }
}`
	_, _, dfg := buildMethod(t, src, "C", "run")

	plain, ok := nodeByCode(dfg, "int y = x")
	require.True(t, ok)
	require.Contains(t, plain.DEFs, "y")
	require.NotContains(t, plain.SelfFlows, "y")

	compound, ok := nodeByCode(dfg, "y += 1")
	require.True(t, ok)
	require.Contains(t, compound.DEFs, "y")
	require.Contains(t, compound.SelfFlows, "y")
}
