package callresolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taintgraph/engine/astbuild"
	"github.com/taintgraph/engine/cfgbuild"
	"github.com/taintgraph/engine/defuse"
	"github.com/taintgraph/engine/dfgbuild"
	"github.com/taintgraph/engine/extract"
	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/parse"
)

// buildProgram parses src, builds CFG/DFG for every method on every class it
// finds, and registers them all into a single Program the way pipeline.Run
// does, returning the program plus the parsed unit's AST for convenience.
func buildProgram(t *testing.T, src string) (*Program, *model.AST) {
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

	program := NewProgram(classes)
	for ci := range classes {
		class := classes[ci]
		var classNode *model.ASTNode
		for _, n := range ast.AllNodes() {
			if n.Kind == model.ASTClass && n.Name == class.Name {
				classNode = n
			}
		}
		require.NotNil(t, classNode, "class %q not found", class.Name)

		for mi := range class.Methods {
			method := &class.Methods[mi]
			var methodNode *model.ASTNode
			for _, c := range classNode.Children {
				if c.Kind == model.ASTMethod && c.Name == method.Name {
					methodNode = c
				}
			}
			require.NotNil(t, methodNode, "method %q not found", method.Name)

			qualified := method.QualifiedName(class.QualifiedName)
			cfg := cfgbuild.New().Build(methodNode, qualified, ast.File)
			dfg := defuse.New().Analyze(ast, methodNode, method, class.Fields, cfg, qualified, ast.File)
			dfgbuild.New().Build(cfg, dfg)

			program.Register(qualified, &MethodGraphs{
				AST: ast, CFG: cfg, DFG: dfg, Class: class, Method: method, Node: methodNode,
			})
		}
	}
	return program, ast
}

func callNode(dfg *model.DFG, substr string) (*model.DFGNode, bool) {
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

// Link must stamp IpDefs on the caller's call-site DFG node with the
// callee's entry SharedID, for a plain unqualified implicit-this call.
func TestLinkResolvesUnqualifiedCall(t *testing.T) {
	src := `package a.b;
class C {
  void f(String x) {
    g(x);
  }
  void g(String y) {
    sink(y);
  }
}`
	program, _ := buildProgram(t, src)
	resolver := New(program)
	for _, g := range program.Methods {
		resolver.Link(g)
	}

	caller := program.Methods["a.b.C.f"]
	require.NotNil(t, caller)
	callSite, ok := callNode(caller.DFG, "g(x)")
	require.True(t, ok)
	require.NotEmpty(t, callSite.IpDefs, "expected g(x) to be linked to g's entry node")

	callee := program.Methods["a.b.C.g"]
	require.NotNil(t, callee)
	entry, ok := entryDFGNode(callee.CFG, callee.DFG)
	require.True(t, ok)
	require.Equal(t, string(entry.SharedID), callSite.IpDefs)
}

// An explicit this.method(...) call resolves to the enclosing class
// itself, the same as an unqualified call to the same method would.
func TestLinkResolvesExplicitThisCall(t *testing.T) {
	src := `package a.b;
class C {
  void f(String x) {
    this.g(x);
  }
  void g(String y) {
    sink(y);
  }
}`
	program, _ := buildProgram(t, src)
	resolver := New(program)
	for _, g := range program.Methods {
		resolver.Link(g)
	}

	caller := program.Methods["a.b.C.f"]
	require.NotNil(t, caller)
	callSite, ok := callNode(caller.DFG, "this.g(x)")
	require.True(t, ok)
	require.NotEmpty(t, callSite.IpDefs, "expected this.g(x) to resolve to C.g")

	callee := program.Methods["a.b.C.g"]
	require.NotNil(t, callee)
	entry, ok := entryDFGNode(callee.CFG, callee.DFG)
	require.True(t, ok)
	require.Equal(t, string(entry.SharedID), callSite.IpDefs)
}

// A qualified call through a typed local resolves via the local's declared
// type, not the enclosing class.
func TestLinkResolvesQualifiedCallThroughLocal(t *testing.T) {
	src := `package a.b;
class Helper {
  void run(String y) {
    sink(y);
  }
}
class C {
  void f(String x) {
    Helper h = new Helper();
    h.run(x);
  }
}`
	program, _ := buildProgram(t, src)
	resolver := New(program)
	for _, g := range program.Methods {
		resolver.Link(g)
	}

	caller := program.Methods["a.b.C.f"]
	require.NotNil(t, caller)
	callSite, ok := callNode(caller.DFG, "h.run(x)")
	require.True(t, ok)
	require.NotEmpty(t, callSite.IpDefs, "expected h.run(x) to resolve through Helper's declared type")
}

// A call to a method the program never registered (an unresolved library
// call) is left unlinked rather than guessed at.
func TestLinkLeavesUnknownCalleeUnlinked(t *testing.T) {
	src := `package a.b;
class C {
  void f(String x) {
    someLibraryCall(x);
  }
}`
	program, _ := buildProgram(t, src)
	resolver := New(program)
	for _, g := range program.Methods {
		resolver.Link(g)
	}

	caller := program.Methods["a.b.C.f"]
	require.NotNil(t, caller)
	callSite, ok := callNode(caller.DFG, "someLibraryCall(x)")
	require.True(t, ok)
	require.Empty(t, callSite.IpDefs)
}

// Two classes each declaring a same-named method resolve to the caller's
// own package when the simple name is ambiguous (symtab.go's tie-break).
func TestResolveAmbiguousSimpleNamePrefersCallerPackage(t *testing.T) {
	symbols := NewSymbolTable([]*model.ClassRecord{
		{QualifiedName: "x.y.C", Package: "x.y", Name: "C"},
		{QualifiedName: "a.b.C", Package: "a.b", Name: "C"},
	})
	class, ok := symbols.Resolve("C", "a.b")
	require.True(t, ok)
	require.Equal(t, "a.b.C", class.QualifiedName)
}
