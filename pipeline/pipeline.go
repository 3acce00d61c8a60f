// Package pipeline sequences the eight analysis stages (spec.md §2) over
// a target directory: parse -> extract -> AST build -> CFG build ->
// DEF/USE fixpoint -> DFG edges -> inter-procedural link -> source/sink
// discovery -> reachability. Each stage's output feeds the next; nothing
// downstream re-parses or re-derives what an earlier stage already
// computed.
package pipeline

import (
	"context"
	"fmt"

	"github.com/taintgraph/engine/astbuild"
	"github.com/taintgraph/engine/callresolve"
	"github.com/taintgraph/engine/cfgbuild"
	"github.com/taintgraph/engine/defuse"
	"github.com/taintgraph/engine/dfgbuild"
	"github.com/taintgraph/engine/diagnostic"
	"github.com/taintgraph/engine/extract"
	"github.com/taintgraph/engine/internal/config"
	"github.com/taintgraph/engine/internal/store"
	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/parse"
	"github.com/taintgraph/engine/reachability"
	"github.com/taintgraph/engine/sourcesink"
)

// Result is everything a run produces, the shape cmd/run_static.go reports
// and internal/store.Store commits.
type Result struct {
	Classes   []*model.ClassRecord
	ASTs      map[string]*model.AST // keyed by file-qualified name
	CFGs      map[string]*model.CFG // keyed by method-qualified name
	DFGs      map[string]*model.DFG
	CallGraph map[string][]string
	Sources   []model.Source
	Sinks     []model.Sink
	Flows     []model.TaintFlow
	Errors    []*diagnostic.Error
}

// Pipeline runs every stage over one target directory, staging its
// results into a store as it goes and committing them once, at the end of
// a successful run. It never reads earlier results back from the store:
// every run re-parses the target and recomputes each stage from the start.
type Pipeline struct {
	cfg    *config.Config
	store  *store.Store
	logger *output.Logger
}

// New creates a Pipeline over a project configuration and its document
// store, reporting progress through logger.
func New(cfg *config.Config, st *store.Store, logger *output.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, logger: logger}
}

// Run executes every stage over the target directory, checking ctx at
// each file boundary so a cancelled run stops promptly rather than mid
// file (spec.md §5's cancellation granularity).
func (p *Pipeline) Run(ctx context.Context, targetDir string) (*Result, error) {
	result := &Result{
		ASTs: make(map[string]*model.AST),
		CFGs: make(map[string]*model.CFG),
		DFGs: make(map[string]*model.DFG),
	}

	parser := parse.New(p.logger)
	units, err := parser.ParseAll(ctx, targetDir)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", targetDir, err)
	}
	defer func() {
		for _, u := range units {
			u.Close()
		}
	}()

	classExtractor := extract.New()
	var sinkUnits []sourcesink.Unit

	type fileGraphs struct {
		ast     *model.AST
		classes []*model.ClassRecord
	}
	files := make([]fileGraphs, 0, len(units))

	for _, unit := range units {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		classes := classExtractor.Extract(unit)
		result.Classes = append(result.Classes, classes...)

		pkg := ""
		if len(classes) > 0 {
			pkg = classes[0].Package
		}
		ast := astbuild.New(unit).Build(pkg)
		result.ASTs[ast.File] = ast
		if err := p.store.PutAST(ast.File, ast); err != nil {
			result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, unit.Path, err))
		}
		for _, c := range classes {
			if err := p.store.PutClass(c.QualifiedName, c); err != nil {
				result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, unit.Path, err))
			}
		}

		files = append(files, fileGraphs{ast: ast, classes: classes})
		sinkUnits = append(sinkUnits, sourcesink.Unit{AST: ast, Classes: classes})
	}

	program := callresolve.NewProgram(result.Classes)
	var methodDFGs []*reachability.MethodDFG

	for _, fg := range files {
		for ci := range fg.classes {
			class := fg.classes[ci]
			classNode, ok := findClassNode(fg.ast, class.Name)
			if !ok {
				continue
			}
			for mi := range class.Methods {
				method := &class.Methods[mi]
				methodNode, ok := findMethodNode(classNode, method.Name, method.Line)
				if !ok {
					continue
				}

				qualifiedMethod := method.QualifiedName(class.QualifiedName)

				cfg := cfgbuild.New().Build(methodNode, qualifiedMethod, fg.ast.File)
				result.CFGs[qualifiedMethod] = cfg
				if err := p.store.PutCFG(qualifiedMethod, cfg); err != nil {
					result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, fg.ast.File, err))
				}

				dfg := defuse.New().Analyze(fg.ast, methodNode, method, class.Fields, cfg, qualifiedMethod, fg.ast.File)
				dfgbuild.New().Build(cfg, dfg)
				result.DFGs[qualifiedMethod] = dfg
				if err := p.store.PutDFG(qualifiedMethod, dfg); err != nil {
					result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, fg.ast.File, err))
				}

				program.Register(qualifiedMethod, &callresolve.MethodGraphs{
					AST: fg.ast, CFG: cfg, DFG: dfg, Class: class, Method: method, Node: methodNode,
				})
				methodDFGs = append(methodDFGs, &reachability.MethodDFG{AST: fg.ast, DFG: dfg})
			}
		}
	}

	resolver := callresolve.New(program)
	for _, g := range program.Methods {
		resolver.Link(g)
	}

	sharedToMethod := make(map[model.SharedID]string, len(program.Methods))
	for qn, g := range program.Methods {
		for _, n := range g.DFG.Nodes {
			sharedToMethod[n.SharedID] = qn
		}
	}
	callGraph := make(map[string][]string)
	for qn, g := range program.Methods {
		callGraph[qn] = calleeNames(g.DFG, sharedToMethod)
	}
	result.CallGraph = callGraph
	if err := p.store.PutCallGraph(callGraph); err != nil {
		result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, "", err))
	}

	rules, err := frameworkRules(p.cfg, program.Symbols)
	if err != nil {
		return result, err
	}
	sources, sinks := sourcesink.New(rules).Find(sinkUnits)
	result.Sources = sources
	result.Sinks = sinks

	engine := reachability.New(reachability.NewProgram(methodDFGs))
	result.Flows = engine.FindFlows(result.ASTs, sources, sinks)
	if err := p.store.PutTaintFlows(result.Flows); err != nil {
		result.Errors = append(result.Errors, diagnostic.Wrap(diagnostic.KindStoreCorruption, "", err))
	}

	return result, p.store.Commit()
}

// frameworkRules selects the source/sink rule family named by the
// web-framework config key.
func frameworkRules(cfg *config.Config, symbols *callresolve.SymbolTable) (sourcesink.FrameworkRules, error) {
	switch cfg.WebFramework {
	case config.FrameworkStruts2:
		return sourcesink.NewStruts2Rules(symbols), nil
	case config.FrameworkSpringMVC, "":
		return sourcesink.NewSpringMVCRules(), nil
	default:
		return nil, fmt.Errorf("unrecognized web-framework %q", cfg.WebFramework)
	}
}

// calleeNames reports, for visualization parity with the document-store
// contract (DESIGN.md's Inter-edges-vs-IpDefs decision), every callee a
// method's DFG nodes resolved to, as qualified method names. A callee
// entry SharedID with no owning method in the index (shouldn't happen —
// IpDefs is only ever set to a SharedID already present in some
// registered method's DFG) is skipped rather than reported as a raw
// SharedID.
func calleeNames(dfg *model.DFG, sharedToMethod map[model.SharedID]string) []string {
	var out []string
	for _, n := range dfg.Nodes {
		if n.IpDefs == "" {
			continue
		}
		if qn, ok := sharedToMethod[model.SharedID(n.IpDefs)]; ok {
			out = append(out, qn)
		}
	}
	return out
}

func findClassNode(ast *model.AST, simpleName string) (*model.ASTNode, bool) {
	for _, n := range ast.AllNodes() {
		if n.Kind == model.ASTClass && n.Name == simpleName {
			return n, true
		}
	}
	return nil, false
}

func findMethodNode(classNode *model.ASTNode, name string, line uint32) (*model.ASTNode, bool) {
	for _, c := range classNode.Children {
		if c.Kind == model.ASTMethod && c.Name == name && c.Line == line {
			return c, true
		}
	}
	for _, c := range classNode.Children {
		if c.Kind == model.ASTMethod && c.Name == name {
			return c, true
		}
	}
	return nil, false
}
