package sourcesink

import "github.com/taintgraph/engine/model"

// springMVCSinks are the annotation-controller family's dangerous call
// names, per spec.md §4.7.
var springMVCSinks = map[string]model.VulnerabilityKind{
	"executeQuery": model.VulnSQLInjection,
}

var mappingAnnotations = map[string]struct{}{
	"@GetMapping": {}, "@PostMapping": {}, "@RequestMapping": {},
}

// SpringMVCRules implements FrameworkRules for the annotation-controller
// framework family: @Controller/@RestController classes whose handler
// methods carry a *Mapping annotation. Only parameters explicitly
// annotated @RequestParam are treated as tainted on entry — spec.md
// §4.7's "parameters annotated @RequestParam are tainted on entry" is
// read as the operative source rule, not merely an aside, since every
// literal scenario (S2, S3) taints exactly the @RequestParam parameter
// and nothing else.
type SpringMVCRules struct{}

// NewSpringMVCRules creates SpringMVCRules. It needs no program-wide
// state — unlike Struts2Rules, annotation-controller source discovery
// never crosses a file boundary.
func NewSpringMVCRules() *SpringMVCRules {
	return &SpringMVCRules{}
}

// FindSources returns, for every @Controller/@RestController class's
// handler methods carrying a *Mapping annotation, one Source per parameter
// annotated @RequestParam. Each Source is anchored at the SharedID of the
// handler's first statement and carries the parameter node's file and line.
func (r *SpringMVCRules) FindSources(ast *model.AST, classes []*model.ClassRecord) []model.Source {
	var out []model.Source
	for _, class := range classes {
		if !isController(class) {
			continue
		}
		classNode, ok := findClassNode(ast, class.Name)
		if !ok {
			continue
		}
		for i := range class.Methods {
			method := &class.Methods[i]
			if !hasMappingAnnotation(method.Annotation) {
				continue
			}
			methodNode, ok := findMethodNode(classNode, method.Name, method.Line)
			if !ok {
				continue
			}
			paramNodes := parameterNodes(methodNode)
			hasTaintedParam := false
			for j, p := range method.Params {
				if j < len(paramNodes) && hasAnnotation(p.Annotation, "@RequestParam") {
					hasTaintedParam = true
					break
				}
			}
			if !hasTaintedParam {
				continue
			}
			// A parameter itself has no CFG/DFG counterpart (reachability
			// only tracks statement-level nodes), so the taint is anchored
			// at the handler's first executable statement — the real
			// point where the parameter's value first becomes observable
			// to the DFG.
			entryID, ok := methodEntrySharedID(methodNode)
			if !ok {
				continue
			}
			for j, p := range method.Params {
				if j >= len(paramNodes) || !hasAnnotation(p.Annotation, "@RequestParam") {
					continue
				}
				n := paramNodes[j]
				out = append(out, model.Source{
					SharedID: entryID, Kind: model.VulnSQLInjection, File: n.File, Line: n.Line,
					Description: "@RequestParam " + p.Name + " on " + class.QualifiedName + "." + method.Name,
				})
			}
		}
	}
	return out
}

// FindSinks reports every call to a SpringMVC sink name, anywhere in ast.
func (r *SpringMVCRules) FindSinks(ast *model.AST) []model.Sink {
	var out []model.Sink
	for _, n := range ast.AllNodes() {
		if n.Kind != model.ASTCall {
			continue
		}
		kind, ok := springMVCSinks[n.Name]
		if !ok {
			continue
		}
		out = append(out, model.Sink{
			SharedID: n.SharedID, Kind: kind, File: n.File, Line: n.Line,
			Description: "call to " + n.Name,
			Argument:    firstArgText(n),
		})
	}
	return out
}

func isController(class *model.ClassRecord) bool {
	return hasAnnotation(class.Annotation, "@Controller") || hasAnnotation(class.Annotation, "@RestController")
}

func hasMappingAnnotation(annotations []string) bool {
	for _, a := range annotations {
		if _, ok := mappingAnnotations[annotationName(a)]; ok {
			return true
		}
	}
	return false
}

func hasAnnotation(annotations []string, name string) bool {
	for _, a := range annotations {
		if annotationName(a) == name {
			return true
		}
	}
	return false
}

// annotationName reduces a raw annotation's source text ("@RequestParam",
// "@RequestParam(\"id\")", "@RequestMapping(value = \"/u\")") to its bare
// name, ignoring any argument list.
func annotationName(raw string) string {
	for i, r := range raw {
		if r == '(' {
			return raw[:i]
		}
	}
	return raw
}

// findMethodNode locates a class's Method AST node by name and
// declaration line, falling back to the first same-named method when no
// declaration line matches.
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

// methodEntrySharedID finds the SharedId of a method body's first
// executable statement, descending into nested blocks. That statement is
// the first node reachability's lift can actually find a DFG counterpart
// for — parameters and method declarations never get their own DFG node.
func methodEntrySharedID(methodNode *model.ASTNode) (model.SharedID, bool) {
	for _, c := range methodNode.Children {
		if c.Kind == model.ASTBlock {
			return firstStatementSharedID(c)
		}
	}
	return "", false
}

func firstStatementSharedID(block *model.ASTNode) (model.SharedID, bool) {
	for _, c := range block.Children {
		if c.Kind == model.ASTBlock {
			if id, ok := firstStatementSharedID(c); ok {
				return id, true
			}
			continue
		}
		return c.SharedID, true
	}
	return "", false
}

// parameterNodes returns a method AST node's Parameter children in
// declaration order, matching model.Method.Params positionally.
func parameterNodes(methodNode *model.ASTNode) []*model.ASTNode {
	var out []*model.ASTNode
	for _, c := range methodNode.Children {
		if c.Kind == model.ASTParameter {
			out = append(out, c)
		}
	}
	return out
}
