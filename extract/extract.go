// Package extract walks a parsed compilation unit's tree-sitter tree and
// produces the ClassRecord(s) declared in it: fields, methods, parameters,
// annotations, extends/implements, and the file's package/import
// declarations. It is the first pipeline stage and runs once per file,
// strictly before AST/CFG/DFG construction.
package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/taintgraph/engine/model"
	"github.com/taintgraph/engine/parse"
)

// Extractor builds ClassRecords from parsed compilation units.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns every class declared in a compilation unit. Nested
// classes are returned alongside their enclosing class, flattened, with
// their QualifiedName prefixed by the enclosing class's simple name.
func (e *Extractor) Extract(unit *parse.Unit) []*model.ClassRecord {
	pkg := packageName(unit.Root, unit.Source)
	imports := importNames(unit.Root, unit.Source)

	var classes []*model.ClassRecord
	var walk func(n *sitter.Node, outer string)
	walk = func(n *sitter.Node, outer string) {
		if n == nil {
			return
		}
		if n.Type() == "class_declaration" {
			c := e.extractClass(n, unit, pkg, imports, outer)
			classes = append(classes, c)
			outer = c.Name
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), outer)
		}
	}
	walk(unit.Root, "")
	return classes
}

func packageName(root *sitter.Node, src []byte) string {
	var pkg string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "package_declaration" {
			for j := 0; j < int(child.ChildCount()); j++ {
				c := child.Child(j)
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					pkg = c.Content(src)
				}
			}
		}
	}
	return pkg
}

func importNames(root *sitter.Node, src []byte) []string {
	var imports []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_declaration" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			c := child.Child(j)
			if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
				imports = append(imports, c.Content(src))
			}
		}
	}
	return imports
}

func (e *Extractor) extractClass(node *sitter.Node, unit *parse.Unit, pkg string, imports []string, outer string) *model.ClassRecord {
	src := unit.Source
	name := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(src)
	}

	var modifiers, annotations, implementsList []string
	var extends string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			modifiers = append(modifiers, extractModifierWords(child, src)...)
			annotations = append(annotations, extractAnnotations(child, src)...)
		case "superclass":
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "type_identifier" {
					extends = child.Child(j).Content(src)
				}
			}
		case "super_interfaces":
			for j := 0; j < int(child.ChildCount()); j++ {
				typeList := child.Child(j)
				for k := 0; k < int(typeList.ChildCount()); k++ {
					t := typeList.Child(k)
					if t.IsNamed() {
						implementsList = append(implementsList, t.Content(src))
					}
				}
			}
		}
	}

	qualifiedName := name
	if outer != "" {
		qualifiedName = outer + "." + name
	}
	if pkg != "" {
		qualifiedName = pkg + "." + qualifiedName
	}

	record := &model.ClassRecord{
		QualifiedName: qualifiedName,
		Package:       pkg,
		Name:          name,
		Extends:       extends,
		Implements:    implementsList,
		Imports:       imports,
		Modifiers:     modifiers,
		Annotation:    annotations,
		File:          unit.Path,
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return record
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case "field_declaration":
			record.Fields = append(record.Fields, extractField(member, src)...)
		case "method_declaration", "constructor_declaration":
			record.Methods = append(record.Methods, extractMethod(member, unit))
		}
	}
	return record
}

func extractModifierWords(modifiers *sitter.Node, src []byte) []string {
	var words []string
	for i := 0; i < int(modifiers.ChildCount()); i++ {
		c := modifiers.Child(i)
		switch c.Type() {
		case "public", "private", "protected", "static", "final", "abstract", "synchronized":
			words = append(words, c.Type())
		}
	}
	return words
}

func extractAnnotations(modifiers *sitter.Node, src []byte) []string {
	var annotations []string
	for i := 0; i < int(modifiers.ChildCount()); i++ {
		c := modifiers.Child(i)
		if c.Type() == "marker_annotation" || c.Type() == "annotation" {
			annotations = append(annotations, c.Content(src))
		}
	}
	return annotations
}

func hasModifierWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

func extractField(node *sitter.Node, src []byte) []model.Field {
	var modifiers []string
	var fieldType string
	var fields []model.Field
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			modifiers = extractModifierWords(child, src)
		case "variable_declarator":
			name := child.Content(src)
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "identifier" {
					name = child.Child(j).Content(src)
					break
				}
			}
			fields = append(fields, model.Field{
				Modifier: visibilityOf(modifiers),
				Static:   hasModifierWord(modifiers, "static"),
				Type:     fieldType,
				Name:     name,
			})
		}
		if strings.Contains(child.Type(), "type") {
			fieldType = child.Content(src)
		}
	}
	return fields
}

func visibilityOf(modifiers []string) string {
	for _, m := range modifiers {
		switch m {
		case "public", "private", "protected":
			return m
		}
	}
	return ""
}

func extractMethod(node *sitter.Node, unit *parse.Unit) model.Method {
	src := unit.Source
	name := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(src)
	}

	var modifiers, annotations []string
	retType := ""
	var params []model.Param
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			modifiers = extractModifierWords(child, src)
			annotations = extractAnnotations(child, src)
		case "void_type", "type_identifier", "generic_type", "array_type", "scoped_type_identifier":
			retType = child.Content(src)
		case "formal_parameters":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				param := child.NamedChild(j)
				if param.Type() != "formal_parameter" && param.Type() != "spread_parameter" {
					continue
				}
				params = append(params, extractParam(param, src))
			}
		}
	}

	sharedID := model.NewSharedID(node.Type(), unit.Path, node.StartByte(), node.EndByte())
	return model.Method{
		Modifier:   visibilityOf(modifiers),
		Static:     hasModifierWord(modifiers, "static"),
		Abstract:   hasModifierWord(modifiers, "abstract"),
		RetType:    retType,
		Name:       name,
		Params:     params,
		Line:       node.StartPoint().Row + 1,
		SharedID:   sharedID,
		Annotation: annotations,
	}
}

func extractParam(param *sitter.Node, src []byte) model.Param {
	var final bool
	var annotations []string
	var typ, name string
	for i := 0; i < int(param.ChildCount()); i++ {
		c := param.Child(i)
		switch c.Type() {
		case "modifiers":
			for j := 0; j < int(c.ChildCount()); j++ {
				m := c.Child(j)
				if m.Type() == "final" {
					final = true
				}
				if m.Type() == "marker_annotation" || m.Type() == "annotation" {
					annotations = append(annotations, m.Content(src))
				}
			}
		case "identifier":
			name = c.Content(src)
		default:
			if strings.Contains(c.Type(), "type") {
				typ = c.Content(src)
			}
		}
	}
	return model.Param{Final: final, Annotation: annotations, Type: typ, Name: name}
}
