package astbuild

import "github.com/taintgraph/engine/model"

// nodeKind maps a tree-sitter Java grammar production name to the semantic
// ASTKind the builder emits for it. A named production with no entry here
// is either handled by a dedicated case in Builder.visit (because its
// children need canonical slotting) or built as a generic ASTStatement
// wrapper; unnamed layout tokens are skipped before this table is consulted.
var nodeKind = map[string]model.ASTKind{
	"program":                    model.ASTRoot,
	"package_declaration":        model.ASTPackage,
	"import_declaration":         model.ASTImport,
	"class_declaration":          model.ASTClass,
	"method_declaration":         model.ASTMethod,
	"constructor_declaration":    model.ASTMethod,
	"field_declaration":          model.ASTField,
	"formal_parameter":           model.ASTParameter,
	"spread_parameter":           model.ASTParameter,
	"block":                      model.ASTBlock,
	"if_statement":               model.ASTIf,
	"while_statement":            model.ASTWhile,
	"do_statement":               model.ASTDoWhile,
	"for_statement":              model.ASTFor,
	"enhanced_for_statement":     model.ASTForEach,
	"switch_expression":          model.ASTSwitch,
	"switch_statement":           model.ASTSwitch,
	"switch_block_statement_group": model.ASTCase,
	"switch_rule":                model.ASTCase,
	"try_statement":              model.ASTTry,
	"try_with_resources_statement": model.ASTTry,
	"catch_clause":               model.ASTCatch,
	"finally_clause":             model.ASTFinally,
	"return_statement":           model.ASTReturn,
	"throw_statement":            model.ASTThrow,
	"synchronized_statement":     model.ASTSync,
	"labeled_statement":          model.ASTLabel,
	"break_statement":            model.ASTBreak,
	"continue_statement":         model.ASTContinue,
	"expression_statement":       model.ASTStatement,
	"assignment_expression":      model.ASTAssign,
	"binary_expression":          model.ASTBinOp,
	"unary_expression":           model.ASTUnaryOp,
	"update_expression":          model.ASTUnaryOp,
	"cast_expression":            model.ASTCast,
	"method_invocation":          model.ASTCall,
	"object_creation_expression": model.ASTCall,
	"field_access":               model.ASTDot,
	"array_access":               model.ASTArray,
	"array_initializer":          model.ASTArrayInit,
	"decimal_integer_literal":    model.ASTLiteral,
	"hex_integer_literal":        model.ASTLiteral,
	"decimal_floating_point_literal": model.ASTLiteral,
	"string_literal":             model.ASTLiteral,
	"character_literal":          model.ASTLiteral,
	"true":                       model.ASTLiteral,
	"false":                      model.ASTLiteral,
	"null_literal":               model.ASTLiteral,
	"identifier":                 model.ASTName,
	"this":                       model.ASTName,
	"super":                      model.ASTName,
	"type_identifier":            model.ASTType,
	"void_type":                  model.ASTType,
	"modifiers":                  model.ASTModifier,
	"ternary_expression":         model.ASTTernary,
	"resource":                   model.ASTResource,
}
