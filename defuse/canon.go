package defuse

import (
	"fmt"

	"github.com/taintgraph/engine/model"
)

// canonicalize produces a textual form of an expression AST node with
// literals normalized to the markers spec.md §4.4 names, so that two
// syntactically different-but-equivalent expressions (e.g. different
// integer literals) canonicalize identically for DEF/USE comparison.
func canonicalize(n *model.ASTNode) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case model.ASTLiteral:
		return literalMarker(n)
	case model.ASTCast:
		inner := ""
		if len(n.Children) > 0 {
			inner = canonicalize(n.Children[len(n.Children)-1])
		}
		return fmt.Sprintf("$CAST(%s)%s", n.CastType, inner)
	case model.ASTCall:
		if isConstructorCall(n) {
			return "$NEW"
		}
		return n.Name + "(...)"
	case model.ASTBinOp:
		left, right := "", ""
		if l := n.Slot(model.SlotLeft); l != nil {
			left = canonicalize(l)
		} else if len(n.Children) > 0 {
			left = canonicalize(n.Children[0])
		}
		if r := n.Slot(model.SlotRight); r != nil {
			right = canonicalize(r)
		} else if len(n.Children) > 1 {
			right = canonicalize(n.Children[1])
		}
		return fmt.Sprintf("(%s %s %s)", left, n.Operator, right)
	case model.ASTName:
		return n.Name
	case model.ASTDot:
		parts := make([]string, 0, len(n.Children)+1)
		for _, c := range n.Children {
			parts = append(parts, canonicalize(c))
		}
		if n.Name != "" {
			parts = append(parts, n.Name)
		}
		return joinDot(parts)
	default:
		if n.Name != "" {
			return n.Name
		}
		return n.Code
	}
}

func literalMarker(n *model.ASTNode) string {
	v := n.Value
	switch {
	case v == "true" || v == "false":
		return "$BOOL"
	case v == "null":
		return "$NULL"
	case len(v) >= 2 && v[0] == '"':
		return "$STR"
	case len(v) >= 2 && v[0] == '\'':
		return "$CHR"
	default:
		for _, r := range v {
			if r == '.' {
				return "$DBL"
			}
		}
		return "$INT"
	}
}

func isConstructorCall(n *model.ASTNode) bool {
	return len(n.Name) > 0 && n.Name[0] >= 'A' && n.Name[0] <= 'Z'
}

func joinDot(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
